package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"edusocial/internal/api"
	"edusocial/internal/feed"
	"edusocial/internal/logger"
	"edusocial/internal/models"
	"edusocial/internal/repository"
	"edusocial/internal/session"
)

func newPostService(t *testing.T, m *MockAPI, repo *repository.Repository, sess *session.Session, n Notifier) *postService {
	svc := NewPostService(m, repo.Timed, sess, n, testConfig().Cache, logger.Discard()).(*postService)
	svc.ranker = feed.Ranker{Rand: func() float64 { return 1 }}
	return svc
}

func TestPostService_FeedCachedPerUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Now()

	m := new(MockAPI)
	m.On("Posts", mock.Anything, 1, 1000).Return([]models.Post{
		{ID: "p1", Content: "go tips", LikesCount: 1, CreatedAt: now.Add(-time.Minute)},
		{ID: "p2", Content: "rust", LikesCount: 9, CreatedAt: now.Add(-2 * time.Minute)},
	}, nil).Twice()

	alice := newPostService(t, m, repo, loggedIn(t, "alice"), &recordingNotifier{})

	posts, err := alice.Feed(ctx, FeedOptions{Mode: feed.Trending})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p2", posts[0].ID)

	// Second read is served from the cache.
	posts, err = alice.Feed(ctx, FeedOptions{Query: "go"})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].ID)
	m.AssertNumberOfCalls(t, "Posts", 1)

	// Another user does not see alice's cached feed.
	bob := newPostService(t, m, repo, loggedIn(t, "bob"), &recordingNotifier{})
	_, err = bob.Feed(ctx, FeedOptions{})
	require.NoError(t, err)
	m.AssertNumberOfCalls(t, "Posts", 2)
}

func TestPostService_FeedForceRefetches(t *testing.T) {
	m := new(MockAPI)
	m.On("Posts", mock.Anything, 1, 1000).Return([]models.Post{{ID: "p1"}}, nil)
	svc := newPostService(t, m, newTestRepo(t), loggedIn(t, "u1"), &recordingNotifier{})

	for i := 0; i < 2; i++ {
		_, err := svc.Feed(context.Background(), FeedOptions{Force: true})
		require.NoError(t, err)
	}
	m.AssertNumberOfCalls(t, "Posts", 2)
}

func TestPostService_ToggleLike(t *testing.T) {
	ctx := context.Background()
	m := new(MockAPI)
	m.On("Posts", mock.Anything, 1, 1000).Return([]models.Post{{ID: "p1", LikesCount: 3}}, nil)
	m.On("LikePost", mock.Anything, "p1").Return(api.LikeResult{Active: true, Count: 5, HasState: true, HasCount: true}, nil).Once()

	n := &recordingNotifier{}
	svc := newPostService(t, m, newTestRepo(t), loggedIn(t, "u1"), n)
	_, err := svc.Feed(ctx, FeedOptions{})
	require.NoError(t, err)

	p, err := svc.ToggleLike(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.Liked)
	assert.Equal(t, 5, p.LikesCount, "server count wins")
	assert.Empty(t, n.all())
}

func TestPostService_ToggleLikeRollsBack(t *testing.T) {
	ctx := context.Background()
	m := new(MockAPI)
	m.On("Post", mock.Anything, "p1").Return(&models.Post{ID: "p1", LikesCount: 3}, nil).Once()
	m.On("LikePost", mock.Anything, "p1").Return(api.LikeResult{}, errors.New("boom")).Once()

	n := &recordingNotifier{}
	svc := newPostService(t, m, newTestRepo(t), loggedIn(t, "u1"), n)

	p, err := svc.ToggleLike(ctx, "p1")
	require.Error(t, err)
	assert.False(t, p.Liked)
	assert.Equal(t, 3, p.LikesCount)
	assert.Equal(t, []string{"error: Could not like the post"}, n.all())

	// The restored state is what the next toggle starts from.
	m.On("LikePost", mock.Anything, "p1").Return(api.LikeResult{}, nil)
	p, err = svc.ToggleLike(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.Liked)
	assert.Equal(t, 4, p.LikesCount)
}

func TestPostService_ToggleLikeAdoptsZeroCount(t *testing.T) {
	ctx := context.Background()
	m := new(MockAPI)
	// Stale copy: the user already liked it from another device.
	m.On("Post", mock.Anything, "p1").Return(&models.Post{ID: "p1", LikesCount: 1}, nil).Once()
	m.On("LikePost", mock.Anything, "p1").Return(api.LikeResult{Active: false, Count: 0, HasState: true, HasCount: true}, nil)

	svc := newPostService(t, m, newTestRepo(t), loggedIn(t, "u1"), &recordingNotifier{})
	p, err := svc.ToggleLike(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, p.Liked)
	assert.Equal(t, 0, p.LikesCount)
	assert.False(t, svc.posts["p1"].Liked)
}

func TestPostService_CommentsAdjustCount(t *testing.T) {
	ctx := context.Background()
	m := new(MockAPI)
	m.On("Post", mock.Anything, "p1").Return(&models.Post{ID: "p1", CommentsCount: 1}, nil)
	m.On("AddComment", mock.Anything, "p1", api.CommentRequest{Content: "nice"}).Return(&models.Comment{ID: "c1"}, nil)
	m.On("DeleteComment", mock.Anything, "c1").Return(nil)

	svc := newPostService(t, m, newTestRepo(t), loggedIn(t, "u1"), &recordingNotifier{})
	_, err := svc.Post(ctx, "p1")
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, "p1", "nice", "")
	require.NoError(t, err)
	assert.Equal(t, 2, svc.posts["p1"].CommentsCount)

	require.NoError(t, svc.DeleteComment(ctx, "p1", "c1"))
	assert.Equal(t, 1, svc.posts["p1"].CommentsCount)
}

func TestPostService_CreateInvalidatesFeed(t *testing.T) {
	ctx := context.Background()
	m := new(MockAPI)
	m.On("Posts", mock.Anything, 1, 1000).Return([]models.Post{{ID: "p1"}}, nil)
	req := api.CreatePostRequest{Content: "hello"}
	m.On("CreatePost", mock.Anything, req).Return(&models.Post{ID: "p2"}, nil)

	svc := newPostService(t, m, newTestRepo(t), loggedIn(t, "u1"), &recordingNotifier{})
	_, err := svc.Feed(ctx, FeedOptions{})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, req)
	require.NoError(t, err)
	_, err = svc.Feed(ctx, FeedOptions{})
	require.NoError(t, err)

	m.AssertNumberOfCalls(t, "Posts", 2)
}
