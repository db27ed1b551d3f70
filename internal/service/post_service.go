package service

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"edusocial/internal/api"
	"edusocial/internal/config"
	"edusocial/internal/feed"
	"edusocial/internal/logger"
	"edusocial/internal/models"
	"edusocial/internal/repository"
	"edusocial/internal/session"
)

type FeedOptions struct {
	Mode  feed.Mode
	Query string
	// Force skips the cached copy.
	Force bool
}

type PostService interface {
	Feed(ctx context.Context, opts FeedOptions) ([]models.Post, error)
	Post(ctx context.Context, postID string) (*models.Post, error)
	CreatePost(ctx context.Context, req api.CreatePostRequest) (*models.Post, error)
	UpdatePost(ctx context.Context, postID string, req api.UpdatePostRequest) (*models.Post, error)
	DeletePost(ctx context.Context, postID string) error
	ToggleLike(ctx context.Context, postID string) (*models.Post, error)
	ToggleBookmark(ctx context.Context, postID string) (*models.Post, error)
	Share(ctx context.Context, postID, content string) error
	Report(ctx context.Context, postID, reason, details string) error
	Comments(ctx context.Context, postID string) ([]models.Comment, error)
	AddComment(ctx context.Context, postID, content, parentID string) (*models.Comment, error)
	LikeComment(ctx context.Context, commentID string) (api.LikeResult, error)
	DeleteComment(ctx context.Context, postID, commentID string) error
}

type postService struct {
	api     PostAPI
	timed   *repository.TimedCache
	session *session.Session
	notify  Notifier
	cfg     config.Cache
	log     logger.Logger
	ranker  feed.Ranker

	mu    sync.Mutex
	posts map[string]models.Post
}

func NewPostService(postAPI PostAPI, timed *repository.TimedCache, sess *session.Session, notify Notifier, cfg config.Cache, log logger.Logger) PostService {
	return &postService{
		api:     postAPI,
		timed:   timed,
		session: sess,
		notify:  notify,
		cfg:     cfg,
		log:     log,
		posts:   make(map[string]models.Post),
	}
}

// Feed returns up to FeedLimit posts ranked and filtered. The unranked
// list is cached per user, so every call draws fresh random factors.
func (s *postService) Feed(ctx context.Context, opts FeedOptions) ([]models.Post, error) {
	key := repository.UserKey(repository.FeedKey, s.session.UserID())

	var posts []models.Post
	hit := false
	if !opts.Force {
		var err error
		hit, err = s.timed.Get(ctx, key, s.cfg.FeedTTL, &posts)
		if err != nil {
			s.log.Warn("reading feed cache", err)
		}
	}
	if !hit {
		var err error
		posts, err = s.api.Posts(ctx, 1, s.cfg.FeedLimit)
		if err != nil {
			return nil, err
		}
		if err := s.timed.Put(ctx, key, posts); err != nil {
			s.log.Warn("writing feed cache", err)
		}
	}

	s.mu.Lock()
	for _, p := range posts {
		s.posts[p.ID] = p
	}
	s.mu.Unlock()

	mode := opts.Mode
	if mode == "" {
		mode = feed.Latest
	}
	return feed.Filter(s.ranker.Rank(posts, mode), opts.Query), nil
}

func (s *postService) Post(ctx context.Context, postID string) (*models.Post, error) {
	p, err := s.api.Post(ctx, postID)
	if err != nil {
		return nil, err
	}
	s.remember(*p)
	return p, nil
}

func (s *postService) CreatePost(ctx context.Context, req api.CreatePostRequest) (*models.Post, error) {
	p, err := s.api.CreatePost(ctx, req)
	if err != nil {
		return nil, err
	}
	s.remember(*p)
	s.invalidateFeed(ctx)
	return p, nil
}

func (s *postService) UpdatePost(ctx context.Context, postID string, req api.UpdatePostRequest) (*models.Post, error) {
	p, err := s.api.UpdatePost(ctx, postID, req)
	if err != nil {
		return nil, err
	}
	s.remember(*p)
	s.invalidateFeed(ctx)
	return p, nil
}

func (s *postService) DeletePost(ctx context.Context, postID string) error {
	if err := s.api.DeletePost(ctx, postID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.posts, postID)
	s.mu.Unlock()
	s.invalidateFeed(ctx)
	return nil
}

// ToggleLike flips the like locally first and restores it if the server
// refuses.
func (s *postService) ToggleLike(ctx context.Context, postID string) (*models.Post, error) {
	return s.toggle(ctx, postID, "like",
		func(p *models.Post) {
			p.Liked = !p.Liked
			if p.Liked {
				p.LikesCount++
			} else if p.LikesCount > 0 {
				p.LikesCount--
			}
		},
		s.api.LikePost,
		func(p *models.Post, r api.LikeResult) {
			if r.HasState {
				p.Liked = r.Active
			}
			if r.HasCount {
				p.LikesCount = r.Count
			}
		},
	)
}

func (s *postService) ToggleBookmark(ctx context.Context, postID string) (*models.Post, error) {
	return s.toggle(ctx, postID, "bookmark",
		func(p *models.Post) {
			p.Bookmarked = !p.Bookmarked
			if p.Bookmarked {
				p.BookmarksCount++
			} else if p.BookmarksCount > 0 {
				p.BookmarksCount--
			}
		},
		s.api.BookmarkPost,
		func(p *models.Post, r api.LikeResult) {
			if r.HasState {
				p.Bookmarked = r.Active
			}
			if r.HasCount {
				p.BookmarksCount = r.Count
			}
		},
	)
}

func (s *postService) toggle(
	ctx context.Context,
	postID, what string,
	flip func(*models.Post),
	call func(context.Context, string) (api.LikeResult, error),
	adopt func(*models.Post, api.LikeResult),
) (*models.Post, error) {
	prev, err := s.lookup(ctx, postID)
	if err != nil {
		return nil, err
	}

	next := prev
	flip(&next)
	s.remember(next)

	res, err := call(ctx, postID)
	if err != nil {
		s.remember(prev)
		s.notify.Error("Could not " + what + " the post")
		return &prev, err
	}
	// Values missing from the response keep their optimistic state.
	if res.HasState || res.HasCount {
		adopt(&next, res)
		s.remember(next)
	}
	s.invalidateFeed(ctx)
	return &next, nil
}

func (s *postService) Share(ctx context.Context, postID, content string) error {
	if err := s.api.SharePost(ctx, postID, api.ShareRequest{Content: content}); err != nil {
		s.notify.Error("Could not share the post")
		return err
	}
	s.adjust(postID, func(p *models.Post) { p.SharesCount++ })
	s.notify.Success("Post shared")
	return nil
}

func (s *postService) Report(ctx context.Context, postID, reason, details string) error {
	if err := s.api.ReportPost(ctx, postID, api.ReportRequest{Reason: reason, Details: details}); err != nil {
		return err
	}
	s.notify.Success("Report sent")
	return nil
}

func (s *postService) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	return s.api.Comments(ctx, postID, 1, 50)
}

func (s *postService) AddComment(ctx context.Context, postID, content, parentID string) (*models.Comment, error) {
	c, err := s.api.AddComment(ctx, postID, api.CommentRequest{Content: content, ParentCommentID: parentID})
	if err != nil {
		return nil, err
	}
	s.adjust(postID, func(p *models.Post) { p.CommentsCount++ })
	return c, nil
}

func (s *postService) LikeComment(ctx context.Context, commentID string) (api.LikeResult, error) {
	return s.api.LikeComment(ctx, commentID)
}

func (s *postService) DeleteComment(ctx context.Context, postID, commentID string) error {
	if err := s.api.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	s.adjust(postID, func(p *models.Post) {
		if p.CommentsCount > 0 {
			p.CommentsCount--
		}
	})
	return nil
}

func (s *postService) lookup(ctx context.Context, postID string) (models.Post, error) {
	s.mu.Lock()
	p, ok := s.posts[postID]
	s.mu.Unlock()
	if ok {
		return p, nil
	}
	fetched, err := s.api.Post(ctx, postID)
	if err != nil {
		return models.Post{}, errors.Wrapf(err, "loading post %s", postID)
	}
	s.remember(*fetched)
	return *fetched, nil
}

func (s *postService) remember(p models.Post) {
	if p.ID == "" {
		return
	}
	s.mu.Lock()
	s.posts[p.ID] = p
	s.mu.Unlock()
}

func (s *postService) adjust(postID string, fn func(*models.Post)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[postID]; ok {
		fn(&p)
		s.posts[postID] = p
	}
}

func (s *postService) invalidateFeed(ctx context.Context) {
	key := repository.UserKey(repository.FeedKey, s.session.UserID())
	if err := s.timed.Invalidate(ctx, key); err != nil {
		s.log.Warn("invalidating feed cache", err)
	}
}
