package service

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"edusocial/internal/models"
)

// Profile is what is shown for another user's page.
type Profile struct {
	User    *models.User
	Posts   []models.Post
	Friends []models.Friendship
}

type UserService interface {
	Profile(ctx context.Context, userID string) (*Profile, error)
	Posts(ctx context.Context, userID string, page, limit int) ([]models.Post, error)
}

type userService struct {
	api UserAPI
}

func NewUserService(userAPI UserAPI) UserService {
	return &userService{api: userAPI}
}

// Profile loads the user, their latest posts and their friends in parallel.
func (s *userService) Profile(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	p := &Profile{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p.User, err = s.api.UserInfo(gctx, userID)
		return errors.Wrap(err, "loading user")
	})
	g.Go(func() error {
		var err error
		p.Posts, err = s.api.UserPosts(gctx, userID, 1, 20)
		return errors.Wrap(err, "loading posts")
	})
	g.Go(func() error {
		buckets, err := s.api.UserFriendships(gctx, userID)
		if err != nil {
			return errors.Wrap(err, "loading friends")
		}
		if buckets != nil {
			p.Friends = buckets.Friends
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *userService) Posts(ctx context.Context, userID string, page, limit int) ([]models.Post, error) {
	return s.api.UserPosts(ctx, userID, page, limit)
}
