package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"edusocial/internal/api"
	"edusocial/internal/config"
	"edusocial/internal/logger"
	"edusocial/internal/models"
	"edusocial/internal/repository"
	"edusocial/internal/session"
)

// MinSearchLength is the shortest query sent to user search.
const MinSearchLength = 2

type FriendService interface {
	List(ctx context.Context) (*models.FriendshipBuckets, error)
	Accept(ctx context.Context, friendshipID string) error
	Reject(ctx context.Context, friendshipID string) error
	Cancel(ctx context.Context, friendshipID string) error
	Remove(ctx context.Context, friendshipID string) error
	Send(ctx context.Context, userID string) (*models.Friendship, error)
	Suggestions(ctx context.Context) ([]models.User, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
	WatchPending(ctx context.Context, onNew func(pending []models.Friendship)) error
}

type friendService struct {
	api     FriendAPI
	cache   repository.FriendCache
	session *session.Session
	notify  Notifier
	cfg     *config.Config
	log     logger.Logger

	mu      sync.Mutex
	owner   string
	buckets *models.FriendshipBuckets
}

func NewFriendService(friendAPI FriendAPI, cache repository.FriendCache, sess *session.Session, notify Notifier, cfg *config.Config, log logger.Logger) FriendService {
	return &friendService{
		api:     friendAPI,
		cache:   cache,
		session: sess,
		notify:  notify,
		cfg:     cfg,
		log:     log,
	}
}

func (s *friendService) fetch(ctx context.Context) (*models.FriendshipBuckets, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.API.FetchTimeout)
	defer cancel()
	return s.api.Friendships(ctx)
}

// List fetches the three buckets and caches them for the current user.
// When the fetch fails the cached copy is served instead.
func (s *friendService) List(ctx context.Context) (*models.FriendshipBuckets, error) {
	userID := s.session.UserID()

	b, err := s.fetch(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return nil, err
		}
		s.log.Warn("fetching friendships, falling back to cache", err)
		cached, cerr := s.cache.Load(ctx, userID)
		if cerr != nil || isEmpty(cached) {
			return nil, err
		}
		s.notify.Info("Showing cached friend lists")
		s.setState(userID, cached)
		return clone(cached), nil
	}

	if err := s.cache.Save(ctx, userID, b); err != nil {
		s.log.Warn("caching friendships", err)
	}
	s.setState(userID, b)
	return clone(b), nil
}

func (s *friendService) Accept(ctx context.Context, friendshipID string) error {
	return s.mutate(ctx, "Friend request accepted", "Could not accept the request",
		func(b *models.FriendshipBuckets) (func(*models.FriendshipBuckets), error) {
			fr, ok := take(&b.PendingRequests, friendshipID)
			if !ok {
				return nil, errors.Errorf("no pending request %s", friendshipID)
			}
			accepted := fr
			accepted.Status = models.FriendshipAccepted
			b.Friends = append(b.Friends, accepted)
			return func(b *models.FriendshipBuckets) {
				take(&b.Friends, friendshipID)
				putBack(&b.PendingRequests, fr)
			}, nil
		},
		func() error { return s.api.AcceptFriendship(ctx, friendshipID) },
	)
}

func (s *friendService) Reject(ctx context.Context, friendshipID string) error {
	return s.mutate(ctx, "Friend request rejected", "Could not reject the request",
		removeFrom(models.BucketPending, friendshipID),
		func() error { return s.api.RejectFriendship(ctx, friendshipID) },
	)
}

func (s *friendService) Cancel(ctx context.Context, friendshipID string) error {
	return s.mutate(ctx, "Friend request cancelled", "Could not cancel the request",
		removeFrom(models.BucketSent, friendshipID),
		func() error { return s.api.DeleteFriendship(ctx, friendshipID) },
	)
}

func (s *friendService) Remove(ctx context.Context, friendshipID string) error {
	return s.mutate(ctx, "Friend removed", "Could not remove the friend",
		removeFrom(models.BucketFriends, friendshipID),
		func() error { return s.api.DeleteFriendship(ctx, friendshipID) },
	)
}

// Send adds a placeholder to the sent bucket and swaps in the server's
// record once the request is created.
func (s *friendService) Send(ctx context.Context, userID string) (*models.Friendship, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	placeholder := models.Friendship{
		ID:          models.TempIDPrefix + userID,
		RequesterID: s.session.UserID(),
		AddresseeID: userID,
		Status:      models.FriendshipPending,
		RequestedAt: time.Now(),
		User:        models.User{ID: userID},
	}

	var created *models.Friendship
	err := s.mutate(ctx, "Friend request sent", "Could not send the friend request",
		func(b *models.FriendshipBuckets) (func(*models.FriendshipBuckets), error) {
			for _, fr := range b.SentRequests {
				if fr.AddresseeID == userID || fr.User.ID == userID {
					return nil, errors.New("a request to this user is already pending")
				}
			}
			b.SentRequests = append(b.SentRequests, placeholder)
			return func(b *models.FriendshipBuckets) { take(&b.SentRequests, placeholder.ID) }, nil
		},
		func() error {
			var err error
			created, err = s.api.SendFriendRequest(ctx, api.FriendRequest{AddresseeID: userID})
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	if created == nil || created.ID == "" {
		return &placeholder, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.buckets.SentRequests {
		if s.buckets.SentRequests[i].ID == placeholder.ID {
			s.buckets.SentRequests[i] = *created
		}
	}
	s.saveLocked(ctx)
	return created, nil
}

func (s *friendService) Suggestions(ctx context.Context) ([]models.User, error) {
	return s.api.FriendSuggestions(ctx)
}

// SearchUsers returns nothing for queries shorter than MinSearchLength.
func (s *friendService) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchLength {
		return nil, nil
	}
	return s.api.SearchUsers(ctx, query)
}

// WatchPending polls for incoming requests until ctx is done and calls
// onNew whenever the pending count grows.
func (s *friendService) WatchPending(ctx context.Context, onNew func(pending []models.Friendship)) error {
	interval := s.cfg.Cache.PollInterval
	if interval <= 0 {
		return errors.New("poll interval must be positive")
	}

	last := -1
	if b := s.state(ctx); b != nil {
		last = len(b.PendingRequests)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		b, err := s.fetch(ctx)
		if err != nil {
			if errors.Is(err, api.ErrUnauthorized) {
				return err
			}
			s.log.Debug("polling friend requests", err)
			continue
		}
		userID := s.session.UserID()
		if err := s.cache.Save(ctx, userID, b); err != nil {
			s.log.Warn("caching friendships", err)
		}
		s.setState(userID, b)

		n := len(b.PendingRequests)
		if last >= 0 && n > last {
			s.notify.Info(fmt.Sprintf("You have %d new friend request(s)", n-last))
			if onNew != nil {
				onNew(b.PendingRequests)
			}
		}
		last = n
	}
}

// mutate applies change to the local buckets and cache, then runs call.
// If call fails only the undo returned by change is applied, so updates
// that landed in the meantime survive.
func (s *friendService) mutate(ctx context.Context, okMsg, failMsg string, change func(*models.FriendshipBuckets) (func(*models.FriendshipBuckets), error), call func() error) error {
	s.state(ctx)

	s.mu.Lock()
	userID := s.session.UserID()
	if s.buckets == nil || s.owner != userID {
		s.owner = userID
		s.buckets = &models.FriendshipBuckets{}
	}
	next := clone(s.buckets)
	undo, err := change(next)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.buckets = next
	s.saveLocked(ctx)
	s.mu.Unlock()

	if err := call(); err != nil {
		s.mu.Lock()
		if s.buckets != nil && s.owner == userID {
			undo(s.buckets)
			s.saveLocked(ctx)
		}
		s.mu.Unlock()
		s.notify.Error(failMsg)
		return err
	}
	s.notify.Success(okMsg)
	return nil
}

// state returns the in-memory buckets for the current user, loading the
// cache when the user changed.
func (s *friendService) state(ctx context.Context) *models.FriendshipBuckets {
	userID := s.session.UserID()
	s.mu.Lock()
	if s.buckets != nil && s.owner == userID {
		b := s.buckets
		s.mu.Unlock()
		return b
	}
	s.mu.Unlock()

	cached, err := s.cache.Load(ctx, userID)
	if err != nil {
		s.log.Warn("loading friend cache", err)
		return nil
	}
	s.setState(userID, cached)
	return cached
}

func (s *friendService) setState(userID string, b *models.FriendshipBuckets) {
	s.mu.Lock()
	s.owner = userID
	s.buckets = clone(b)
	s.mu.Unlock()
}

// saveLocked writes the in-memory buckets to the cache. Callers hold s.mu.
func (s *friendService) saveLocked(ctx context.Context) {
	if err := s.cache.Save(ctx, s.owner, s.buckets); err != nil {
		s.log.Warn("caching friendships", err)
	}
}

func removeFrom(bucket, friendshipID string) func(*models.FriendshipBuckets) (func(*models.FriendshipBuckets), error) {
	return func(b *models.FriendshipBuckets) (func(*models.FriendshipBuckets), error) {
		list := b.Bucket(bucket)
		fr, ok := take(&list, friendshipID)
		if !ok {
			return nil, errors.Errorf("no %s entry %s", bucket, friendshipID)
		}
		b.SetBucket(bucket, list)
		return func(b *models.FriendshipBuckets) {
			list := b.Bucket(bucket)
			putBack(&list, fr)
			b.SetBucket(bucket, list)
		}, nil
	}
}

// putBack appends fr unless an entry with its id is already present.
func putBack(list *[]models.Friendship, fr models.Friendship) {
	for _, existing := range *list {
		if existing.ID == fr.ID {
			return
		}
	}
	*list = append(*list, fr)
}

func take(list *[]models.Friendship, id string) (models.Friendship, bool) {
	for i, fr := range *list {
		if fr.ID == id {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return fr, true
		}
	}
	return models.Friendship{}, false
}

func clone(b *models.FriendshipBuckets) *models.FriendshipBuckets {
	if b == nil {
		return &models.FriendshipBuckets{}
	}
	return &models.FriendshipBuckets{
		Friends:         append([]models.Friendship(nil), b.Friends...),
		PendingRequests: append([]models.Friendship(nil), b.PendingRequests...),
		SentRequests:    append([]models.Friendship(nil), b.SentRequests...),
	}
}

func isEmpty(b *models.FriendshipBuckets) bool {
	return b == nil || len(b.Friends)+len(b.PendingRequests)+len(b.SentRequests) == 0
}
