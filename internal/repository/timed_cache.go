package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

const (
	FeedKey         = "feed"
	EnrolledKey     = "enrolledCourses"
	AllCoursesKey   = "allCourses"
	sharedKeySuffix = "shared"
)

// TimedCache returns stored values only while they are younger than a TTL.
type TimedCache struct {
	cache CacheRepository
	now   func() time.Time
}

func NewTimedCache(cache CacheRepository) *TimedCache {
	return &TimedCache{cache: cache, now: time.Now}
}

// UserKey scopes name to a user; an empty user id maps to a shared key.
func UserKey(name, userID string) string {
	if userID == "" {
		userID = sharedKeySuffix
	}
	return name + "_" + userID
}

// Get decodes a fresh value into out and reports whether one was found.
func (c *TimedCache) Get(ctx context.Context, key string, ttl time.Duration, out interface{}) (bool, error) {
	entry, err := c.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if c.now().Sub(entry.UpdatedAt) >= ttl {
		return false, nil
	}
	if err := json.Unmarshal([]byte(entry.Payload), out); err != nil {
		return false, errors.Wrapf(err, "decoding cached %s", key)
	}
	return true, nil
}

func (c *TimedCache) Put(ctx context.Context, key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	return c.cache.Put(ctx, key, payload)
}

func (c *TimedCache) Invalidate(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}

// PurgeUser drops every per-user timed entry.
func (c *TimedCache) PurgeUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	for _, name := range []string{FeedKey, EnrolledKey} {
		if err := c.cache.Delete(ctx, UserKey(name, userID)); err != nil {
			return err
		}
	}
	return nil
}
