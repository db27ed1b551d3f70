package repository

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"edusocial/internal/models"
)

type friendCache struct {
	cache CacheRepository
}

func NewFriendCache(cache CacheRepository) FriendCache {
	return &friendCache{cache: cache}
}

// FriendKey is "<bucket>_<userID>", so two users never share an entry.
func FriendKey(bucket, userID string) string {
	return bucket + "_" + userID
}

func (c *friendCache) Load(ctx context.Context, userID string) (*models.FriendshipBuckets, error) {
	out := &models.FriendshipBuckets{}
	if userID == "" {
		return out, nil
	}

	for _, bucket := range models.Buckets {
		entry, err := c.cache.Get(ctx, FriendKey(bucket, userID))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		var list []models.Friendship
		if err := json.Unmarshal([]byte(entry.Payload), &list); err != nil {
			return nil, errors.Wrapf(err, "decoding cached %s", bucket)
		}
		out.SetBucket(bucket, list)
	}

	return out, nil
}

func (c *friendCache) Save(ctx context.Context, userID string, buckets *models.FriendshipBuckets) error {
	if userID == "" || buckets == nil {
		return nil
	}
	for _, bucket := range models.Buckets {
		if err := c.SaveBucket(ctx, userID, bucket, buckets.Bucket(bucket)); err != nil {
			return err
		}
	}
	return nil
}

func (c *friendCache) SaveBucket(ctx context.Context, userID, bucket string, list []models.Friendship) error {
	if userID == "" {
		return nil
	}
	if list == nil {
		list = []models.Friendship{}
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", bucket)
	}
	return c.cache.Put(ctx, FriendKey(bucket, userID), payload)
}

func (c *friendCache) Purge(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	for _, bucket := range models.Buckets {
		if err := c.cache.Delete(ctx, FriendKey(bucket, userID)); err != nil {
			return err
		}
	}
	return nil
}
