package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"edusocial/internal/models"
)

var ErrNotFound = errors.New("not found")

type CacheEntry struct {
	Key       string    `db:"cache_key"`
	Payload   string    `db:"payload"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CacheRepository is a key/value table with write timestamps.
type CacheRepository interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Put(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// FriendCache stores friend list buckets per user id.
type FriendCache interface {
	Load(ctx context.Context, userID string) (*models.FriendshipBuckets, error)
	Save(ctx context.Context, userID string, buckets *models.FriendshipBuckets) error
	SaveBucket(ctx context.Context, userID, bucket string, list []models.Friendship) error
	Purge(ctx context.Context, userID string) error
}

// PaymentRepository remembers which payment redirects were already handled.
type PaymentRepository interface {
	MarkProcessed(ctx context.Context, res models.PaymentResult) (bool, error)
	Release(ctx context.Context, transactionID string) error
}

type Repository struct {
	Cache    CacheRepository
	Friends  FriendCache
	Timed    *TimedCache
	Payments PaymentRepository
}

func NewRepository(db *sqlx.DB) *Repository {
	cache := NewCacheRepository(db)
	return &Repository{
		Cache:    cache,
		Friends:  NewFriendCache(cache),
		Timed:    NewTimedCache(cache),
		Payments: NewPaymentRepository(db),
	}
}
