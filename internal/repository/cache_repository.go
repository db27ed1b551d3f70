package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type cacheRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewCacheRepository(db *sqlx.DB) CacheRepository {
	return &cacheRepository{db: db, now: time.Now}
}

func (r *cacheRepository) Get(ctx context.Context, key string) (*CacheEntry, error) {
	var entry CacheEntry

	query := r.db.Rebind(`SELECT cache_key, payload, updated_at FROM cache_entries WHERE cache_key = ?`)

	err := r.db.GetContext(ctx, &entry, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "reading cache entry %s", key)
	}

	return &entry, nil
}

func (r *cacheRepository) Put(ctx context.Context, key string, payload []byte) error {
	query := r.db.Rebind(`
		INSERT INTO cache_entries (cache_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`)

	_, err := r.db.ExecContext(ctx, query, key, string(payload), r.now().UTC())
	if err != nil {
		return errors.Wrapf(err, "writing cache entry %s", key)
	}

	return nil
}

func (r *cacheRepository) Delete(ctx context.Context, key string) error {
	query := r.db.Rebind(`DELETE FROM cache_entries WHERE cache_key = ?`)

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return errors.Wrapf(err, "deleting cache entry %s", key)
	}

	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *cacheRepository) DeletePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return errors.New("refusing to delete with an empty prefix")
	}

	query := r.db.Rebind(`DELETE FROM cache_entries WHERE cache_key LIKE ? ESCAPE '\'`)

	if _, err := r.db.ExecContext(ctx, query, likeEscaper.Replace(prefix)+"%"); err != nil {
		return errors.Wrapf(err, "deleting cache entries with prefix %s", prefix)
	}

	return nil
}
