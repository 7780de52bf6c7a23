package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FingerprintRepository struct {
	pool *pgxpool.Pool
}

func NewFingerprintRepository(pool *pgxpool.Pool) *FingerprintRepository {
	return &FingerprintRepository{pool: pool}
}

func (r *FingerprintRepository) Exists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM fingerprints WHERE url=$1)`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: check fingerprint: %v", entity.ErrStoreUnavailable, err)
	}
	return exists, nil
}

func (r *FingerprintRepository) Insert(ctx context.Context, record *entity.VideoRecord) error {
	blob, err := entity.EncodeEmbeddings(record.Embeddings)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO fingerprints (
			url, title, length, views, rating,
			thumbnail_url, description, watch_url, features, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (url) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		record.URL, record.Title, record.LengthSeconds, record.ViewCount, record.Rating,
		record.ThumbnailURL, record.Description, record.WatchURL, blob, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert fingerprint: %v", entity.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", entity.ErrDuplicateKey, record.URL)
	}
	return nil
}

func (r *FingerprintRepository) Get(ctx context.Context, url string) (*entity.VideoRecord, error) {
	query := `
		SELECT url, title, length, views, rating,
			thumbnail_url, description, watch_url, features, created_at
		FROM fingerprints WHERE url=$1`

	rec := &entity.VideoRecord{}
	var blob []byte
	err := r.pool.QueryRow(ctx, query, url).Scan(
		&rec.URL, &rec.Title, &rec.LengthSeconds, &rec.ViewCount, &rec.Rating,
		&rec.ThumbnailURL, &rec.Description, &rec.WatchURL, &blob, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", entity.ErrNotFound, url)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find fingerprint: %v", entity.ErrStoreUnavailable, err)
	}
	if rec.Embeddings, err = entity.DecodeEmbeddings(blob); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *FingerprintRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM fingerprints`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count fingerprints: %v", entity.ErrStoreUnavailable, err)
	}
	return n, nil
}
