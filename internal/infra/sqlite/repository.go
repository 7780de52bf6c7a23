package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS fingerprints (
	url           TEXT PRIMARY KEY,
	title         TEXT NOT NULL DEFAULT '',
	length        INTEGER NOT NULL DEFAULT 0,
	views         INTEGER NOT NULL DEFAULT 0,
	rating        REAL,
	thumbnail_url TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	watch_url     TEXT NOT NULL DEFAULT '',
	features      BLOB NOT NULL
)`

type FingerprintRepository struct {
	db *sql.DB
}

// Open opens (or creates) the database file at path and ensures the schema.
// Calling it again on an existing file keeps all stored records.
func Open(ctx context.Context, path string) (*FingerprintRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create store dir: %v", entity.ErrStoreUnavailable, err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", entity.ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create schema: %v", entity.ErrStoreUnavailable, err)
	}
	return &FingerprintRepository{db: db}, nil
}

func (r *FingerprintRepository) Exists(ctx context.Context, url string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM fingerprints WHERE url = ?`, url).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: check fingerprint: %v", entity.ErrStoreUnavailable, err)
	}
	return true, nil
}

func (r *FingerprintRepository) Insert(ctx context.Context, record *entity.VideoRecord) error {
	blob, err := entity.EncodeEmbeddings(record.Embeddings)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO fingerprints (
			url, title, length, views, rating,
			thumbnail_url, description, watch_url, features
		) VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(url) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		record.URL, record.Title, record.LengthSeconds, record.ViewCount, record.Rating,
		record.ThumbnailURL, record.Description, record.WatchURL, blob,
	)
	if err != nil {
		return fmt.Errorf("%w: insert fingerprint: %v", entity.ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: insert fingerprint: %v", entity.ErrStoreUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", entity.ErrDuplicateKey, record.URL)
	}
	return nil
}

func (r *FingerprintRepository) Get(ctx context.Context, url string) (*entity.VideoRecord, error) {
	query := `
		SELECT url, title, length, views, rating,
			thumbnail_url, description, watch_url, features
		FROM fingerprints WHERE url = ?`

	rec := &entity.VideoRecord{}
	var rating sql.NullFloat64
	var blob []byte
	err := r.db.QueryRowContext(ctx, query, url).Scan(
		&rec.URL, &rec.Title, &rec.LengthSeconds, &rec.ViewCount, &rating,
		&rec.ThumbnailURL, &rec.Description, &rec.WatchURL, &blob,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", entity.ErrNotFound, url)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find fingerprint: %v", entity.ErrStoreUnavailable, err)
	}
	if rating.Valid {
		rec.Rating = &rating.Float64
	}
	if rec.Embeddings, err = entity.DecodeEmbeddings(blob); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *FingerprintRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fingerprints`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count fingerprints: %v", entity.ErrStoreUnavailable, err)
	}
	return n, nil
}

func (r *FingerprintRepository) Close() error {
	return r.db.Close()
}
