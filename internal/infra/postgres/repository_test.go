package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupRepository(t *testing.T) *FingerprintRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("fingerprints"),
		tcpostgres.WithUsername("fingerprint_user"),
		tcpostgres.WithPassword("fingerprint_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { pgContainer.Terminate(context.Background()) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, RunMigrations(connStr, "../../../migrations"))
	// A second run is a no-op.
	require.NoError(t, RunMigrations(connStr, "../../../migrations"))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewFingerprintRepository(pool)
}

func TestFingerprintRepository(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	rating := 3.5
	rec := entity.NewVideoRecord("https://www.youtube.com/watch?v=pg", entity.VideoMetadata{
		Title:         "Postgres cats",
		LengthSeconds: 30,
		ViewCount:     7,
		Rating:        &rating,
		WatchURL:      "https://www.youtube.com/watch?v=pg",
	}, []entity.FeatureVector{{1.5, -2}, {0, 0.25}})

	exists, err := repo.Exists(ctx, rec.URL)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Insert(ctx, rec))

	exists, err = repo.Exists(ctx, rec.URL)
	require.NoError(t, err)
	assert.True(t, exists)

	err = repo.Insert(ctx, rec)
	require.ErrorIs(t, err, entity.ErrDuplicateKey)

	got, err := repo.Get(ctx, rec.URL)
	require.NoError(t, err)
	assert.Equal(t, rec.Title, got.Title)
	assert.Equal(t, rec.Embeddings, got.Embeddings)
	require.NotNil(t, got.Rating)
	assert.Equal(t, rating, *got.Rating)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Second)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Get(ctx, "https://www.youtube.com/watch?v=nope")
	require.ErrorIs(t, err, entity.ErrNotFound)
}
