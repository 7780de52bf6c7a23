package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fingerprints.db")
	repo, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	defer repo.Close()

	rec := entity.NewVideoRecord("https://www.youtube.com/watch?v=show", entity.VideoMetadata{
		Title:         "Shown",
		LengthSeconds: 3,
		WatchURL:      "https://www.youtube.com/watch?v=show",
	}, []entity.FeatureVector{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, repo.Insert(context.Background(), rec))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestShowPrintsStoredFingerprint(t *testing.T) {
	t.Setenv("SQLITE_PATH", seedStore(t))

	out, err := execute(t, "show", "/watch?v=show")
	require.NoError(t, err)

	var got shownRecord
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Shown", got.Title)
	assert.Equal(t, 2, got.FrameCount)
	assert.Equal(t, 3, got.Dimension)
	assert.Empty(t, got.Features)
}

func TestShowWithFeatures(t *testing.T) {
	t.Setenv("SQLITE_PATH", seedStore(t))

	out, err := execute(t, "show", "--features", "https://www.youtube.com/watch?v=show")
	require.NoError(t, err)

	var got shownRecord
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []entity.FeatureVector{{1, 2, 3}, {4, 5, 6}}, got.Features)
}

func TestShowUnknownURL(t *testing.T) {
	t.Setenv("SQLITE_PATH", seedStore(t))

	_, err := execute(t, "show", "https://www.youtube.com/watch?v=other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fingerprint stored")
}

func TestRunWithEmptyQueriesFile(t *testing.T) {
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "fingerprints.db"))
	queries := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(queries, []byte("\n  \n"), 0o644))

	_, err := execute(t, "run", queries)
	require.NoError(t, err)
}

func TestRunMissingQueriesFile(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestProcessRequiresURL(t *testing.T) {
	_, err := execute(t, "process")
	require.Error(t, err)
}
