package ytdlp

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"/watch?v=abc":                        "https://www.youtube.com/watch?v=abc",
		"//www.youtube.com/watch?v=abc":       "https://www.youtube.com/watch?v=abc",
		"https://www.youtube.com/watch?v=abc": "https://www.youtube.com/watch?v=abc",
		"watch?v=abc":                         "https://www.youtube.com/watch?v=abc",
		"  ":                                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeURL(in), in)
	}
}

func TestParseSearchResults(t *testing.T) {
	data := []byte(`{"entries":[
		{"id":"a1","url":"https://www.youtube.com/watch?v=a1"},
		{"id":"b2","url":"/watch?v=b2"},
		{"id":"c3"},
		{"id":"a1","url":"https://www.youtube.com/watch?v=a1"},
		{}
	]}`)

	urls, err := parseSearchResults(data)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.youtube.com/watch?v=a1",
		"https://www.youtube.com/watch?v=b2",
		"https://www.youtube.com/watch?v=c3",
	}, urls)

	_, err = parseSearchResults([]byte("not json"))
	require.Error(t, err)
}

func TestSearchArgs(t *testing.T) {
	assert.Equal(t, []string{"--flat-playlist", "-J", "ytsearch5:cat videos"}, searchArgs("cat videos", 5))
}

func TestParseMetadata(t *testing.T) {
	data := []byte(`{
		"title":"Cats","duration":61.6,"view_count":1200,"average_rating":4.5,
		"thumbnail":"https://i.ytimg.com/x.jpg","description":"d",
		"webpage_url":"https://www.youtube.com/watch?v=x","is_live":false
	}`)

	meta, err := parseMetadata(data)
	require.NoError(t, err)
	assert.Equal(t, "Cats", meta.Title)
	assert.Equal(t, 62, meta.LengthSeconds)
	assert.Equal(t, int64(1200), meta.ViewCount)
	require.NotNil(t, meta.Rating)
	assert.InDelta(t, 4.5, *meta.Rating, 1e-9)
	assert.Equal(t, "https://www.youtube.com/watch?v=x", meta.WatchURL)
	assert.False(t, meta.IsLive)
}

func TestParseMetadataLiveHasNoLength(t *testing.T) {
	meta, err := parseMetadata([]byte(`{"title":"stream","duration":null,"is_live":true}`))
	require.NoError(t, err)
	assert.True(t, meta.IsLive)
	assert.Zero(t, meta.LengthSeconds)
	assert.Nil(t, meta.Rating)
}

func TestClassifyDownloadFailure(t *testing.T) {
	cases := map[string]entity.DownloadFailure{
		"[download] Live stream does not pass filter (!is_live), skipping": entity.DownloadFailureLive,
		"ERROR: [youtube] x: Sign in to confirm your age":                  entity.DownloadFailureRestricted,
		"ERROR: [youtube] x: Private video":                                entity.DownloadFailureRestricted,
		"ERROR: Unable to download webpage: timed out":                     entity.DownloadFailureNetwork,
		"ERROR: [youtube] x: Video unavailable":                            entity.DownloadFailureUnavailable,
		"":                                                                 entity.DownloadFailureUnavailable,
	}
	for out, want := range cases {
		assert.Equal(t, want, classifyDownloadFailure(out), out)
	}
}

func TestFindDownloadedIgnoresPartialFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "video.mp4.part"), []byte("x"), 0o644))

	_, err := findDownloaded(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "video.mp4"), []byte("x"), 0o644))
	path, err := findDownloaded(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "video.mp4"), path)
}

func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestDownloadWritesIntoDestDir(t *testing.T) {
	bin := fakeBinary(t, `
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; fi
  shift
done
f=$(echo "$out" | sed 's/%(ext)s/mp4/')
printf 'data' > "$f"
`)
	dir := t.TempDir()

	res := NewClient(bin, 5, zap.NewNop()).Download(context.Background(), "https://www.youtube.com/watch?v=x", dir)
	require.True(t, res.OK(), res.Detail)
	assert.Equal(t, filepath.Join(dir, "video.mp4"), res.Path)
}

func TestDownloadFailureLeavesNoFiles(t *testing.T) {
	bin := fakeBinary(t, `
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; fi
  shift
done
f=$(echo "$out" | sed 's/%(ext)s/mp4.part/')
printf 'half' > "$f"
echo "ERROR: [youtube] x: Private video. Sign in if you've been granted access" >&2
exit 1
`)
	dir := t.TempDir()

	res := NewClient(bin, 5, zap.NewNop()).Download(context.Background(), "https://www.youtube.com/watch?v=x", dir)
	assert.False(t, res.OK())
	assert.Equal(t, entity.DownloadFailureRestricted, res.Failure)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSearchUsesBinaryOutput(t *testing.T) {
	bin := fakeBinary(t, `echo '{"entries":[{"id":"q1","url":"/watch?v=q1"}]}'`)

	urls, err := NewClient(bin, 5, zap.NewNop()).Search(context.Background(), "cats")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.youtube.com/watch?v=q1"}, urls)
}
