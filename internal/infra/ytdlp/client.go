package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"go.uber.org/zap"
)

const (
	baseURL        = "https://www.youtube.com"
	outputTemplate = "video.%(ext)s"
)

// Client drives the yt-dlp binary for search, metadata and downloads.
type Client struct {
	binary      string
	searchLimit int
	logger      *zap.Logger
}

func NewClient(binary string, searchLimit int, logger *zap.Logger) *Client {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	if searchLimit <= 0 {
		searchLimit = 50
	}
	return &Client{binary: binary, searchLimit: searchLimit, logger: logger}
}

// CheckAvailable reports whether the configured binary can be found.
func (c *Client) CheckAvailable() error {
	if _, err := exec.LookPath(c.binary); err != nil {
		return fmt.Errorf("missing dependency: %s is not installed or not on PATH: %w", c.binary, err)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	out, err := c.run(ctx, searchArgs(query, c.searchLimit)...)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	urls, err := parseSearchResults(out)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	c.logger.Debug("search results", zap.String("query", query), zap.Int("count", len(urls)))
	return urls, nil
}

func (c *Client) Fetch(ctx context.Context, url string) (entity.VideoMetadata, error) {
	out, err := c.run(ctx, "-J", "--no-playlist", "--skip-download", url)
	if err != nil {
		return entity.VideoMetadata{}, fmt.Errorf("fetch metadata: %w", err)
	}
	return parseMetadata(out)
}

func (c *Client) Download(ctx context.Context, url string, destDir string) entity.DownloadResult {
	cmd := exec.CommandContext(ctx, c.binary, downloadArgs(url, destDir)...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()
	path, findErr := findDownloaded(destDir)
	if runErr == nil && findErr == nil {
		return entity.DownloadSucceeded(path)
	}

	removePartial(destDir)
	text := strings.TrimSpace(output.String())
	if ctx.Err() != nil {
		return entity.DownloadFailed(entity.DownloadFailureNetwork, ctx.Err().Error())
	}
	failure := classifyDownloadFailure(text)
	if runErr == nil && failure == entity.DownloadFailureUnavailable && findErr != nil {
		text = findErr.Error()
	}
	c.logger.Debug("yt-dlp download output", zap.String("url", url), zap.String("output", text))
	return entity.DownloadFailed(failure, lastLine(text))
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("yt-dlp returned empty output")
	}
	return stdout.Bytes(), nil
}

func searchArgs(query string, limit int) []string {
	return []string{"--flat-playlist", "-J", fmt.Sprintf("ytsearch%d:%s", limit, query)}
}

func downloadArgs(url, destDir string) []string {
	return []string{
		"--no-playlist",
		"--no-progress",
		"--match-filter", "!is_live",
		"-f", "mp4/best[ext=mp4]/best",
		"-o", filepath.Join(destDir, outputTemplate),
		url,
	}
}

type searchResult struct {
	Entries []struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"entries"`
}

func parseSearchResults(data []byte) ([]string, error) {
	var res searchResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}

	seen := make(map[string]struct{}, len(res.Entries))
	urls := make([]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		u := NormalizeURL(e.URL)
		if u == "" && e.ID != "" {
			u = baseURL + "/watch?v=" + e.ID
		}
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls, nil
}

// NormalizeURL turns site-relative links into absolute watch urls.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	switch {
	case u == "":
		return ""
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	case strings.HasPrefix(u, "/"):
		return baseURL + u
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		return u
	default:
		return baseURL + "/" + u
	}
}

type videoJSON struct {
	Title         string   `json:"title"`
	Duration      *float64 `json:"duration"`
	ViewCount     *int64   `json:"view_count"`
	AverageRating *float64 `json:"average_rating"`
	Thumbnail     string   `json:"thumbnail"`
	Description   string   `json:"description"`
	WebpageURL    string   `json:"webpage_url"`
	IsLive        bool     `json:"is_live"`
}

func parseMetadata(data []byte) (entity.VideoMetadata, error) {
	var v videoJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return entity.VideoMetadata{}, fmt.Errorf("decode metadata: %w", err)
	}

	meta := entity.VideoMetadata{
		Title:        v.Title,
		Rating:       v.AverageRating,
		ThumbnailURL: v.Thumbnail,
		Description:  v.Description,
		WatchURL:     v.WebpageURL,
		IsLive:       v.IsLive,
	}
	if v.Duration != nil && *v.Duration > 0 {
		meta.LengthSeconds = int(math.Round(*v.Duration))
	}
	if v.ViewCount != nil {
		meta.ViewCount = *v.ViewCount
	}
	return meta, nil
}

var failurePatterns = []struct {
	failure  entity.DownloadFailure
	patterns []string
}{
	{entity.DownloadFailureLive, []string{
		"does not pass filter", "is live", "live event", "premieres in", "this live stream",
	}},
	{entity.DownloadFailureRestricted, []string{
		"sign in to confirm", "age-restricted", "private video", "members-only",
		"available to this channel's members", "not available in your country", "copyright",
	}},
	{entity.DownloadFailureNetwork, []string{
		"unable to download webpage", "timed out", "connection reset", "connection refused",
		"temporary failure in name resolution", "http error 5", "network is unreachable",
	}},
}

func classifyDownloadFailure(output string) entity.DownloadFailure {
	lower := strings.ToLower(output)
	for _, fp := range failurePatterns {
		for _, p := range fp.patterns {
			if strings.Contains(lower, p) {
				return fp.failure
			}
		}
	}
	return entity.DownloadFailureUnavailable
}

func findDownloaded(destDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(destDir, "video.*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		if isPartial(m) {
			continue
		}
		if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() && fi.Size() > 0 {
			return m, nil
		}
	}
	return "", errors.New("no video file was written")
}

func removePartial(destDir string) {
	matches, _ := filepath.Glob(filepath.Join(destDir, "video.*"))
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

func isPartial(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".part" || ext == ".ytdl" || strings.Contains(filepath.Base(path), ".part-")
}

func lastLine(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[i+1:])
	}
	return text
}
