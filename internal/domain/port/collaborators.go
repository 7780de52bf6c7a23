package port

import (
	"context"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
)

type Discoverer interface {
	Search(ctx context.Context, query string) ([]string, error)
}

type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) (entity.VideoMetadata, error)
}

// Downloader writes the video behind url into destDir. It never leaves a
// partial file behind when the result is a failure.
type Downloader interface {
	Download(ctx context.Context, url string, destDir string) entity.DownloadResult
}
