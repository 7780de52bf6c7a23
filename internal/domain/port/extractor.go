package port

import (
	"context"
	"image"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
)

// FrameSource yields decoded frames of one opened video by index. Frame
// returns errors wrapping entity.ErrEndOfStream past the last frame and
// entity.ErrDecode for unreadable frames.
type FrameSource interface {
	Info() entity.VideoInfo
	Frame(ctx context.Context, index int) (image.Image, error)
	Close() error
}

type FrameSourceOpener interface {
	Open(ctx context.Context, videoPath string) (FrameSource, error)
}

// FeatureExtractor embeds a single frame. Implementations are not assumed to
// be safe for concurrent use.
type FeatureExtractor interface {
	Extract(ctx context.Context, frame image.Image) (entity.FeatureVector, error)
}
