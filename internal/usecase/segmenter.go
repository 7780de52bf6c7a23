package usecase

import (
	"fmt"
	"math"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
)

// Segments tiles [0, totalFrames) left to right with segments of
// floor(fps*segmentLengthSeconds) frames. The last segment is clipped to
// totalFrames and may be shorter.
func Segments(totalFrames int, fps, segmentLengthSeconds float64) ([]entity.Segment, error) {
	if totalFrames < 0 {
		return nil, fmt.Errorf("%w: total frames %d is negative", entity.ErrConfiguration, totalFrames)
	}

	width, err := SegmentWidth(fps, segmentLengthSeconds)
	if err != nil {
		return nil, err
	}

	segments := make([]entity.Segment, 0, (totalFrames+width-1)/width)
	for start := 0; start < totalFrames; start += width {
		segments = append(segments, entity.Segment{
			Start: start,
			End:   min(start+width, totalFrames),
		})
	}
	return segments, nil
}

// SegmentWidth returns the nominal segment width in frames.
func SegmentWidth(fps, segmentLengthSeconds float64) (int, error) {
	raw := math.Floor(fps * segmentLengthSeconds)
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw < 1 || raw > math.MaxInt32 {
		return 0, fmt.Errorf("%w: fps %g with segment length %gs gives no whole frame",
			entity.ErrConfiguration, fps, segmentLengthSeconds)
	}
	return int(raw), nil
}
