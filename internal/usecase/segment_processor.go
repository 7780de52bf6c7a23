package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/port"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/metrics"
	"go.uber.org/zap"
)

// SegmentProcessor pulls the frames of a segment in fixed-size batches and
// embeds them in frame index order.
type SegmentProcessor struct {
	extractor port.FeatureExtractor
	logger    *zap.Logger
}

func NewSegmentProcessor(extractor port.FeatureExtractor, logger *zap.Logger) *SegmentProcessor {
	return &SegmentProcessor{extractor: extractor, logger: logger}
}

// Process returns one vector per decoded frame of seg. A decode failure or
// end of stream stops the segment early: frames already buffered are still
// embedded and the shortened list is returned without an error.
func (p *SegmentProcessor) Process(
	ctx context.Context,
	source port.FrameSource,
	seg entity.Segment,
	batchSize int,
) ([]entity.FeatureVector, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("%w: batch size %d", entity.ErrConfiguration, batchSize)
	}
	if seg.Start < 0 || seg.End <= seg.Start {
		return nil, fmt.Errorf("%w: segment [%d,%d)", entity.ErrConfiguration, seg.Start, seg.End)
	}

	log := p.logger.With(zap.Int("segment_start", seg.Start), zap.Int("segment_end", seg.End))

	features := make([]entity.FeatureVector, 0, seg.Len())
	batch := make([]image.Image, 0, min(batchSize, seg.Len()))
	batchStart := seg.Start

	// flush embeds the buffered frames and reports whether the segment must stop.
	flush := func() (bool, error) {
		defer func() { batch = batch[:0] }()
		for i, frame := range batch {
			vec, err := p.extractor.Extract(ctx, frame)
			if err != nil {
				if errors.Is(err, entity.ErrDecode) {
					log.Warn("frame could not be converted, truncating segment",
						zap.Int("frame", batchStart+i), zap.Error(err))
					return true, nil
				}
				return false, fmt.Errorf("extract frame %d: %w", batchStart+i, err)
			}
			features = append(features, vec)
		}
		return false, nil
	}

	truncated := false
	for idx := seg.Start; idx < seg.End; idx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := source.Frame(ctx, idx)
		if err != nil {
			if errors.Is(err, entity.ErrEndOfStream) || errors.Is(err, entity.ErrDecode) {
				log.Warn("frame not readable, truncating segment", zap.Int("frame", idx), zap.Error(err))
				truncated = true
				break
			}
			return nil, fmt.Errorf("read frame %d: %w", idx, err)
		}

		if len(batch) == 0 {
			batchStart = idx
		}
		batch = append(batch, frame)

		if len(batch) == batchSize {
			stop, err := flush()
			if err != nil {
				return nil, err
			}
			if stop {
				truncated = true
				break
			}
		}
	}

	if len(batch) > 0 {
		stop, err := flush()
		if err != nil {
			return nil, err
		}
		truncated = truncated || stop
	}

	if truncated {
		metrics.SegmentsTruncatedTotal.Inc()
		log.Info("segment truncated",
			zap.Int("frames_embedded", len(features)),
			zap.Int("frames_expected", seg.Len()),
		)
	}
	metrics.FramesEmbeddedTotal.Add(float64(len(features)))

	return features, nil
}
