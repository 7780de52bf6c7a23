package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/port"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EnqueueCandidatesUseCase publishes discovered urls for the queue worker.
type EnqueueCandidatesUseCase struct {
	discoverer port.Discoverer
	publisher  port.CandidatePublisher
	seen       port.SeenSet
	logger     *zap.Logger
}

// NewEnqueueCandidatesUseCase builds the publisher side of the queue. seen may
// be nil, in which case every discovered url is published.
func NewEnqueueCandidatesUseCase(
	discoverer port.Discoverer,
	publisher port.CandidatePublisher,
	seen port.SeenSet,
	logger *zap.Logger,
) *EnqueueCandidatesUseCase {
	return &EnqueueCandidatesUseCase{
		discoverer: discoverer,
		publisher:  publisher,
		seen:       seen,
		logger:     logger,
	}
}

// Enqueue returns the number of messages published.
func (uc *EnqueueCandidatesUseCase) Enqueue(ctx context.Context, queries []string) (int, error) {
	runID := uuid.New()
	log := uc.logger.With(zap.String("run_id", runID.String()))
	published := 0

	for _, query := range queries {
		urls, err := uc.discoverer.Search(ctx, query)
		if err != nil {
			log.Warn("search failed", zap.String("query", query), zap.Error(err))
			continue
		}

		for _, url := range urls {
			if uc.seen != nil {
				fresh, err := uc.seen.MarkSeen(ctx, url)
				if err != nil {
					return published, fmt.Errorf("mark seen: %w", err)
				}
				if !fresh {
					log.Debug("candidate already enqueued", zap.String("url", url))
					continue
				}
			}

			data, err := json.Marshal(entity.CandidateMessage{RunID: runID, URL: url, Query: query})
			if err != nil {
				log.Error("failed to marshal candidate", zap.String("url", url), zap.Error(err))
				continue
			}
			if err := uc.publisher.PublishCandidate(ctx, data); err != nil {
				return published, fmt.Errorf("publish candidate: %w", err)
			}
			published++
		}
		log.Info("query enqueued", zap.String("query", query), zap.Int("found", len(urls)))
	}

	log.Info("candidates enqueued", zap.Int("published", published))
	return published, nil
}
