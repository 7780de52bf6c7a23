package usecase

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/port"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VideoProcessor fingerprints a single url.
type VideoProcessor interface {
	Process(ctx context.Context, url string) (entity.Outcome, error)
}

// ReadQueries returns the non-blank lines of r, trimmed.
func ReadQueries(r io.Reader) ([]string, error) {
	var queries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			continue
		}
		queries = append(queries, q)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}
	return queries, nil
}

// RunQueriesUseCase searches every query and fingerprints the results one
// video at a time.
type RunQueriesUseCase struct {
	discoverer port.Discoverer
	processor  VideoProcessor
	reporter   port.RunReporter
	logger     *zap.Logger
}

// NewRunQueriesUseCase builds the keyword run. reporter may be nil.
func NewRunQueriesUseCase(
	discoverer port.Discoverer,
	processor VideoProcessor,
	reporter port.RunReporter,
	logger *zap.Logger,
) *RunQueriesUseCase {
	return &RunQueriesUseCase{
		discoverer: discoverer,
		processor:  processor,
		reporter:   reporter,
		logger:     logger,
	}
}

// Run stops early only when the store becomes unreachable or ctx is done; the
// summary collected so far is returned in both cases.
func (uc *RunQueriesUseCase) Run(ctx context.Context, queries []string) (*entity.RunSummary, error) {
	summary := entity.NewRunSummary(uuid.NewString())
	log := uc.logger.With(zap.String("run_id", summary.RunID))

	err := uc.runQueries(ctx, queries, summary, log)
	summary.Finish()

	log.Info("run finished",
		zap.Int("queries", summary.Queries),
		zap.Int("discovered", summary.Discovered),
		zap.Int("stored", summary.Stored),
		zap.Int("skipped", summary.SkippedTotal()),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	if uc.reporter != nil {
		if rerr := uc.reporter.ReportRun(ctx, summary); rerr != nil {
			log.Warn("failed to report run", zap.Error(rerr))
		}
	}
	return summary, err
}

func (uc *RunQueriesUseCase) runQueries(ctx context.Context, queries []string, summary *entity.RunSummary, log *zap.Logger) error {
	for _, query := range queries {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.Queries++
		qlog := log.With(zap.String("query", query))

		urls, err := uc.discoverer.Search(ctx, query)
		if err != nil {
			qlog.Warn("search failed", zap.Error(err))
			continue
		}
		summary.Discovered += len(urls)
		qlog.Info("videos found", zap.Int("count", len(urls)))

		if err := uc.ProcessURLs(ctx, urls, summary, qlog); err != nil {
			return err
		}
	}
	return nil
}

// ProcessURLs fingerprints urls in order and records every outcome in summary.
func (uc *RunQueriesUseCase) ProcessURLs(ctx context.Context, urls []string, summary *entity.RunSummary, log *zap.Logger) error {
	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Info("processing video",
			zap.String("url", url),
			zap.Int("remaining", len(urls)-i),
		)

		outcome, err := uc.processor.Process(ctx, url)
		summary.Record(outcome)
		if err != nil {
			return fmt.Errorf("process %s: %w", url, err)
		}
	}
	return nil
}
