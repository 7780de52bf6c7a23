package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/port"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type FingerprintVideoUseCase struct {
	metadata   port.MetadataFetcher
	downloader port.Downloader
	opener     port.FrameSourceOpener
	processor  *SegmentProcessor
	store      port.FingerprintStore
	archive    port.FeatureArchive
	publisher  port.StatusPublisher
	logger     *zap.Logger
	cfg        FingerprintVideoConfig

	inFlight sync.Map
}

type FingerprintVideoConfig struct {
	TempDir              string
	MaxLengthSeconds     int
	SegmentLengthSeconds float64
	BatchSize            int
}

// NewFingerprintVideoUseCase wires the pipeline driver. archive and publisher
// are optional and may be nil.
func NewFingerprintVideoUseCase(
	metadata port.MetadataFetcher,
	downloader port.Downloader,
	opener port.FrameSourceOpener,
	processor *SegmentProcessor,
	store port.FingerprintStore,
	archive port.FeatureArchive,
	publisher port.StatusPublisher,
	logger *zap.Logger,
	cfg FingerprintVideoConfig,
) *FingerprintVideoUseCase {
	return &FingerprintVideoUseCase{
		metadata:   metadata,
		downloader: downloader,
		opener:     opener,
		processor:  processor,
		store:      store,
		archive:    archive,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// Process runs the pipeline for one url. Per-video problems end as a skipped
// outcome with a nil error. An unreachable store or a cancelled ctx is
// returned as an error.
func (uc *FingerprintVideoUseCase) Process(ctx context.Context, url string) (entity.Outcome, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "FingerprintVideoUseCase.Process")
	defer span.End()
	span.SetAttributes(attribute.String("video.url", url))

	outcome := entity.NewOutcome(url)
	log := uc.logger.With(zap.String("url", url))

	if _, busy := uc.inFlight.LoadOrStore(url, struct{}{}); busy {
		outcome.MarkSkipped(entity.SkipInProgress, "url is already being processed")
		uc.finish(ctx, outcome, log)
		return *outcome, nil
	}
	defer uc.inFlight.Delete(url)

	metrics.ActiveVideos.Inc()
	defer metrics.ActiveVideos.Dec()

	err := uc.run(ctx, outcome, log)
	if err != nil {
		outcome.MarkFailed(err.Error())
		span.RecordError(err)
	}
	uc.finish(ctx, outcome, log)
	return *outcome, err
}

func (uc *FingerprintVideoUseCase) run(ctx context.Context, outcome *entity.Outcome, log *zap.Logger) error {
	tracer := otel.Tracer("usecase")
	url := outcome.URL

	if err := ctx.Err(); err != nil {
		return err
	}

	// Length check
	ctx2, spanMeta := tracer.Start(ctx, "fetch_metadata")
	meta, err := uc.metadata.Fetch(ctx2, url)
	spanMeta.End()
	if err != nil {
		return skip(ctx, outcome, entity.SkipMetadataUnavailable, err)
	}
	log.Info("video metadata",
		zap.String("title", meta.Title),
		zap.Int("length", meta.LengthSeconds),
		zap.Int64("views", meta.ViewCount),
		zap.Bool("is_live", meta.IsLive),
		zap.String("watch_url", meta.WatchURL),
	)
	if meta.IsLive || meta.LengthSeconds <= 0 {
		outcome.MarkSkipped(entity.SkipUnknownLength, "video has no declared length")
		return nil
	}
	if meta.LengthSeconds > uc.cfg.MaxLengthSeconds {
		outcome.MarkSkipped(entity.SkipTooLong,
			fmt.Sprintf("length %ds exceeds %ds", meta.LengthSeconds, uc.cfg.MaxLengthSeconds))
		return nil
	}
	outcome.Advance(entity.StageLengthChecked)

	workDir := filepath.Join(uc.cfg.TempDir, uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		log.Error("could not create work dir", zap.String("dir", workDir), zap.Error(err))
		outcome.MarkSkipped(entity.SkipDownloadFailed, fmt.Sprintf("create workdir: %v", err))
		return nil
	}
	defer uc.cleanup(outcome, workDir, log)

	// Download
	dlStart := time.Now()
	ctx3, spanDl := tracer.Start(ctx, "download_video")
	dl := uc.downloader.Download(ctx3, url, workDir)
	spanDl.End()
	if !dl.OK() {
		log.Warn("download failed", zap.String("failure", string(dl.Failure)), zap.String("detail", dl.Detail))
		return skip(ctx, outcome, entity.SkipDownloadFailed, dl.Err())
	}
	metrics.StageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())
	outcome.Advance(entity.StageDownloaded)

	// Dedup
	exists, err := uc.store.Exists(ctx, url)
	if err != nil {
		if errors.Is(err, entity.ErrStoreUnavailable) {
			return fmt.Errorf("check existing fingerprint: %w", err)
		}
		log.Warn("store rejected lookup", zap.Error(err))
		return skip(ctx, outcome, entity.SkipStoreRejected, err)
	}
	if exists {
		outcome.MarkSkipped(entity.SkipAlreadyStored, "video already in store")
		return nil
	}
	outcome.Advance(entity.StageDedupChecked)

	// Segment
	source, err := uc.opener.Open(ctx, dl.Path)
	if err != nil {
		log.Warn("could not open video", zap.Error(err))
		return skip(ctx, outcome, entity.SkipDecodeFailed, err)
	}
	defer source.Close()

	info := source.Info()
	segments, err := Segments(info.TotalFrames, info.FPS, uc.cfg.SegmentLengthSeconds)
	if err != nil {
		outcome.MarkSkipped(entity.SkipInvalidSegmentation, err.Error())
		return nil
	}
	log.Info("video segmented",
		zap.Float64("fps", info.FPS),
		zap.Float64("duration", info.Duration),
		zap.Int("total_frames", info.TotalFrames),
		zap.Int("segments", len(segments)),
	)
	outcome.Advance(entity.StageSegmented)

	// Extract
	exStart := time.Now()
	ctx4, spanEx := tracer.Start(ctx, "extract_features")
	embeddings := make([]entity.FeatureVector, 0, info.TotalFrames)
	for _, seg := range segments {
		features, err := uc.processor.Process(ctx4, source, seg, uc.cfg.BatchSize)
		if err != nil {
			spanEx.End()
			log.Warn("feature extraction failed", zap.Error(err))
			return skip(ctx, outcome, entity.SkipExtractionFailed, err)
		}
		embeddings = append(embeddings, features...)
	}
	spanEx.SetAttributes(attribute.Int("frames", len(embeddings)))
	spanEx.End()
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())
	if len(embeddings) == 0 {
		outcome.MarkSkipped(entity.SkipNoFrames, "no frame could be decoded")
		return nil
	}
	outcome.Advance(entity.StageExtracted)

	// Store
	stStart := time.Now()
	record := entity.NewVideoRecord(url, meta, embeddings)
	if err := uc.store.Insert(ctx, record); err != nil {
		if errors.Is(err, entity.ErrDuplicateKey) {
			outcome.MarkSkipped(entity.SkipAlreadyStored, "video stored concurrently")
			return nil
		}
		if errors.Is(err, entity.ErrStoreUnavailable) {
			return fmt.Errorf("insert fingerprint: %w", err)
		}
		log.Warn("store rejected fingerprint", zap.Error(err))
		return skip(ctx, outcome, entity.SkipStoreRejected, err)
	}
	metrics.StageDuration.WithLabelValues("store").Observe(time.Since(stStart).Seconds())
	outcome.Advance(entity.StageStored)
	outcome.MarkStored(len(embeddings))

	uc.archiveFeatures(ctx, record, log)
	return nil
}

// skip ends the run with a skipped outcome. A failure caused by cancellation
// is returned instead so the caller can retry the url later.
func skip(ctx context.Context, outcome *entity.Outcome, reason entity.SkipReason, cause error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	outcome.MarkSkipped(reason, cause.Error())
	return nil
}

func (uc *FingerprintVideoUseCase) archiveFeatures(ctx context.Context, record *entity.VideoRecord, log *zap.Logger) {
	if uc.archive == nil {
		return
	}
	blob, err := entity.EncodeEmbeddings(record.Embeddings)
	if err == nil {
		err = uc.archive.PutFeatures(ctx, record.URL, blob)
	}
	if err != nil {
		log.Warn("failed to archive features", zap.Error(err))
	}
}

// cleanup removes the downloaded file. It runs after a successful insert so
// a crash in between leaves an orphan file, never a missing record.
func (uc *FingerprintVideoUseCase) cleanup(outcome *entity.Outcome, workDir string, log *zap.Logger) {
	if err := os.RemoveAll(workDir); err != nil {
		log.Warn("failed to remove work dir", zap.String("dir", workDir), zap.Error(err))
		return
	}
	if outcome.Status == entity.OutcomeStored {
		outcome.Advance(entity.StageCleanedUp)
	}
}

func (uc *FingerprintVideoUseCase) finish(ctx context.Context, outcome *entity.Outcome, log *zap.Logger) {
	metrics.VideosProcessedTotal.WithLabelValues(string(outcome.Status)).Inc()

	fields := []zap.Field{
		zap.String("status", string(outcome.Status)),
		zap.String("stage", string(outcome.Stage)),
		zap.Duration("elapsed", outcome.Duration()),
	}
	switch outcome.Status {
	case entity.OutcomeStored:
		log.Info("fingerprint stored", append(fields, zap.Int("frame_count", outcome.FrameCount))...)
	case entity.OutcomeSkipped:
		metrics.VideosSkippedTotal.WithLabelValues(string(outcome.Reason)).Inc()
		log.Info("video skipped", append(fields,
			zap.String("reason", string(outcome.Reason)),
			zap.String("detail", outcome.Detail),
		)...)
	default:
		log.Error("video failed", append(fields, zap.String("detail", outcome.Detail))...)
	}

	uc.publishStatus(ctx, outcome, log)
}

func (uc *FingerprintVideoUseCase) publishStatus(ctx context.Context, outcome *entity.Outcome, log *zap.Logger) {
	if uc.publisher == nil {
		return
	}
	data, err := json.Marshal(entity.NewStatusMessage(*outcome))
	if err != nil {
		log.Error("failed to marshal status", zap.Error(err))
		return
	}
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
