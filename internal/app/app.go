package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/port"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/config"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/email"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/ffmpeg"
	miniostorage "github.com/fiapx/fiapx-fingerprint-service/internal/infra/minio"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/onnx"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/postgres"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/rabbitmq"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/redis"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/sqlite"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/tracing"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/ytdlp"
	"github.com/fiapx/fiapx-fingerprint-service/internal/usecase"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// App builds infrastructure from Config on demand and releases everything it
// opened on Close, in reverse order.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	closers []func() error
}

func New(cfg *config.Config, logger *zap.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// InitTracing installs the OTLP exporter when an endpoint is configured.
// Failures are logged and tracing stays disabled.
func (a *App) InitTracing(ctx context.Context, serviceName string) {
	tp, err := tracing.InitTracer(ctx, a.cfg.JaegerEndpoint, serviceName)
	if err != nil {
		a.logger.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		return
	}
	if tp != nil {
		a.onClose(func() error { return tp.Shutdown(context.Background()) })
	}
}

func (a *App) OpenStore(ctx context.Context) (port.FingerprintStore, error) {
	switch a.cfg.DatabaseDriver {
	case "postgres":
		if err := postgres.RunMigrations(a.cfg.DatabaseURL, a.cfg.MigrationsDir); err != nil {
			return nil, err
		}
		pool, err := pgxpool.New(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.onClose(func() error { pool.Close(); return nil })
		a.logger.Info("fingerprint store ready", zap.String("driver", "postgres"))
		return postgres.NewFingerprintRepository(pool), nil
	default:
		repo, err := sqlite.Open(ctx, a.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.onClose(repo.Close)
		a.logger.Info("fingerprint store ready",
			zap.String("driver", "sqlite"),
			zap.String("path", a.cfg.SQLitePath),
		)
		return repo, nil
	}
}

func (a *App) YTDLP() *ytdlp.Client {
	return ytdlp.NewClient(a.cfg.YTDLPPath, a.cfg.SearchLimit, a.logger)
}

func (a *App) LoadExtractor() (*onnx.Extractor, error) {
	extractor, err := onnx.NewExtractor(onnx.ExtractorConfig{
		ModelPath:    a.cfg.ModelPath,
		LibraryPath:  a.cfg.ONNXRuntimeLib,
		InputName:    a.cfg.ModelInputName,
		OutputName:   a.cfg.ModelOutputName,
		InputSize:    a.cfg.ModelInputSize,
		OutputShape:  a.cfg.ModelOutputShape,
		Layout:       onnx.Layout(a.cfg.ModelLayout),
		ChannelOrder: onnx.ChannelOrder(a.cfg.ModelChannelOrder),
	}, a.logger)
	if err != nil {
		return nil, err
	}
	a.onClose(extractor.Close)
	return extractor, nil
}

// Archive returns nil when no MinIO endpoint is configured.
func (a *App) Archive(ctx context.Context) (*miniostorage.FeatureArchive, error) {
	if a.cfg.MinIOEndpoint == "" {
		return nil, nil
	}
	archive, err := miniostorage.NewFeatureArchive(miniostorage.ArchiveConfig{
		Endpoint:  a.cfg.MinIOEndpoint,
		AccessKey: a.cfg.MinIOAccessKey,
		SecretKey: a.cfg.MinIOSecretKey,
		UseSSL:    a.cfg.MinIOUseSSL,
		Bucket:    a.cfg.MinIOFeatureBucket,
	})
	if err != nil {
		return nil, err
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}

// NewFingerprinter assembles the per-video pipeline. status may be nil.
func (a *App) NewFingerprinter(ctx context.Context, store port.FingerprintStore, status port.StatusPublisher) (*usecase.FingerprintVideoUseCase, error) {
	extractor, err := a.LoadExtractor()
	if err != nil {
		return nil, err
	}

	var archive port.FeatureArchive
	if minioArchive, err := a.Archive(ctx); err != nil {
		return nil, err
	} else if minioArchive != nil {
		archive = minioArchive
	}

	yt := a.YTDLP()
	return usecase.NewFingerprintVideoUseCase(
		yt, yt,
		ffmpeg.NewDecoder(a.cfg.FFmpegPath, a.cfg.ProbeTimeout, a.logger),
		usecase.NewSegmentProcessor(extractor, a.logger),
		store, archive, status,
		a.logger,
		usecase.FingerprintVideoConfig{
			TempDir:              a.cfg.TempDir,
			MaxLengthSeconds:     a.cfg.MaxVideoLengthSeconds,
			SegmentLengthSeconds: a.cfg.SegmentLengthSeconds,
			BatchSize:            a.cfg.BatchSize,
		},
	), nil
}

func (a *App) Topology() rabbitmq.Topology {
	return rabbitmq.Topology{
		Exchange:       a.cfg.RabbitMQExchange,
		CandidateQueue: a.cfg.RabbitMQCandidateQueue,
		StatusQueue:    a.cfg.RabbitMQStatusQueue,
		DLQ:            a.cfg.RabbitMQDLQ,
	}
}

// ConnectBroker dials RabbitMQ and returns a publisher with the topology declared.
func (a *App) ConnectBroker() (*rabbitmq.Publisher, error) {
	conn, err := amqp.Dial(a.cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	a.onClose(conn.Close)

	pub, err := rabbitmq.NewPublisher(conn, a.Topology())
	if err != nil {
		return nil, fmt.Errorf("create rabbitmq publisher: %w", err)
	}
	a.onClose(pub.Close)
	return pub, nil
}

func (a *App) NewConsumer(handler rabbitmq.MessageHandler) (*rabbitmq.Consumer, error) {
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         a.cfg.RabbitMQURL,
		Topology:    a.Topology(),
		Prefetch:    a.cfg.RabbitMQPrefetch,
		WorkerCount: a.cfg.WorkerCount,
		BaseDelayMs: a.cfg.RetryBaseDelayMs,
	}, handler, a.logger)
	if err != nil {
		return nil, err
	}
	a.onClose(consumer.Close)
	return consumer, nil
}

// SeenSet returns nil when no redis address is configured.
func (a *App) SeenSet(ctx context.Context) (port.SeenSet, error) {
	if a.cfg.RedisAddr == "" {
		return nil, nil
	}
	seen, err := redis.Connect(ctx, a.cfg.RedisAddr, a.cfg.RedisSeenSet)
	if err != nil {
		return nil, err
	}
	a.onClose(seen.Close)
	return seen, nil
}

// Reporter returns nil when no SMTP host is configured.
func (a *App) Reporter() port.RunReporter {
	if a.cfg.SMTPHost == "" {
		return nil
	}
	return email.NewSMTPReporter(email.SMTPConfig{
		Host:     a.cfg.SMTPHost,
		Port:     a.cfg.SMTPPort,
		Username: a.cfg.SMTPUser,
		Password: a.cfg.SMTPPassword,
		From:     a.cfg.SMTPFrom,
		To:       a.cfg.NotificationTo,
	}, a.logger)
}
