package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiapx/fiapx-fingerprint-service/internal/app"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/config"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/metrics"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/rabbitmq"
	"github.com/fiapx/fiapx-fingerprint-service/internal/usecase"
	"github.com/fiapx/fiapx-fingerprint-service/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	var logOpts []logger.Option
	if cfg.LogFile != "" {
		logOpts = append(logOpts, logger.WithFile(cfg.LogFile))
	}
	log, err := logger.New(cfg.LogLevel, logOpts...)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting fiapx-fingerprint-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := app.New(cfg, log)
	defer a.Close()

	// Tracing (non-fatal if the collector is unavailable)
	a.InitTracing(ctx, "fiapx-fingerprint-worker")

	store, err := a.OpenStore(ctx)
	fatalOnErr(err, "open fingerprint store")

	pub, err := a.ConnectBroker()
	fatalOnErr(err, "connect to rabbitmq for publisher")

	fingerprinter, err := a.NewFingerprinter(ctx, store, rabbitmq.NewStatusPublisher(pub))
	fatalOnErr(err, "build fingerprint pipeline")

	handler := usecase.NewHandleCandidateUseCase(
		fingerprinter,
		rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ),
		log,
	)

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		_, err := store.Count(ctx)
		return err
	}, log)

	consumer, err := a.NewConsumer(handler.Execute)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("fiapx-fingerprint-worker started, consuming candidates")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	log.Info("fiapx-fingerprint-worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
