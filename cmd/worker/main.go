package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prodimagery/product-imagery-service/internal/infra/config"
	"github.com/prodimagery/product-imagery-service/internal/infra/email"
	"github.com/prodimagery/product-imagery-service/internal/infra/ffmpeg"
	"github.com/prodimagery/product-imagery-service/internal/infra/framestore"
	"github.com/prodimagery/product-imagery-service/internal/infra/gemini"
	"github.com/prodimagery/product-imagery-service/internal/infra/metrics"
	miniostorage "github.com/prodimagery/product-imagery-service/internal/infra/minio"
	"github.com/prodimagery/product-imagery-service/internal/infra/postgres"
	"github.com/prodimagery/product-imagery-service/internal/infra/rabbitmq"
	"github.com/prodimagery/product-imagery-service/internal/infra/report"
	"github.com/prodimagery/product-imagery-service/internal/infra/tracing"
	"github.com/prodimagery/product-imagery-service/internal/infra/ytdlp"
	"github.com/prodimagery/product-imagery-service/internal/usecase"
	"github.com/prodimagery/product-imagery-service/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting product-imagery-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if collector unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint, "product-imagery-worker")
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// Artifact storage
	artifacts, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
		Bucket:    cfg.MinIOArtifactBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(artifacts.EnsureBucket(ctx), "ensure artifact bucket")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Frame store and pipeline collaborators
	store, err := framestore.New(cfg.OutputDir, cfg.PublicMount)
	fatalOnErr(err, "create frame store")

	directives, err := usecase.LoadDirectives(cfg.DirectivesFile)
	fatalOnErr(err, "load directives")

	analyzer, err := gemini.NewAnalyzer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	fatalOnErr(err, "create gemini analyzer")
	defer analyzer.Close()

	fetcher := ytdlp.NewFetcher(cfg.YtDlpBinary, cfg.YtDlpFormat, log)
	decoder := ffmpeg.NewDecoder(log)

	pipeline := usecase.NewPipeline(fetcher, decoder, analyzer, store, directives, log)

	// Worker use case
	repo := postgres.NewRunRepository(pool)
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)
	reporter := report.NewExcelWriter()

	uc := usecase.NewProcessRunUseCase(
		pipeline, repo, store, artifacts, reporter,
		statusPub, dlqPub, notifier,
		log,
		usecase.ProcessRunConfig{MaxRetries: cfg.MaxRetries},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQRequestQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("product-imagery-worker started, consuming run requests")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("product-imagery-worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
