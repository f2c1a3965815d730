package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	rcache "github.com/radieske/chance-engine/internal/round-events/cache"
	"github.com/radieske/chance-engine/internal/round-events/consumer"
	"github.com/radieske/chance-engine/internal/round-events/pubsub"
	"github.com/radieske/chance-engine/internal/round-events/repository"
	"github.com/radieske/chance-engine/internal/shared/cache"
	"github.com/radieske/chance-engine/internal/shared/config"
	"github.com/radieske/chance-engine/internal/shared/db"
	"github.com/radieske/chance-engine/internal/shared/kafka"
	"github.com/radieske/chance-engine/internal/shared/logger"
	"github.com/radieske/chance-engine/internal/shared/metrics"
)

const (
	serviceName = "round-events-worker"
	groupID     = "round-events-worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(serviceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	log = logger.WithFile(log, cfg.LogFile)
	defer log.Sync()

	metrics.RegisterWorker()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Postgres: read model round_history
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()
	if cfg.Env == "local" || cfg.Env == "dev" {
		if err := db.Migrate(ctx, pg); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		if err := kafka.EnsureTopics(cfg.KafkaBrokers, log, cfg.TopicRoundEvents, cfg.TopicRoundEventsDLQ); err != nil {
			log.Warn("ensure topics", zap.Error(err))
		}
	}

	// Redis: repasse dos eventos para o WebSocket do chance-service
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicRoundEvents, groupID)
	defer reader.Close()

	var dlq *kafkago.Writer
	if cfg.TopicRoundEventsDLQ != "" {
		dlq = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundEventsDLQ)
		defer dlq.Close()
	}

	p := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Repo:        repository.NewPostgresRepo(pg),
		Broadcaster: pubsub.NewRedisBroadcaster(rdb),
		Channel:     cfg.RedisRoundChannel,
		Cache:       rcache.NewHistoryCache(rdb),
		MaxAttempts: 3,
		Backoff:     200 * time.Millisecond,

		OnConsumed:  metrics.WorkerConsumed.Inc,
		OnPersist:   metrics.WorkerPersisted.Inc,
		OnBroadcast: metrics.WorkerBroadcast.Inc,
		OnError:     func(stage string) { metrics.WorkerErrors.WithLabelValues(stage).Inc() },
	}
	// interface nil se não houver DLQ
	if dlq != nil {
		p.DLQ = dlq
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, metrics.Checks(
		pg.PingContext,
		func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	))

	log.Info("round-events-worker started",
		zap.String("consume", cfg.TopicRoundEvents),
		zap.String("dlq", cfg.TopicRoundEventsDLQ),
		zap.String("channel", cfg.RedisRoundChannel),
	)

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("processor stopped", zap.Error(err))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("round-events-worker stopped")
}
