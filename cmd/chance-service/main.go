package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/chance-engine/internal/chance-service/account"
	"github.com/radieske/chance-engine/internal/chance-service/catalog"
	"github.com/radieske/chance-engine/internal/chance-service/configprovider"
	"github.com/radieske/chance-engine/internal/chance-service/engine"
	"github.com/radieske/chance-engine/internal/chance-service/history"
	httpapi "github.com/radieske/chance-engine/internal/chance-service/http"
	"github.com/radieske/chance-engine/internal/chance-service/publisher"
	"github.com/radieske/chance-engine/internal/chance-service/settlement"
	"github.com/radieske/chance-engine/internal/chance-service/ws"
	"github.com/radieske/chance-engine/internal/shared/auth"
	"github.com/radieske/chance-engine/internal/shared/cache"
	"github.com/radieske/chance-engine/internal/shared/config"
	"github.com/radieske/chance-engine/internal/shared/db"
	"github.com/radieske/chance-engine/internal/shared/kafka"
	"github.com/radieske/chance-engine/internal/shared/logger"
	"github.com/radieske/chance-engine/internal/shared/metrics"
	wrepo "github.com/radieske/chance-engine/internal/wallet-service/repo"
	"github.com/radieske/chance-engine/pkg/contracts/events"
)

const serviceName = "chance-service"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// inicia logger
	log, err := logger.New(serviceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	log = logger.WithFile(log, cfg.LogFile)
	defer log.Sync()
	log.Info("starting service",
		zap.String("service", serviceName),
		zap.String("env", cfg.Env),
		zap.String("account_backend", cfg.AccountBackend),
	)

	metrics.RegisterChance()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var checks []metrics.HealthFunc

	// Postgres: wallet (backend postgres), configs, catálogo e histórico
	var pg *sql.DB
	if cfg.AccountBackend != "memory" {
		pg, err = db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		if cfg.Env == "local" || cfg.Env == "dev" {
			if err := db.Migrate(ctx, pg); err != nil {
				log.Fatal("migrate", zap.Error(err))
			}
		}
		checks = append(checks, pg.PingContext)
		log.Info("postgres connected")
	}

	// Redis: cache de config, debounce, rate limit e pub/sub de rodadas
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		checks = append(checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		log.Info("redis connected")
	}

	// Armazenamento de saldo
	var store settlement.AccountStore
	switch cfg.AccountBackend {
	case "memory":
		store = account.NewMemoryStore().WithOpeningBalance(cfg.OpeningBalance)
	case "http":
		store = account.NewHTTPStore(cfg.WalletURL)
	default:
		store = account.NewPostgresStore(wrepo.NewPostgres(pg))
	}

	// Configuração dos jogos: Postgres com read-through no Redis
	var cfgStore configprovider.Store
	if pg != nil {
		cfgStore = configprovider.NewPostgresStore(pg)
		if rdb != nil {
			cfgStore = configprovider.NewRedisCache(rdb, cfg.ConfigCacheTTL, cfgStore, log)
		}
	}
	provider := configprovider.New(cfgStore, log)
	provider.OnFallback = func(gt engine.GameType, _ string) {
		metrics.ConfigFallbacks.WithLabelValues(string(gt)).Inc()
	}

	// Catálogo de assets
	var assets settlement.AssetCatalog = catalog.NewMemory(catalog.DefaultAssets()...)
	if pg != nil {
		assets = catalog.NewPostgres(pg)
	}

	// WebSocket hub
	hub := ws.NewHub(log, ws.AllowOrigins(cfg.CORSOrigin))
	hub.OnConnections = func(n int) { metrics.WSConnections.Set(float64(n)) }

	// Eventos de rodada: Kafka -> worker -> Redis -> hub quando disponíveis;
	// sem eles, o hub e o histórico em memória recebem direto do coordenador.
	var notifiers publisher.Fanout
	var historyReader httpapi.HistoryReader
	var pub *publisher.KafkaPublisher
	if cfg.KafkaBrokers != "" {
		if cfg.Env == "local" || cfg.Env == "dev" {
			if err := kafka.EnsureTopics(cfg.KafkaBrokers, log, cfg.TopicRoundEvents, cfg.TopicRoundEventsDLQ); err != nil {
				log.Warn("ensure topics", zap.Error(err))
			}
		}
		writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundEvents)
		pub = publisher.NewKafkaPublisher(writer, log, 4096)
		pub.OnDropped = func(events.RoundEvent) { metrics.EventsDropped.Inc() }
		pub.OnError = func(error) { metrics.EventsDropped.Inc() }
		notifiers = append(notifiers, pub)
		log.Info("kafka writer ready", zap.String("topic", cfg.TopicRoundEvents))
	}
	if pub != nil && rdb != nil {
		ws.StartRedisSubscriber(ctx, rdb, cfg.RedisRoundChannel, hub, log)
	} else {
		notifiers = append(notifiers, hub)
	}
	if pub != nil && pg != nil {
		historyReader = &history.ReadRepo{DB: pg}
		if rdb != nil && cfg.HistoryCacheTTL > 0 {
			historyReader = history.NewCachedReader(historyReader, rdb, cfg.HistoryCacheTTL, log)
		}
	} else {
		mem := history.NewMemory(200)
		notifiers = append(notifiers, mem)
		historyReader = mem
	}

	deps := settlement.Deps{
		Store:    store,
		Catalog:  assets,
		Notifier: notifiers,
		Log:      log,
		Hooks: settlement.Hooks{
			OnBet: func(gt engine.GameType, amount int64) {
				metrics.BetsPlaced.WithLabelValues(string(gt)).Inc()
				metrics.BetAmount.WithLabelValues(string(gt)).Add(float64(amount))
			},
			OnSettled: func(gt engine.GameType, result string, payout int64) {
				metrics.RoundsSettled.WithLabelValues(string(gt), result).Inc()
				metrics.Payouts.WithLabelValues(string(gt)).Add(float64(payout))
			},
			OnCompensation: func(gt engine.GameType, stage string, ok bool) {
				status := "ok"
				if !ok {
					status = "failed"
				}
				metrics.Compensations.WithLabelValues(string(gt), stage, status).Inc()
			},
			OnDuplicate: func(gt engine.GameType) {
				metrics.DuplicateSubmissions.WithLabelValues(string(gt)).Inc()
			},
		},
	}
	if cfg.DebounceBackend == "redis" && rdb != nil {
		deps.Debouncer = settlement.NewRedisDebouncer(rdb)
	}

	registry := settlement.NewRegistry(provider, deps)
	registry.OnSessions = func(n int) { metrics.ActiveSessions.Set(float64(n)) }
	go registry.RunSweeper(ctx, time.Minute, cfg.SessionIdleTTL)

	api := &httpapi.API{
		Sessions: registry,
		Configs:  provider,
		History:  historyReader,
		Hub:      hub,
		Auth:     auth.NewVerifier(cfg.JWTSecret),
		Log:      log,
	}
	if rdb != nil {
		api.Limiter = cache.NewRateLimiter(rdb)
	}

	// publisher roda até o shutdown e drena a fila antes de fechar o writer
	pubDone := make(chan struct{})
	pubCtx, stopPub := context.WithCancel(context.Background())
	if pub != nil {
		go func() {
			pub.Run(pubCtx)
			close(pubDone)
		}()
	} else {
		close(pubDone)
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, metrics.Checks(checks...))

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = apiSrv.Shutdown(shutdownCtx)

	// resolve rodadas abertas antes de parar o publisher
	if n := registry.Sweep(shutdownCtx, 0); n > 0 {
		log.Info("open sessions reset", zap.Int("count", n))
	}

	stopPub()
	<-pubDone
	if pub != nil {
		_ = pub.Close()
	}
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("chance-service stopped")
}
