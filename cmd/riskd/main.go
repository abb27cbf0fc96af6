package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/outbreak-risk-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/outbreak-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/outbreak-risk-service/internal/adapter/mapbox"
	"github.com/couchcryptid/outbreak-risk-service/internal/adapter/memory"
	"github.com/couchcryptid/outbreak-risk-service/internal/adapter/modelserver"
	"github.com/couchcryptid/outbreak-risk-service/internal/adapter/postgres"
	redisadapter "github.com/couchcryptid/outbreak-risk-service/internal/adapter/redis"
	"github.com/couchcryptid/outbreak-risk-service/internal/config"
	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
	"github.com/couchcryptid/outbreak-risk-service/internal/observability"
	"github.com/couchcryptid/outbreak-risk-service/internal/pipeline"
	"github.com/couchcryptid/outbreak-risk-service/internal/report"
	"github.com/couchcryptid/outbreak-risk-service/internal/scoring"
)

// store is the persistence surface shared by the postgres and memory drivers.
type store interface {
	pipeline.Recorder
	pipeline.AlertSource
	report.HistoryReader
	httpadapter.FieldReports
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []func() error

	// Initialize the history store.
	var st store
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pg, err := postgres.Open(ctx, cfg.DatabaseURL, clock)
		if err != nil {
			logger.Error("failed to open postgres store", "error", err)
			os.Exit(1)
		}
		closers = append(closers, pg.Close)
		st = pg
		logger.Info("postgres store ready")
	default:
		st = memory.NewStore(clock)
		logger.Warn("using in-memory store, history is lost on restart")
	}

	// Initialize the scorer (model server or rule-based fallback).
	var scorer domain.Scorer
	readiness := httpadapter.ReadinessChecks{httpadapter.ReadinessFunc(st.Ping)}
	switch cfg.ScorerMode {
	case config.ScorerModeHTTP:
		client := modelserver.NewClient(cfg.ScorerURL, cfg.ScorerTimeout, logger)
		scorer = client
		readiness = append(readiness, httpadapter.ReadinessFunc(client.Ping))
		logger.Info("model server scorer enabled", "url", cfg.ScorerURL)
	default:
		scorer = scoring.NewRuleScorer()
		logger.Info("rule-based scorer enabled")
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create geocoder cache", "error", err)
			os.Exit(1)
		}
		geocoder = cached
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	// Redis backs the read cache, live alerts and the relay cursor.
	var (
		cache       report.Cache
		broadcaster *redisadapter.Broadcaster
		cursor      pipeline.CursorStore = &pipeline.MemoryCursor{}
	)
	if cfg.RedisURL != "" {
		rdb, err := redisadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		closers = append(closers, rdb.Close)
		cache = redisadapter.NewCache(rdb)
		broadcaster = redisadapter.NewBroadcaster(rdb, logger)
		cursor = redisadapter.NewCursor(rdb)
		logger.Info("redis enabled", "cache_ttl", cfg.CacheTTL)
	} else {
		logger.Info("redis disabled, read cache and live alerts off")
	}

	aggregator := report.NewAggregator(st, cache, cfg.CacheTTL, geocoder, clock, logger, metrics)

	notifiers := pipeline.Notifiers{aggregator}
	deps := httpadapter.Deps{
		Reports:      aggregator,
		FieldReports: st,
	}
	if broadcaster != nil {
		notifiers = append(notifiers, broadcaster)
		deps.Live = broadcaster
	}
	deps.Predictor = pipeline.NewPredictor(scorer, st, notifiers, clock, logger, metrics, cfg.StoreWriteTimeout)

	// Start the Kafka alert relay when brokers are configured.
	var writer *kafkaadapter.Writer
	if cfg.RelayEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		relay := pipeline.NewRelay(st, writer, cursor, clock, logger, metrics, pipeline.RelayConfig{
			BatchSize:    cfg.RelayBatchSize,
			PollInterval: cfg.RelayPollInterval,
			SettleDelay:  cfg.RelaySettleDelay,
		})
		readiness = append(readiness, relay)

		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("alert relay error", "error", err)
			}
		}()
		logger.Info("kafka alert relay enabled", "topic", cfg.KafkaAlertTopic, "brokers", cfg.KafkaBrokers)
	}
	deps.Ready = readiness

	srv := httpadapter.NewServer(cfg.HTTPAddr, deps, cfg.CORSAllowedOrigins, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Error("close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
