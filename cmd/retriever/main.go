// Command retriever serves the in-memory retrieval engine over HTTP.
//
// At startup it indexes the seed corpus (a YAML file, or the built-in corpus
// when none is configured) and, when enabled, the PostgreSQL documents
// table. It then optionally follows document change events on Kafka,
// caches search results in Redis, and publishes search analytics for
// cmd/analytics to aggregate.
//
// Usage:
//
//	go run ./cmd/retriever [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/cache"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/docevents"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/handler"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/source"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting retrieval service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	engine := retriever.New(retriever.WithMetrics(m))
	checker := health.NewChecker()

	var seed source.Source = source.Embedded{}
	if cfg.Retriever.SeedFile != "" {
		seed = source.File{Path: cfg.Retriever.SeedFile}
	}
	seedIDs, err := source.Load(ctx, engine, seed)
	if err != nil {
		slog.Error("failed to load seed corpus", "source", seed.Name(), "error", err)
		os.Exit(1)
	}
	if file, ok := seed.(source.File); ok && cfg.Retriever.WatchSeed {
		watcher := source.NewWatcher(file, engine, seedIDs, 0)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Error("seed watcher error", "error", err)
			}
		}()
	}

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if _, err := source.Load(ctx, engine, source.Postgres{DB: db.DB, Table: db.Table()}); err != nil {
			slog.Error("failed to load documents from postgres", "error", err)
			os.Exit(1)
		}
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := db.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	var tracker analytics.Tracker
	if cfg.Kafka.Enabled {
		// A fresh group per process with no commits replays the whole
		// topic on every start, rebuilding the in-memory corpus.
		docConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentEvents, docevents.HandleMessage(engine), kafka.ConsumerOptions{
			GroupID:       cfg.Kafka.ConsumerGroup + "-" + uuid.NewString(),
			FromBeginning: true,
			SkipCommit:    true,
		})
		go func() {
			if err := docConsumer.Start(ctx); err != nil {
				slog.Error("document consumer error", "error", err)
			}
		}()
		slog.Info("document consumer started", "topic", cfg.Kafka.Topics.DocumentEvents)

		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, 0, 0, 0)
		// Detached from the signal so events from requests drained during
		// shutdown are still flushed by Close.
		collector.Start(context.WithoutCancel(ctx))
		defer collector.Close()
		tracker = collector
		slog.Info("search analytics enabled", "topic", cfg.Kafka.Topics.SearchEvents)
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(cache.NewGuardedStore(redisClient, 0, m), cfg.Redis.CacheTTL, m)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
			checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
				if err := redisClient.Ping(ctx); err != nil {
					return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
		}
	}

	checker.Register("engine", func(ctx context.Context) health.ComponentHealth {
		stats := engine.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", stats.TotalDocuments, stats.UniqueTerms),
		}
	})

	h := handler.New(engine, cfg.Retriever, queryCache, tracker, m)
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		go pruneLimiter(ctx, limiter)
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// shutdownDone closes once in-flight requests have finished, so deferred
	// cleanup never runs under a live handler.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("retrieval service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone

	slog.Info("retrieval service stopped")
}

func pruneLimiter(ctx context.Context, l *middleware.Limiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Prune(); n > 0 {
				slog.Debug("rate limiter pruned", "clients", n)
			}
		}
	}
}
