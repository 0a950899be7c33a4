package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hooplab/achievements-worker/internal/badge"
	"github.com/hooplab/achievements-worker/internal/config"
	"github.com/hooplab/achievements-worker/internal/handlers"
	"github.com/hooplab/achievements-worker/internal/store"
	"github.com/hooplab/achievements-worker/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.Env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalw("invalid database url", "error", err)
	}
	poolCfg.MaxConns = 20
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		sugar.Fatalw("failed to create connection pool", "error", err)
	}
	defer pool.Close()

	objectStore, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		sugar.Fatalw("failed to create object store client", "error", err)
	}

	var ruleCache store.RuleCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			sugar.Fatalw("invalid redis url", "error", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		ruleCache = store.NewRedisRuleCache(redisClient)
		sugar.Infow("rule cache enabled", "ttl", cfg.RuleCacheTTL)
	}

	queue := store.NewQueue(pool, cfg.MaxAttempts, cfg.LeaseTTL, sugar)
	counters := store.NewCounters(pool, sugar)
	registry := store.NewRegistry(pool, ruleCache, cfg.RuleCacheTTL, sugar)
	ledger := store.NewLedger(pool, sugar)
	events := store.NewEvents(pool, sugar)
	renderer := badge.NewRenderer(objectStore, cfg.S3Bucket, cfg.PublicBaseURL, sugar)

	pipeline := worker.NewPipeline(counters, registry, ledger, renderer, sugar)
	supervisor := worker.NewSupervisor(queue, events, pipeline, cfg.BatchSize, cfg.PollInterval, sugar)

	handler := handlers.New(handlers.Config{
		Queue:  queue,
		Awards: ledger,
		Logger: logger,
	})
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler.Router(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return supervisor.Run(gctx)
	})

	g.Go(func() error {
		sugar.Infow("ops server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		sugar.Errorw("worker exited with error", "error", err)
	}
	sugar.Info("worker stopped")
}
