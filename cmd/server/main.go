package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"geoflow/internal/enrich"
	"geoflow/internal/geocode"
	"geoflow/internal/ops"
	"geoflow/internal/platform/config"
	"geoflow/internal/platform/httpserver"
	"geoflow/internal/platform/logger"
	"geoflow/internal/platform/metrics"
	platformredis "geoflow/internal/platform/redis"
	"geoflow/internal/request"
	"geoflow/internal/user"
	"geoflow/internal/watch"
)

// main wires the enrichment pipeline: a change-event watcher feeding the
// reconciler runner, plus an ops-only HTTP surface. Business logic lives in
// the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]ops.Check{}

	var (
		users    user.Store
		memStore *user.MemoryStore
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pg := user.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("ensure postgres schema", "error", err)
			os.Exit(1)
		}
		users = pg
		checks["postgres"] = db.PingContext
	} else {
		log.Warn("DATABASE_URL not set, using in-memory user store")
		memStore = user.NewMemoryStore()
		users = memStore
	}

	var ledgerStore request.Store
	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		ledgerStore = request.NewRedisStore(rdb.Client)
		checks["redis"] = rdb.Health
	} else {
		log.Warn("REDIS_URL not set, using in-memory request ledger")
		ledgerStore = request.NewMemoryStore()
	}
	ledger := request.NewLedger(ledgerStore)

	g, gctx := errgroup.WithContext(ctx)

	// Missing credential is a fatal precondition for enrichment: every
	// upstream call would fail without request-id context to report under.
	// The ops surface still runs so the deployment stays observable.
	if cfg.GeocodeAPIKey == "" {
		log.Error("geocode API key not configured, enrichment pipeline disabled")
	} else {
		geocoder := geocode.NewHTTPClient(cfg.GeocodeBaseURL, cfg.GeocodeAPIKey, &http.Client{}, m)
		reconciler := enrich.NewReconciler(users, ledger, geocoder, log, m)

		var watcher watch.Watcher
		if cfg.WatchMode == "memory" {
			if memStore == nil {
				log.Error("WATCH_MODE=memory requires the in-memory user store")
				os.Exit(1)
			}
			watcher = watch.NewMemoryWatcher(memStore)
		} else {
			kw, err := watch.NewKafkaWatcher(ctx, watch.KafkaConfig{
				Brokers: cfg.KafkaBrokers,
				Topic:   cfg.KafkaTopic,
				Group:   cfg.KafkaGroup,
			}, log)
			if err != nil {
				log.Error("start kafka watcher", "error", err)
				os.Exit(1)
			}
			defer kw.Close()
			watcher = kw
		}

		runner := enrich.NewRunner(reconciler, ledger, watcher.Events(), log, m, cfg.MaxConcurrent)
		g.Go(func() error { return ignoreCanceled(watcher.Run(gctx)) })
		g.Go(func() error { return ignoreCanceled(runner.Run(gctx)) })
	}

	srv := httpserver.New(cfg.Addr, ops.NewRouter(ops.New(log, checks)))
	g.Go(func() error {
		log.Info("starting geoflow", "addr", cfg.Addr, "watchMode", cfg.WatchMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
