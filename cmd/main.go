// hh-collector
//
// Collects vacancies of a fixed set of employers from the public hh.ru API
// into PostgreSQL and answers a few questions about them over a text menu.
//
//   - (no command) — sync once, then open the menu
//   - ingest       — sync once and exit
//   - menu         — open the menu over already stored data
//   - schedule     — sync now and every HH_REFRESH_INTERVAL_HOURS
//   - employer ID  — show hh.ru metadata for one employer
//   - status       — show the last sync summary recorded in Redis
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"jobmate/hh-collector/internal/config"
	"jobmate/hh-collector/internal/db"
	"jobmate/hh-collector/internal/logging"
	"jobmate/hh-collector/internal/notify"
	"jobmate/hh-collector/internal/scraper"
	"jobmate/hh-collector/internal/store"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds the long-lived handles of one process run. close releases them
// and must be deferred right after a successful bootstrap.
type app struct {
	cfg    *config.Config
	log    *logging.Logger
	pool   *pgxpool.Pool
	rdb    *redis.Client
	store  *store.Store
	worker *scraper.Worker
}

// bootstrap loads config, connects to PostgreSQL (creating the database and
// schema when missing) and optionally to Redis. Configuration errors are
// reported before any network or database activity.
func bootstrap(ctx context.Context, debug bool) (*app, error) {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	log := logging.New(level)
	a := &app{cfg: cfg, log: log}

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	created, err := db.EnsureDatabase(ctx, cfg.MaintenanceURL(), cfg.DBName)
	if err != nil {
		// The user may lack CREATEDB; connecting below tells whether it matters.
		log.Warn("Could not ensure database exists", "db", cfg.DBName, "error", err)
	} else if created {
		log.Info("Database created", "db", cfg.DBName)
	}

	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL(), 1)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	a.pool = pool
	log.Info("PostgreSQL connected", "host", cfg.DBHost, "db", cfg.DBName)

	a.store = store.New(pool)
	if err := a.store.EnsureSchema(ctx); err != nil {
		a.close()
		return nil, err
	}

	// ── Redis (optional) ─────────────────────────────────────────────────────
	var notifier scraper.Notifier
	if cfg.RedisURL != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, sync notifications disabled", "error", err)
		} else {
			a.rdb = rdb
			notifier = notify.NewRedisNotifier(rdb)
			log.Info("Redis connected")
		}
	}

	// ── Ingestion ────────────────────────────────────────────────────────────
	fetcher := scraper.NewHHFetcher(cfg.HH.BaseURL, log,
		scraper.WithTimeout(cfg.HH.Timeout),
		scraper.WithUserAgent(cfg.HH.UserAgent),
	)
	collector := scraper.NewCollector(fetcher, log)
	a.worker = scraper.NewWorker(a.store, collector, notifier, cfg.ExcludeTerms, log)

	return a, nil
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	_ = a.log.Sync()
}

// withApp runs fn with a bootstrapped app and always releases it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	debug, _ := cmd.Flags().GetBool("debug")
	ctx := cmd.Context()

	a, err := bootstrap(ctx, debug)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(ctx, a)
}
