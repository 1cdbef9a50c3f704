// cmd/web/main.go
//
// visitlog – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Load configuration (.env → conf/global.yaml → VISITLOG_* env).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Resolve a `vault:` database password, then open the MySQL pool.
//
//  4. Open the GeoLite2 City database, or run without geolocation.
//
//  5. Build the root router:
//
//     • request id, access log, panic recovery, and security headers
//     • optional HTTPS enforcement (skips localhost)
//     • client-IP and user-agent enrichment
//     • /metrics for Prometheus
//     • components (visits API, admin) under http.base_path
//
//  6. Serve until SIGINT or SIGTERM, then drain in-flight requests.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/visitlog/components/admin"
	"github.com/yanizio/visitlog/components/visits"
	"github.com/yanizio/visitlog/internal/component"
	"github.com/yanizio/visitlog/internal/config"
	"github.com/yanizio/visitlog/internal/database"
	"github.com/yanizio/visitlog/internal/geo"
	"github.com/yanizio/visitlog/internal/logger"
	"github.com/yanizio/visitlog/internal/middleware"
	"github.com/yanizio/visitlog/internal/requestinfo"
	"github.com/yanizio/visitlog/internal/routing"
	"github.com/yanizio/visitlog/internal/server"
	"github.com/yanizio/visitlog/internal/vault"
	"github.com/yanizio/visitlog/internal/visit"
)

// secretTTL caches Vault reads made during start-up.
const secretTTL = 5 * time.Minute

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, cfg.Log.Level, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer logOut.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Database ────────────────────────────────────────────────────
	//
	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		logOut.Fatalw("connect database", "err", err)
	}
	defer db.Close()
	logOut.Info("database online")

	//
	// ── 2.  Geolocation ─────────────────────────────────────────────────
	//
	var locator geo.Locator = geo.Nop{}
	if cfg.Geo.DBPath != "" {
		mm, err := geo.Open(cfg.Geo.DBPath)
		if err != nil {
			logOut.Warnw("geolocation disabled", "path", cfg.Geo.DBPath, "err", err)
		} else {
			defer mm.Close()
			locator = mm
			logOut.Infow("geolocation enabled", "path", cfg.Geo.DBPath)
		}
	}

	//
	// ── 3.  Domain services ─────────────────────────────────────────────
	//
	store := visit.NewStore(db)
	resolver := geo.NewResolver(locator, cfg.Geo.Timeout).WithCache(cfg.Geo.CacheSize)
	recorder := visit.NewRecorder(store, resolver)
	stats := visit.NewStatsService(store)

	adminLoc, err := cfg.Admin.Location()
	if err != nil {
		logOut.Fatalw("admin timezone", "timezone", cfg.Admin.Timezone, "err", err)
	}

	trusted, err := requestinfo.ParseTrustedProxies(cfg.HTTP.TrustedProxies)
	if err != nil {
		logOut.Fatalw("trusted proxies", "err", err)
	}

	//
	// ── 4.  Router ──────────────────────────────────────────────────────
	//
	root := chi.NewRouter()
	root.Use(middleware.Stack(cfg.HTTP.ForceHTTPS)...)
	root.Use(requestinfo.Enrich(trusted))

	root.Handle("/metrics", promhttp.Handler())

	reg := component.NewRegistry()
	for _, c := range []component.Component{
		visits.New(recorder, stats, visits.Options{
			DefaultDays: cfg.Stats.DefaultDays,
			MaxDays:     cfg.Stats.MaxDays,
		}),
		admin.New(store, admin.Options{
			BasePath: cfg.HTTP.BasePath,
			Location: adminLoc,
		}),
	} {
		if err := reg.Register(c); err != nil {
			logOut.Fatalw("register component", "component", c.Name(), "err", err)
		}
	}

	app := chi.NewRouter()
	if err := reg.Mount(ctx, app); err != nil {
		logOut.Fatalw("mount components", "err", err)
	}
	routing.Mount(root, cfg.HTTP.BasePath, app)

	//
	// ── 5.  Serve ───────────────────────────────────────────────────────
	//
	timeouts := server.Timeouts{
		Read:     cfg.HTTP.ReadTimeout,
		Write:    cfg.HTTP.WriteTimeout,
		Idle:     cfg.HTTP.IdleTimeout,
		Shutdown: cfg.HTTP.ShutdownTimeout,
	}
	srv := server.New(cfg.HTTP.ListenAddr, root, timeouts)

	logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr, "base_path", cfg.HTTP.BasePath)
	if err := server.Run(ctx, srv, timeouts); err != nil {
		logOut.Fatalw("http server", "err", err)
	}
	logOut.Info("shutdown complete")
}

// openDB resolves the password, if any, and opens the pool.
func openDB(ctx context.Context, c config.Database) (*sqlx.DB, error) {
	dsn := c.DSN
	if c.Password != "" {
		var kv vault.KV
		if vault.IsRef(c.Password) {
			cli, err := vault.New(ctx)
			if err != nil {
				return nil, err
			}
			kv = cli
		}
		pw, err := vault.ResolveRef(ctx, kv, c.Password, secretTTL)
		if err != nil {
			return nil, err
		}
		if dsn, err = database.WithPassword(dsn, pw); err != nil {
			return nil, err
		}
	}

	opts := database.DefaultOptions()
	opts.MaxOpenConns = c.MaxOpenConns
	opts.MaxIdleConns = c.MaxIdleConns
	opts.ConnMaxLifetime = c.ConnMaxLifetime
	opts.Retries = c.Retries

	zap.L().Debug("opening database pool", zap.Int("max_open", opts.MaxOpenConns))
	return database.OpenWithOptions(ctx, dsn, opts)
}
