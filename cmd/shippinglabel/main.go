package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"shippinglabel/internal/config"
	"shippinglabel/internal/http/server"
	"shippinglabel/internal/infra/chrome"
	"shippinglabel/internal/infra/logging"
	"shippinglabel/internal/infra/postgres"
	"shippinglabel/internal/infra/ratelimit"
	"shippinglabel/internal/label"
	"shippinglabel/internal/render"
	"shippinglabel/internal/tokens"
)

func main() {
	cfg := config.Load()
	if err := ensureLogDir(cfg.Logger.File); err != nil {
		fmt.Fprintf(os.Stderr, "create log dir: %v\n", err)
	}
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	logging.SetLogLevel(cfg.Logger.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := server.Deps{
		Config: cfg,
		LimiterStore: ratelimit.NewStore(ratelimit.RedisConfig{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.RateLimitDB,
		}),
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.RateLimitDB,
		})
		defer rdb.Close()
		deps.Redis = rdb
	}

	if cfg.PostgresEnabled() {
		db := postgres.NewDB()
		defer db.Close()
		wirePostgres(ctx, cfg, db, &deps)
	}

	var pool *chrome.Pool
	if cfg.PDF.ChromePoolSize > 0 {
		p, err := chrome.NewPool(cfg)
		if err != nil {
			logging.Error("Chrome pool unavailable, rendering in isolated browsers", "error", err)
		} else {
			pool = p
			defer pool.Close()
		}
	}
	deps.Pool = pool

	rasterizer := chrome.NewRasterizer(cfg, pool)
	deps.Labels = label.NewService(render.NewRenderer(), rasterizer, cfg.Assets.Path)
	logging.Info("Shipping label service configured",
		"assets_path", cfg.Assets.Path,
		"languages", label.SupportedLanguages(),
		"chrome_pool_size", cfg.PDF.ChromePoolSize,
		"auth_enabled", cfg.Auth.Enabled,
		"audit_enabled", cfg.Audit.Enabled,
	)

	app := server.New(deps)

	idleConnsClosed := make(chan struct{})
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
}

// wirePostgres sets up the token reloader and the audit repository.
// Database problems are logged and leave the service running without them.
func wirePostgres(ctx context.Context, cfg config.Config, db *postgres.DB, deps *server.Deps) {
	dsn, err := postgres.DSN(cfg.Auth.Postgres)
	if err != nil {
		logging.Error("Invalid postgres configuration", "error", err)
		if cfg.Auth.Enabled {
			// Auth stays enforced; every key is rejected until restart.
			deps.Tokens = tokens.NewCache()
		}
		return
	}

	if cfg.Auth.Enabled {
		cache := tokens.NewCache()
		reloader := tokens.NewReloader(postgres.NewTokenRepository(db, dsn), cache, cfg.Auth.ReloadInterval)
		if err := reloader.LoadOnce(ctx); err != nil {
			logging.Error("Failed to load API tokens", "error", err)
		}
		reloader.Start(ctx)
		deps.Tokens = cache
	}
	if cfg.Audit.Enabled {
		deps.Audit = postgres.NewAuditRepository(db, dsn)
	}
}

// ensureLogDir creates the directory of the log file when needed.
func ensureLogDir(file string) error {
	if file == "" {
		return nil
	}
	dir := filepath.Dir(file)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		logging.Info("Server listening", "addr", cfg.Server.Host+cfg.Server.Port)
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	// Listen for OS termination signals
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigint
		signal.Stop(sigint)

		logging.Warn("Shutdown signal received, closing server...")

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			logging.Error("Server forced to shutdown", "error", err)
		}

		close(idleConnsClosed)
		logging.Info("Server stopped cleanly")
	}()
}
