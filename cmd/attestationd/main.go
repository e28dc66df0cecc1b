// Command attestationd is the demo HTTP transport (component L): it wires
// the core library packages behind a gin server for manual exercising.
// Transport is explicitly out of scope for the service's guarantees (§6) —
// every invariant this binary relies on lives in the internal packages it
// imports.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wageattest/attestation-engine/internal/clock"
	"github.com/wageattest/attestation-engine/internal/config"
	"github.com/wageattest/attestation-engine/internal/httpapi"
	"github.com/wageattest/attestation-engine/internal/ledger"
	"github.com/wageattest/attestation-engine/internal/registry"
	"github.com/wageattest/attestation-engine/internal/storage/mysqlstore"
	"github.com/wageattest/attestation-engine/internal/storage/redisstore"
	"github.com/wageattest/attestation-engine/internal/validator"
	"github.com/wageattest/attestation-engine/internal/vault"
	pkgdb "github.com/wageattest/attestation-engine/pkg/db"
	pkgredis "github.com/wageattest/attestation-engine/pkg/redis"
)

func main() {
	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger.Info("starting server",
		zap.String("environment", cfg.Server.Environment),
		zap.String("addr", cfg.Server.Addr()),
	)

	db, err := pkgdb.New(pkgdb.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Name:            cfg.Database.Name,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	rdb := pkgredis.New(pkgredis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := testConnections(db, rdb); err != nil {
		logger.Fatal("failed to test connections", zap.Error(err))
	}

	router := setupRouter(cfg, logger, db, rdb)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("addr", cfg.Server.Addr()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func initLogger() (*zap.Logger, error) {
	if os.Getenv("ENVIRONMENT") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func testConnections(db *sql.DB, rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pkgdb.Ping(ctx, db); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := pkgredis.Ping(ctx, rdb); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func setupRouter(cfg *config.Config, logger *zap.Logger, db *sql.DB, rdb *redis.Client) http.Handler {
	c := clock.System{}
	v := vault.New(c, logger)
	reg := registry.New(c, v, logger)
	led := ledger.New(c)
	val := validator.New(reg, led, c, logger)
	replayStore := redisstore.New(rdb, logger)
	durable := mysqlstore.New(db)

	sweep(cfg, reg, logger)

	return httpapi.NewRouter(httpapi.Deps{
		Registry:    reg,
		Validator:   val,
		Ledger:      led,
		Clock:       c,
		ReplayStore: replayStore,
		Durable:     durable,
		DB:          db,
		Redis:       rdb,
		Logger:      logger,
	})
}

// sweep starts the background rate-limit-window reset loop configured by
// internal/config.SweeperConfig, running for the lifetime of the process.
func sweep(cfg *config.Config, reg *registry.Registry, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.Sweeper.PollInterval)
	go func() {
		for range ticker.C {
			if n := reg.ResetExpiredWindows(); n > 0 {
				logger.Info("reset expired rate-limit windows", zap.Int("count", n))
			}
		}
	}()
}
