package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paynet-platform/internal/audit"
	"paynet-platform/internal/auth"
	"paynet-platform/internal/config"
	"paynet-platform/internal/fanout"
	"paynet-platform/internal/httpapi"
	"paynet-platform/internal/ledger"
	"paynet-platform/internal/reversal"
	"paynet-platform/internal/scheme"
	"paynet-platform/internal/transaction"
	"paynet-platform/pkg/logger"
	"paynet-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Wiring, leaf-first: ledger, transaction stores, audit, reversal.
	led := ledger.NewService(db, cfg.Platform.LedgerCallTimeout)

	stores, err := transaction.NewPostgresRegistry(db)
	if err != nil {
		log.Error("transaction store init failed", "err", err)
		os.Exit(1)
	}

	schemeSvc := scheme.NewService(scheme.NewPostgresRepo(db))
	chains := fanout.NewPostgresChainResolver(db)
	auditor := audit.NewService(audit.NewPostgresRepo(db), log)
	fanoutSvc := fanout.NewService(led, chains, cfg.Platform.CompanyAccountID, auditor, log)
	locker := reversal.NewRedisLocker(rdb, cfg.Platform.ReversalLockTTL, log)
	revRepo := reversal.NewPostgresRepo(db)
	revSvc := reversal.NewService(revRepo, stores, led, auditor, locker, log)

	reconciler := reversal.NewReconciler(revRepo, stores, led,
		cfg.Platform.ReversalStuckThreshold, time.Minute, log)
	go reconciler.Run(rootCtx)

	handlers := httpapi.Handlers{
		Auth:           authManager,
		Ledger:         led,
		Entries:        led,
		Scheme:         schemeSvc,
		Fanout:         fanoutSvc,
		Stores:         stores,
		Reversal:       revSvc,
		StuckThreshold: cfg.Platform.ReversalStuckThreshold,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, handlers, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
