package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/leasecraft/leasecraft/internal/accesscontrol"
	"github.com/leasecraft/leasecraft/internal/agreements"
	"github.com/leasecraft/leasecraft/internal/app"
	"github.com/leasecraft/leasecraft/internal/audit"
	"github.com/leasecraft/leasecraft/internal/platform/cache"
	"github.com/leasecraft/leasecraft/internal/platform/db"
	"github.com/leasecraft/leasecraft/internal/principals"
	"github.com/leasecraft/leasecraft/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	auditor := jobs.NewAuditEnqueuer(asynqClient)

	store := accesscontrol.NewPGStore(pool)
	versions := accesscontrol.NewVersionCache(redisClient, cfg.PermissionCacheTTL)
	accessService := accesscontrol.NewService(store, auditor, versions, logger)
	resolver := accesscontrol.NewResolver(store, versions, logger)
	engine := accesscontrol.NewEngine(store, resolver,
		accesscontrol.WithOwnership(accesscontrol.ResourceAgreement, agreements.OwnershipExpr),
	)
	accessMW := accesscontrol.Middleware{Resolver: resolver, Logger: logger}
	accessHandler := accesscontrol.NewHandler(logger, accessService, resolver, engine, accessMW)

	principalsRepo := principals.NewRepository(pool)
	principalsService := principals.NewService(principalsRepo)
	principalsHandler := principals.NewHandler(logger, principalsService, accessMW)

	agreementsRepo := agreements.NewRepository(pool)
	agreementsService := agreements.NewService(agreementsRepo, engine, auditor)
	agreementsHandler := agreements.NewHandler(logger, agreementsService)

	auditTrailRepo := audit.NewPGTrailRepository(pool)
	auditService := audit.NewService(auditTrailRepo)
	auditHandler := audit.NewHandler(logger, auditService, accessMW)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AccessHandler:     accessHandler,
		PrincipalsHandler: principalsHandler,
		AgreementsHandler: agreementsHandler,
		AuditHandler:      auditHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
