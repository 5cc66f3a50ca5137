package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atlas-hr/atlas-hr/internal/accounts"
	"github.com/atlas-hr/atlas-hr/internal/app"
	"github.com/atlas-hr/atlas-hr/internal/auth"
	"github.com/atlas-hr/atlas-hr/internal/authz"
	"github.com/atlas-hr/atlas-hr/internal/departments"
	"github.com/atlas-hr/atlas-hr/internal/observability"
	"github.com/atlas-hr/atlas-hr/internal/platform/cache"
	platformdb "github.com/atlas-hr/atlas-hr/internal/platform/db"
	"github.com/atlas-hr/atlas-hr/internal/roles"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := platformdb.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		// Revocation degrades to signature-and-expiry checks without Redis.
		logger.Warn("redis unavailable, token revocation disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tenantDB := platformdb.NewTenantDB(pool)
	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	revoked := auth.NewRevocationList(redisClient)
	authRepo := auth.NewRepository(tenantDB)
	authService := auth.NewService(authRepo, issuer, revoked)
	binder := auth.NewBinder(issuer, authRepo, revoked, logger)
	authHandler := auth.NewHandler(logger, authService, binder)

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo)

	accountsRepo := accounts.NewRepository(tenantDB, pool)
	accountsService := accounts.NewService(accountsRepo, cfg.BcryptCost)

	resolver := authz.NewResolver(rolesService)
	authzMiddleware := authz.Middleware{
		Resolver: resolver,
		Targets:  accountsRepo,
		Logger:   logger,
		Observer: metrics,
	}

	accountsHandler := accounts.NewHandler(logger, accountsService, authzMiddleware, auditLogger)

	departmentsRepo := departments.NewRepository(tenantDB, pool)
	departmentsService := departments.NewService(departmentsRepo)
	departmentsHandler := departments.NewHandler(logger, departmentsService, authzMiddleware, auditLogger)

	rolesHandler := roles.NewHandler(logger, rolesService, authzMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Binder:             binder,
		AuthHandler:        authHandler,
		AccountsHandler:    accountsHandler,
		DepartmentsHandler: departmentsHandler,
		RolesHandler:       rolesHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}
