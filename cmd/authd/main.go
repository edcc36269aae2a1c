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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/zamsuite/zamsuite-auth/internal/app"
	"github.com/zamsuite/zamsuite-auth/internal/audit"
	"github.com/zamsuite/zamsuite-auth/internal/auth"
	"github.com/zamsuite/zamsuite-auth/internal/dashboard"
	"github.com/zamsuite/zamsuite-auth/internal/locale"
	"github.com/zamsuite/zamsuite-auth/internal/observability"
	"github.com/zamsuite/zamsuite-auth/internal/permissions"
	"github.com/zamsuite/zamsuite-auth/internal/projects"
	"github.com/zamsuite/zamsuite-auth/internal/rbac"
	"github.com/zamsuite/zamsuite-auth/internal/roles"
	"github.com/zamsuite/zamsuite-auth/internal/services"
	"github.com/zamsuite/zamsuite-auth/internal/shared"
	"github.com/zamsuite/zamsuite-auth/internal/users"
	"github.com/zamsuite/zamsuite-auth/jobs"
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

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "zamsuite_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)

	rbacRepo := rbac.NewRepository(dbpool)
	resolver := rbac.NewResolver(rbacRepo)
	gate := rbac.NewGate(resolver)
	rbacMiddleware := rbac.Middleware{Gate: gate, Logger: logger}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)

	mailClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mailClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo, auditLogger, dashboardCache)
	rolesHandler := roles.NewHandler(logger, rolesService, rbacMiddleware)

	permissionsRepo := permissions.NewRepository(dbpool)
	permissionsService := permissions.NewService(permissionsRepo, auditLogger, dashboardCache)
	permissionsHandler := permissions.NewHandler(logger, permissionsService, rbacMiddleware)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditLogger, dashboardCache, mailClient)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	servicesRepo := services.NewRepository(dbpool)
	servicesManager := services.NewManager(servicesRepo, auditLogger)
	servicesHandler := services.NewHandler(logger, servicesManager, rbacMiddleware)

	projectClient := projects.NewClient(cfg.ProjectServiceURL, cfg.ProjectServiceTimeout)
	dashboardRepo := dashboard.NewPGRepository(dbpool)
	dashboardService := dashboard.NewService(dashboardRepo, gate, projectClient, logger)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService, dashboardCache, rbacMiddleware)

	localeHandler := locale.NewHandler(logger, usersService)

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService, rbacMiddleware)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		ServicesHandler:    servicesHandler,
		DashboardHandler:   dashboardHandler,
		LocaleHandler:      localeHandler,
		AuditHandler:       auditHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
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
