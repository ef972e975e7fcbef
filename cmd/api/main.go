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

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/erp-api/internal/analytics"
	"github.com/odyssey-erp/erp-api/internal/app"
	"github.com/odyssey-erp/erp-api/internal/ar"
	"github.com/odyssey-erp/erp-api/internal/auth"
	"github.com/odyssey-erp/erp-api/internal/inventory"
	"github.com/odyssey-erp/erp-api/internal/masterdata/products"
	"github.com/odyssey-erp/erp-api/internal/masterdata/suppliers"
	"github.com/odyssey-erp/erp-api/internal/observability"
	"github.com/odyssey-erp/erp-api/internal/platform/db"
	"github.com/odyssey-erp/erp-api/internal/procurement"
	"github.com/odyssey-erp/erp-api/internal/rbac"
	"github.com/odyssey-erp/erp-api/internal/sales/customers"
	"github.com/odyssey-erp/erp-api/internal/sales/orders"
	"github.com/odyssey-erp/erp-api/internal/shared"
	"github.com/odyssey-erp/erp-api/internal/users"
	"github.com/odyssey-erp/erp-api/jobs"
	"github.com/odyssey-erp/erp-api/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	_ = godotenv.Load()
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if cfg.MigrateOnStart {
		if err := db.Migrate(migrations.FS, cfg.PGDSN); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	metrics := observability.NewMetrics()
	auditTrail := shared.NewAuditTrail(shared.NewAuditLogger(dbpool), logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	ledger := inventory.NewLedger(metrics)
	rbacMiddleware := rbac.Middleware{Logger: logger}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpire, cfg.JWTIssuer)
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokens)
	authHandler := auth.NewHandler(logger, authService, rbacMiddleware, app.LoginLimiter(cfg.LoginRateLimitPerMinute))
	authenticator := auth.NewMiddleware(tokens, authRepo, logger)

	usersService := users.NewService(users.NewRepository(dbpool), auditTrail)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	productsService := products.NewService(products.NewRepository(dbpool, ledger), auditTrail)
	productsHandler := products.NewHandler(logger, productsService, rbacMiddleware, metrics)

	customersService := customers.NewService(customers.NewRepository(dbpool), auditTrail, cfg.PhoneDefaultRegion)
	customersHandler := customers.NewHandler(logger, customersService, rbacMiddleware, metrics)

	suppliersService := suppliers.NewService(suppliers.NewRepository(dbpool), auditTrail, cfg.PhoneDefaultRegion)
	suppliersHandler := suppliers.NewHandler(logger, suppliersService, rbacMiddleware, metrics)

	ordersService := orders.NewService(orders.NewRepository(dbpool, ledger), auditTrail)
	ordersHandler := orders.NewHandler(logger, ordersService, rbacMiddleware, metrics)

	procurementService := procurement.NewService(procurement.NewRepository(dbpool, ledger), auditTrail)
	procurementHandler := procurement.NewHandler(logger, procurementService, rbacMiddleware, metrics)

	invoicesService := ar.NewService(ar.NewRepository(dbpool), auditTrail, idempotencyStore)
	invoicesHandler := ar.NewHandler(logger, invoicesService, rbacMiddleware, metrics)

	dashboardService := analytics.NewService(analytics.NewRepository(dbpool), productsService)
	dashboardHandler := analytics.NewHandler(logger, dashboardService, rbacMiddleware)

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
		Metrics:            metrics,
		Authenticator:      authenticator.Authenticate,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		ProductsHandler:    productsHandler,
		CustomersHandler:   customersHandler,
		SuppliersHandler:   suppliersHandler,
		SalesOrdersHandler: ordersHandler,
		ProcurementHandler: procurementHandler,
		InvoicesHandler:    invoicesHandler,
		DashboardHandler:   dashboardHandler,
		JobHandler:         jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
