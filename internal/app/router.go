package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/erp-api/internal/analytics"
	"github.com/odyssey-erp/erp-api/internal/ar"
	"github.com/odyssey-erp/erp-api/internal/auth"
	"github.com/odyssey-erp/erp-api/internal/masterdata/products"
	"github.com/odyssey-erp/erp-api/internal/masterdata/suppliers"
	"github.com/odyssey-erp/erp-api/internal/observability"
	"github.com/odyssey-erp/erp-api/internal/platform/httpx"
	"github.com/odyssey-erp/erp-api/internal/procurement"
	"github.com/odyssey-erp/erp-api/internal/rbac"
	"github.com/odyssey-erp/erp-api/internal/sales/customers"
	"github.com/odyssey-erp/erp-api/internal/sales/orders"
	"github.com/odyssey-erp/erp-api/internal/users"
	"github.com/odyssey-erp/erp-api/jobs"
)

// RouterParams groups dependencies for building the HTTP router. Nil handlers
// are skipped.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Metrics        *observability.Metrics
	Authenticator  func(http.Handler) http.Handler
	RBACMiddleware rbac.Middleware

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	ProductsHandler    *products.Handler
	CustomersHandler   *customers.Handler
	SuppliersHandler   *suppliers.Handler
	SalesOrdersHandler *orders.Handler
	ProcurementHandler *procurement.Handler
	InvoicesHandler    *ar.Handler
	DashboardHandler   *analytics.Handler
	JobHandler         *jobs.Handler
}

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Message(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Message(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusOK, HealthStatus{
				Status:  "OK",
				Message: "ERP API is running",
				Time:    time.Now().UTC(),
			})
		})

		r.Group(func(r chi.Router) {
			if params.Authenticator != nil {
				r.Use(params.Authenticator)
			}
			if params.AuthHandler != nil {
				r.Route("/auth", params.AuthHandler.MountRoutes)
			}
			if params.UsersHandler != nil {
				r.Route("/users", params.UsersHandler.MountRoutes)
			}
			if params.ProductsHandler != nil {
				r.Route("/products", params.ProductsHandler.MountRoutes)
			}
			if params.CustomersHandler != nil {
				r.Route("/customers", params.CustomersHandler.MountRoutes)
			}
			if params.SuppliersHandler != nil {
				r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
			}
			if params.SalesOrdersHandler != nil {
				r.Route("/sales-orders", params.SalesOrdersHandler.MountRoutes)
			}
			if params.ProcurementHandler != nil {
				r.Route("/purchase-orders", params.ProcurementHandler.MountPurchaseOrderRoutes)
				r.Route("/grns", params.ProcurementHandler.MountGRNRoutes)
			}
			if params.InvoicesHandler != nil {
				r.Route("/invoices", params.InvoicesHandler.MountRoutes)
			}
			if params.DashboardHandler != nil {
				r.Route("/dashboard", params.DashboardHandler.MountRoutes)
			}
			if params.JobHandler != nil {
				r.Route("/jobs", func(r chi.Router) {
					r.Use(params.RBACMiddleware.Require(rbac.AdminOnly))
					params.JobHandler.MountRoutes(r)
				})
			}
		})
	})

	return r
}
