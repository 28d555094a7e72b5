// Package httpapi отдаёт JSON HTTP API витрины поверх корзины, checkout и админки.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/admin"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxRequestBodySize    = 1 << 20
	relatedProductsLimit  = 4
)

// Deps: зависимости HTTP API.
type Deps struct {
	Carts          *cart.Registry
	Catalog        domain.ProductRepository
	Checkout       *checkout.Service
	Admin          *admin.Service
	Logger         *log.Entry
	RequestTimeout time.Duration
}

type api struct {
	carts    *cart.Registry
	catalog  domain.ProductRepository
	checkout *checkout.Service
	admin    *admin.Service
	logger   *log.Entry
}

// NewRouter собирает chi-роутер со всеми маршрутами /api/v1.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	h := &api{
		carts:    deps.Carts,
		catalog:  deps.Catalog,
		checkout: deps.Checkout,
		admin:    deps.Admin,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.RequestSize(maxRequestBodySize))
	r.Use(identityMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/categories", h.listCategories)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Delete("/", h.clearCart)
			r.Post("/items", h.addItem)
			r.Put("/items/{id}", h.setQuantity)
			r.Delete("/items/{id}", h.removeItem)
		})

		r.Post("/checkout", h.submitCheckout)
		r.Get("/orders", h.listUserOrders)
		r.Get("/orders/{id}", h.getUserOrder)

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/orders", h.adminListOrders)
			r.Patch("/orders/{id}/status", h.adminUpdateOrderStatus)
			r.Get("/products", h.adminListProducts)
			r.Get("/dashboard", h.adminDashboard)
		})
	})

	return r
}
