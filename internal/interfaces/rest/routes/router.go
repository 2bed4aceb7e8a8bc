// Package routes assembles the HTTP router.
package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/config"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest/docs"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest/middleware"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/metrics"
)

type Options struct {
	Server   config.ServerConfig
	HTTP     config.HTTPConfig
	Handlers *handlers.Handlers
	Metrics  *metrics.Metrics
	// Gatherer backs /metrics. Nil leaves the endpoint unmounted.
	Gatherer prometheus.Gatherer
	// Docs is optional.
	Docs   *openapi3.T
	Logger *slog.Logger
}

func NewRouter(opts Options) (http.Handler, error) {
	h := opts.Handlers
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		middleware.Logging(opts.Logger),
		middleware.Metrics(opts.Metrics),
		middleware.Recovery(opts.Logger),
		cors.Handler(cors.Options{
			AllowedOrigins: opts.HTTP.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}),
		httprate.LimitByIP(opts.HTTP.RateLimit, time.Second),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		rest.WriteJSON(w, http.StatusNotFound, rest.ErrorResponse{
			Message: "Route not found",
			Code:    application.ErrCodeNotFound,
		})
	})

	r.Get("/health", h.Health)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	if opts.Docs != nil {
		if err := docs.RegisterDocsRoutes(r, opts.Docs); err != nil {
			return nil, err
		}
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(opts.Server.RequestTimeout))

		r.Route("/payment", func(r chi.Router) {
			r.Post("/create-order", h.CreateOrder)
			r.Post("/verify", h.Webhook)
			r.Get("/verify", h.Redirect)
			r.Post("/verify-manual", h.VerifyManual)
			r.Get("/status/{id}", h.GetStatus)
			r.Get("/receipt/{id}", h.GetReceipt)
		})

		r.Post("/api/payments/initiate", h.InitiatePayment)
		r.Get("/api/recharge/status/{id}", h.GetRechargeStatus)
	})

	// Settlement sleeps and may recharge; a direct recharge shares that
	// budget, which config validation keeps above the recharge timeout.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(opts.Server.SettlementTimeout))
		r.Post("/api/bank/settlement", h.Settle)
		r.Post("/api/recharge/execute", h.ExecuteRecharge)
	})

	return r, nil
}
