package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/textileio/go-autopay/internal/autopay"
	"github.com/textileio/go-autopay/internal/router/controllers"
	"github.com/textileio/go-autopay/internal/router/middlewares"
)

// ConfiguredRouter returns a fully configured Router that can be used as an http handler.
// Transfer endpoints are limited to maxTransferRPI requests per interval, the rest to maxRPI.
func ConfiguredRouter(
	svc autopay.AutoPay,
	maxRPI uint64,
	maxTransferRPI uint64,
	rateLimInterval time.Duration,
) (*Router, error) {
	ctrl := controllers.NewController(svc)

	// General router configuration.
	router := NewRouter()
	router.Use(middlewares.CORS, middlewares.TraceID)

	transferLimit := middlewares.RateLimiterRouteConfig{MaxRPI: maxTransferRPI, Interval: rateLimInterval}
	cfg := middlewares.RateLimiterConfig{
		Default: middlewares.RateLimiterRouteConfig{
			MaxRPI:   maxRPI,
			Interval: rateLimInterval,
		},
		PathLimits: map[string]middlewares.RateLimiterRouteConfig{
			"/transfer":          transferLimit,
			"/transfer/periodic": transferLimit,
		},
	}
	rateLim, err := middlewares.RateLimitController(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating rate limit controller middleware: %s", err)
	}

	router.Get("/address", ctrl.Address, middlewares.WithLogging, middlewares.OtelHTTP("Address"), middlewares.RejectUnknownClient, rateLim)                                  // nolint
	router.Post("/transfer", ctrl.Transfer, middlewares.WithLogging, middlewares.OtelHTTP("Transfer"), middlewares.RejectUnknownClient, rateLim)                              // nolint
	router.Post("/transfer/periodic", ctrl.TransferPeriodically, middlewares.WithLogging, middlewares.OtelHTTP("TransferPeriodically"), middlewares.RejectUnknownClient, rateLim) // nolint
	router.Get("/transactions/{hash}", ctrl.GetTransaction, middlewares.WithLogging, middlewares.OtelHTTP("GetTransaction"), middlewares.RejectUnknownClient, rateLim)       // nolint
	router.Get("/status", ctrl.Status, middlewares.WithLogging, middlewares.OtelHTTP("Status"), middlewares.RejectUnknownClient, rateLim)                                    // nolint
	router.Get("/version", controllers.Version, middlewares.WithLogging, middlewares.OtelHTTP("Version"), middlewares.RejectUnknownClient, rateLim)                          // nolint

	// Health endpoint configuration.
	router.Get("/healthz", controllers.HealthHandler)
	router.Get("/health", controllers.HealthHandler)

	return router, nil
}

// Router provides a nice api around mux.Router.
type Router struct {
	r *mux.Router
}

// NewRouter is a Mux HTTP router constructor.
func NewRouter() *Router {
	r := mux.NewRouter()
	r.PathPrefix("/").Methods(http.MethodOptions) // accept OPTIONS on all routes and do nothing
	return &Router{r: r}
}

// Get creates a subroute on the specified URI that only accepts GET. You can provide specific middlewares.
func (r *Router) Get(uri string, f func(http.ResponseWriter, *http.Request), mid ...mux.MiddlewareFunc) {
	sub := r.r.Path(uri).Subrouter()
	sub.HandleFunc("", f).Methods(http.MethodGet)
	sub.Use(mid...)
}

// Post creates a subroute on the specified URI that only accepts POST. You can provide specific middlewares.
func (r *Router) Post(uri string, f func(http.ResponseWriter, *http.Request), mid ...mux.MiddlewareFunc) {
	sub := r.r.Path(uri).Subrouter()
	sub.HandleFunc("", f).Methods(http.MethodPost)
	sub.Use(mid...)
}

// Use adds middlewares to all routes. Should be used when a middleware should be execute all all routes (e.g. CORS).
func (r *Router) Use(mid ...mux.MiddlewareFunc) {
	r.r.Use(mid...)
}

// Handler returns the configured router http handler.
func (r *Router) Handler() http.Handler {
	return r.r
}
