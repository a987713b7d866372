package middlewares

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sethvargo/go-limiter/httplimit"
	"github.com/sethvargo/go-limiter/memorystore"
	"github.com/textileio/go-autopay/pkg/errors"
)

// RateLimiterConfig specifies a default rate limiting configuration, and optional custom rate limiting
// rules for particular request paths.
type RateLimiterConfig struct {
	Default    RateLimiterRouteConfig
	PathLimits map[string]RateLimiterRouteConfig
}

// RateLimiterRouteConfig specifies the maximum request per interval, and
// interval length for a rate limiting rule.
type RateLimiterRouteConfig struct {
	MaxRPI   uint64
	Interval time.Duration
}

// RateLimitController creates a new middleware to rate limit requests.
// Requests are keyed by the X-Forwarded-For IP included by a load-balancer or, if absent, by
// the connection remote address.
func RateLimitController(cfg RateLimiterConfig) (mux.MiddlewareFunc, error) {
	keyFunc := func(r *http.Request) (string, error) {
		ip, err := extractClientIP(r)
		if err != nil {
			return "", fmt.Errorf("extract client ip: %s", err)
		}
		return ip, nil
	}

	defaultRL, err := createRateLimiter(cfg.Default, keyFunc)
	if err != nil {
		return nil, fmt.Errorf("creating default rate limiter: %s", err)
	}
	customRLs := make(map[string]*httplimit.Middleware, len(cfg.PathLimits))
	for path, pathCfg := range cfg.PathLimits {
		customRLs[path], err = createRateLimiter(pathCfg, keyFunc)
		if err != nil {
			return nil, fmt.Errorf("creating custom rate limiter for path %s: %s", path, err)
		}
	}

	return func(next http.Handler) http.Handler {
		defaultRLHandler := defaultRL.Handle(next)
		customRLHandlers := make(map[string]http.Handler, len(customRLs))
		for path := range customRLs {
			customRLHandlers[path] = customRLs[path].Handle(next)
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := defaultRLHandler
			if customLimiter, ok := customRLHandlers[r.URL.Path]; ok {
				m = customLimiter
			}
			m.ServeHTTP(w, r)
		})
	}, nil
}

func createRateLimiter(cfg RateLimiterRouteConfig, kf httplimit.KeyFunc) (*httplimit.Middleware, error) {
	store, err := memorystore.New(&memorystore.Config{
		Tokens:   cfg.MaxRPI,
		Interval: cfg.Interval,
	})
	if err != nil {
		return nil, fmt.Errorf("creating memory store: %s", err)
	}
	m, err := httplimit.NewMiddleware(store, kf)
	if err != nil {
		return nil, fmt.Errorf("creating httplimiter: %s", err)
	}
	return m, nil
}

func extractClientIP(r *http.Request) (string, error) {
	// Use X-Forwarded-For IP if present.
	// i.g: https://cloud.google.com/load-balancing/docs/https#x-forwarded-for_header
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		return ip, nil
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "", fmt.Errorf("getting ip from remote addr: %s", err)
	}
	return ip, nil
}

// RejectUnknownClient answers 400 to requests whose client IP can't be determined.
func RejectUnknownClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := extractClientIP(r); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(errors.ServiceError{Message: "can't determine client address"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
