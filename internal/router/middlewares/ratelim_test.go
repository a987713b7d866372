package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLimit1IP(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name         string
		callRPS      int
		limitRPS     int
		forwardedFor bool
	}

	tests := []testCase{
		{name: "forwarded-success", callRPS: 100, limitRPS: 500, forwardedFor: true},
		{name: "forwarded-block-me", callRPS: 1000, limitRPS: 500, forwardedFor: true},

		{name: "success", callRPS: 100, limitRPS: 500, forwardedFor: false},
		{name: "block-me", callRPS: 1000, limitRPS: 500, forwardedFor: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(tc testCase) func(t *testing.T) {
			return func(t *testing.T) {
				t.Parallel()

				cfg := RateLimiterConfig{
					Default: RateLimiterRouteConfig{
						MaxRPI:   uint64(tc.limitRPS),
						Interval: time.Second,
					},
				}
				rlcm, err := RateLimitController(cfg)
				require.NoError(t, err)
				rlc := rlcm(dummyHandler{})

				r, err := http.NewRequestWithContext(context.Background(), "GET", "/status", nil)
				require.NoError(t, err)

				if tc.forwardedFor {
					r.Header.Set("X-Forwarded-For", uuid.NewString())
				} else {
					r.RemoteAddr = uuid.NewString() + ":1234"
				}

				res := httptest.NewRecorder()

				// If callRPS < limitRPS, we never get a 429.
				// If callRPS > limitRPS, we eventually should see a 429.
				assertFunc := require.Eventually
				if tc.callRPS < tc.limitRPS {
					assertFunc = require.Never
				}
				assertFunc(t, func() bool {
					rlc.ServeHTTP(res, r)
					return res.Code == 429
				}, time.Second*5, time.Second/time.Duration(tc.callRPS))
			}
		}(tc))
	}
}

func TestPathLimits(t *testing.T) {
	t.Parallel()

	cfg := RateLimiterConfig{
		Default: RateLimiterRouteConfig{
			MaxRPI:   1000,
			Interval: time.Minute,
		},
		PathLimits: map[string]RateLimiterRouteConfig{
			"/transfer": {MaxRPI: 2, Interval: time.Minute},
		},
	}
	rlcm, err := RateLimitController(cfg)
	require.NoError(t, err)
	rlc := rlcm(dummyHandler{})

	do := func(path string) int {
		r := httptest.NewRequest("POST", path, nil)
		r.RemoteAddr = "10.0.0.1:1234"
		res := httptest.NewRecorder()
		rlc.ServeHTTP(res, r)
		return res.Code
	}

	require.Equal(t, 200, do("/transfer"))
	require.Equal(t, 200, do("/transfer"))
	require.Equal(t, 429, do("/transfer"))

	// other paths use the default limiter
	for i := 0; i < 10; i++ {
		require.Equal(t, 200, do("/status"))
	}
}

func TestRateLim10IPs(t *testing.T) {
	t.Parallel()

	cfg := RateLimiterConfig{
		Default: RateLimiterRouteConfig{
			MaxRPI:   100,
			Interval: time.Second,
		},
	}
	rlcm, err := RateLimitController(cfg)
	require.NoError(t, err)
	rlc := rlcm(dummyHandler{})

	// 1000 requests as fast as we can from different IPs never get a 429.
	for i := 0; i < 1000; i++ {
		r, err := http.NewRequestWithContext(context.Background(), "GET", "/status", nil)
		require.NoError(t, err)
		r.Header.Set("X-Forwarded-For", uuid.NewString())

		res := httptest.NewRecorder()

		rlc.ServeHTTP(res, r)
		require.Equal(t, 200, res.Code)
	}
}

func TestRejectUnknownClient(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/status", nil)
	r.RemoteAddr = "not-an-address"
	res := httptest.NewRecorder()
	RejectUnknownClient(dummyHandler{}).ServeHTTP(res, r)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestTraceID(t *testing.T) {
	t.Parallel()

	res := httptest.NewRecorder()
	TraceID(dummyHandler{}).ServeHTTP(res, httptest.NewRequest("GET", "/status", nil))
	generated := res.Header().Get("Trace-ID")
	_, err := uuid.Parse(generated)
	require.NoError(t, err)

	given := uuid.NewString()
	r := httptest.NewRequest("GET", "/status", nil)
	r.Header.Set("Trace-ID", given)
	res = httptest.NewRecorder()
	TraceID(dummyHandler{}).ServeHTTP(res, r)
	require.Equal(t, given, res.Header().Get("Trace-ID"))
}

type dummyHandler struct{}

func (dh dummyHandler) ServeHTTP(_ http.ResponseWriter, _ *http.Request) {
}
