package middlewares

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// WithLogging logs requests that didn't succeed.
func WithLogging(h http.Handler) http.Handler {
	handler := func(rw http.ResponseWriter, req *http.Request) {
		start := time.Now()
		loggedRW := &responseWriterLogger{
			ResponseWriter: rw,
			statusCode:     http.StatusOK,
		}
		h.ServeHTTP(loggedRW, req)

		l := log.Ctx(req.Context())
		ev := l.Debug()
		if loggedRW.statusCode >= http.StatusBadRequest {
			ev = l.Warn()
		}
		ev.Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("statusCode", loggedRW.statusCode).
			Dur("took", time.Since(start)).
			Msg("request served")
	}
	return http.HandlerFunc(handler)
}

type responseWriterLogger struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseWriterLogger) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.statusCode = statusCode
}
