package controller

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/syncwatch/server/pkg/ctxlogger"
)

func (c *controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ctxlogger.AppendCtx(r.Context(), slog.String("request_id", c.generateTimeBasedId()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c *controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		c.logger.DebugContext(r.Context(), "handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"elapsed_time", time.Since(start).String(),
		)
	})
}
