package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	config "github.com/homevault/notifier/internal/config/notifier"
	"github.com/homevault/notifier/internal/services/notifier"
)

func buildHTTPServer(ctx context.Context, cfg *config.Config, h *notifier.Handler) *http.Server {
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.With(notifier.AuthMiddleware([]byte(cfg.Auth.JWTSecret), cfg.Auth.CookieName)).
			Mount("/notifications", h.Routes())
	})

	return &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: otelhttp.NewHandler(r, "notifier.http"),
		// Request contexts descend from the process context so shutdown
		// cancels in-flight stream sessions; Shutdown alone never does.
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		// No WriteTimeout: stream sessions outlive any fixed deadline.
		IdleTimeout: cfg.Server.IdleTimeout,
	}
}

func serveHTTP(srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
	return srv.ListenAndServe()
}
