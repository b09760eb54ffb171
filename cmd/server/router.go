package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"proctor/internal/platform/metrics"
	authmw "proctor/pkg/platform/middleware/auth"
	"proctor/pkg/platform/middleware/metadata"
	"proctor/pkg/platform/middleware/request"
	"proctor/pkg/platform/middleware/requesttime"
)

type registrar interface {
	Register(r chi.Router)
}

type routerDeps struct {
	proctoring registrar
	validator  authmw.JWTValidator
	metrics    *metrics.Metrics
	health     http.Handler
	logger     *slog.Logger
}

// newRouter mounts the public probes and the authenticated proctoring API.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	if d.metrics != nil {
		r.Use(d.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", d.metrics.Handler())
	}
	r.Method(http.MethodGet, "/healthz", d.health)

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.validator, d.logger))
		d.proctoring.Register(r)
	})
	return r
}
