package http

import (
	"dexnetwork/internal/api/http/handlers"
	"dexnetwork/internal/api/http/mw"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Routes struct {
	Health  *handlers.Handler
	Network *handlers.Network
	Metrics http.Handler // may be nil

	Logging *mw.LoggingMiddleware
	Gzip    *mw.GzipMiddleware
	JWT     *mw.JWTMiddleware // nil when api.http.jwt.enabled=false
}

func BuildRouter(rt Routes) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	if rt.Logging != nil {
		r.Use(rt.Logging.Handler)
	}

	// tech endpoints, no auth
	r.Get("/healthz", rt.Health.Healthz)
	r.Get("/readiness", rt.Health.Readiness)
	if rt.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.Metrics)
	}

	r.Route("/api/{version}", func(api chi.Router) {
		if rt.Gzip != nil {
			api.Use(rt.Gzip.Handler)
		}
		if rt.JWT != nil {
			api.Use(rt.JWT.Handler)
		}

		api.Get("/herfindahl/{date}", rt.Network.Herfindahl)
		api.Get("/tokens/{date}", rt.Network.Tokens)
		api.Get("/routes/{date}/summary", rt.Network.RouteSummary)
	})

	return r
}
