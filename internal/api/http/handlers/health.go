package handlers

import (
	"context"
	"dexnetwork/pkg/httputil"
	"net/http"
	"time"

	"gitlab.com/nevasik7/alerting/logger"
)

// Checker is an optional dependency probed by readiness (nats, redis, clickhouse)
type Checker interface {
	Name() string
	Health(ctx context.Context) error
}

type CheckFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

func (c CheckFunc) Name() string                     { return c.Label }
func (c CheckFunc) Health(ctx context.Context) error { return c.Fn(ctx) }

type Handler struct {
	log     logger.Logger
	checks  []Checker
	timeout time.Duration
}

func NewHandler(log logger.Logger, timeout time.Duration, checks ...Checker) *Handler {
	// sane defaults
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Handler{log: log, checks: checks, timeout: timeout}
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	if err := httputil.JSON(w, http.StatusOK, map[string]any{}, nil); err != nil {
		h.log.Errorf("Healthz handler error: %s", err.Error())
	}
}

// Readiness probe every configured dependency
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	failed := make(map[string]any)
	for _, c := range h.checks {
		if err := c.Health(ctx); err != nil {
			failed[c.Name()] = err.Error()
			status[c.Name()] = "unhealthy"
			continue
		}
		status[c.Name()] = "healthy"
	}

	if len(failed) > 0 {
		if err := httputil.Error(w, r, http.StatusServiceUnavailable, "dependencies_unhealthy", "dependencies check failed", failed); err != nil {
			h.log.Errorf("Readiness handler error: %s", err.Error())
		}
		return
	}

	if err := httputil.JSON(w, http.StatusOK, map[string]any{"dependencies": status}, nil); err != nil {
		h.log.Errorf("Readiness handler error: %s", err.Error())
	}
}
