package app

import (
	"context"
	"dexnetwork/internal/domain"
	"dexnetwork/internal/panel"
	"dexnetwork/internal/service"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"gitlab.com/nevasik7/alerting/logger"
)

type HTTPServer interface {
	Addr() string
	Serve(ln net.Listener) error
	Shutdown(ctx context.Context) error
}

// Options of one CLI invocation
type Options struct {
	From  time.Time
	To    time.Time
	Panel bool // assemble panels after the run
	Serve bool // keep serving the read API until the context ends
}

type Report struct {
	Run    *service.RunSummary
	Panels []*panel.Summary
}

type App struct {
	log      logger.Logger
	versions []domain.Version

	runner *service.Runner
	panels *panel.Assembler // nil when panels are disabled

	httpSrv    HTTPServer // nil unless serve mode is possible
	metricsSrv *http.Server // nil when metrics.prometheus is empty

	shutdownTimeout time.Duration
}

func (a *App) Run(ctx context.Context, opts Options) (*Report, error) {
	a.log.Debug("App started begin...")

	if a.metricsSrv != nil {
		go func() {
			if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Errorf("Prometheus endpoint stopped, error=%v", err)
			}
		}()
		defer a.stopMetrics()
	}

	sum, err := a.runner.Run(ctx, opts.From, opts.To)
	rep := &Report{Run: sum}
	if err != nil {
		return rep, err
	}

	if opts.Panel {
		if a.panels == nil {
			return rep, &domain.ConfigError{Field: "panel", Err: errors.New("panel assembler is not configured")}
		}
		for _, v := range a.versions {
			ps, err := a.panels.Run(ctx, v, opts.From, opts.To)
			if err != nil {
				return rep, fmt.Errorf("failed assemble panel %s, error=%w", v, err)
			}
			rep.Panels = append(rep.Panels, ps)
		}
	}

	if opts.Serve {
		if err = a.serve(ctx); err != nil {
			return rep, err
		}
	}

	a.log.Info("App finished")
	return rep, nil
}

// serve blocks until ctx is done, then drains the server
func (a *App) serve(ctx context.Context) error {
	if a.httpSrv == nil {
		return &domain.ConfigError{Field: "api.http", Err: errors.New("http api is not configured")}
	}

	ln, err := net.Listen("tcp", a.httpSrv.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s, error=%w", a.httpSrv.Addr(), err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.httpSrv.Serve(ln) }()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	if err = a.httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (a *App) stopMetrics() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	if err := a.metricsSrv.Shutdown(ctx); err != nil {
		a.log.Errorf("Failed to stop prometheus endpoint: %v", err)
	}
}
