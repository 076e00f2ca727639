package app

import (
	"context"
	"dexnetwork/internal/config"
	"os/signal"
	"syscall"
	"time"
)

// Run assemble the container, run the batch (and the API in serve mode) until done or signalled
func Run(cfg *config.Config, opts Options) (*Report, error) {
	ctxBuild, cancelBuild := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBuild()

	container, cleanup, err := Build(ctxBuild, cfg)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return container.App().Run(sigCtx, opts)
}
