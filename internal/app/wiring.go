package app

import (
	"context"
	"dexnetwork/internal/api/http"
	"dexnetwork/internal/api/http/handlers"
	"dexnetwork/internal/api/http/mw"
	"dexnetwork/internal/centrality"
	"dexnetwork/internal/config"
	"dexnetwork/internal/dedupe"
	rdbledger "dexnetwork/internal/dedupe/redis"
	"dexnetwork/internal/domain"
	"dexnetwork/internal/layout"
	"dexnetwork/internal/metrics"
	"dexnetwork/internal/panel"
	"dexnetwork/internal/pubsub"
	"dexnetwork/internal/pubsub/nats"
	"dexnetwork/internal/security"
	"dexnetwork/internal/service"
	"dexnetwork/internal/stores/clickhouse"
	"dexnetwork/internal/stores/redis"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"strings"
	"time"

	"github.com/grafana/pyroscope-go"
	lgcfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"
)

type Container struct {
	app *App
	log logger.Logger

	// infra, every one optional
	redis    *redis.Client
	ch       *clickhouse.Conn
	chWriter *clickhouse.Writer
	nc       *nats.Client
	memory   *dedupe.MemoryLedger

	profiler *pyroscope.Profiler
}

func (c *Container) App() *App { return c.app }

// Construct image app. On error everything already opened is closed
func Build(ctx context.Context, cfg *config.Config) (_ *Container, _ func(), err error) {
	lg := logger.New(lgcfg.LoggerCfg{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	lg.Info("Successfully initialize logger")

	c := &Container{log: lg}
	defer func() {
		if err != nil {
			c.cleanup()
		}
	}()

	if st, statErr := os.Stat(cfg.Data.Root); statErr != nil || !st.IsDir() {
		if statErr == nil {
			statErr = errors.New("not a directory")
		}
		return nil, nil, &domain.ConfigError{Field: "data.root", Err: statErr}
	}
	l := layout.New(cfg.Data.Root)

	versions := make([]domain.Version, 0, len(cfg.Data.Versions))
	for _, s := range cfg.Data.Versions {
		v, perr := domain.ParseVersion(s)
		if perr != nil {
			return nil, nil, &domain.ConfigError{Field: "data.versions", Err: perr}
		}
		versions = append(versions, v)
	}

	if c.profiler, err = metrics.InitPProf(cfg.Metrics.Pyroscope, cfg.App.InstanceID); err != nil {
		return nil, nil, fmt.Errorf("pyroscope initialize failed, error=%w", err)
	}
	if c.profiler != nil {
		lg.Infof("Successfully initialize Pyroscope to %s", cfg.Metrics.Pyroscope.ServerAddr)
	}

	m := metrics.New()
	var checks []handlers.Checker

	// Unit ledger
	var ledger dedupe.Ledger
	switch cfg.Ledger.Backend {
	case "redis":
		if c.redis, err = redis.New(ctx, cfg.Stores.Redis); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis client, error=%w", err)
		}
		if ledger, err = rdbledger.NewRedisLedger(lg, &cfg.Ledger, c.redis); err != nil {
			return nil, nil, err
		}
		checks = append(checks, handlers.CheckFunc{Label: "redis", Fn: func(ctx context.Context) error {
			return c.redis.Ping(ctx).Err()
		}})
		lg.Infof("Successfully initialize redis ledger by prefix %s", cfg.Ledger.Prefix)
	default:
		c.memory = dedupe.NewMemoryLedger(lg, cfg.Ledger.TTL, time.Minute)
		ledger = c.memory
		lg.Info("Successfully initialize in-memory ledger")
	}

	// Sinks
	var sinks []service.Sink
	if cfg.Stores.ClickHouse.Enabled {
		if c.ch, err = clickhouse.New(ctx, &cfg.Stores.ClickHouse); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize clickhouse client, error=%w", err)
		}
		if err = c.ch.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		c.chWriter = clickhouse.NewWriter(lg, c.ch.Native, cfg.Stores.ClickHouse, func(error) {
			m.SinkError("clickhouse")
		})
		sinks = append(sinks, c.chWriter)
		checks = append(checks, handlers.CheckFunc{Label: "clickhouse", Fn: c.ch.Native.Ping})
		lg.Infof("Successfully initialize clickhouse writer, url=%s", strings.Split(cfg.Stores.ClickHouse.DSN, "?")[0])
	}

	if cfg.PubSub.NATS.Enabled {
		if c.nc, err = nats.Connect(cfg, lg); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize nats client, error=%w", err)
		}
		sinks = append(sinks, pubsub.NewDayPublisher(c.nc, cfg.PubSub.NATS.SubjectPrefix))
		checks = append(checks, handlers.CheckFunc{Label: "nats", Fn: c.nc.Health})
	}

	// Service layer
	engine := centrality.NewEngine(lg, centrality.Options{
		MaxIter:     cfg.Network.EigenMaxIter,
		Tol:         cfg.Network.EigenTol,
		Stablecoins: cfg.Network.Stablecoins,
	})
	pipeline := service.NewPipeline(lg, service.PipelineDeps{Layout: l, Epsilon: cfg.Data.Epsilon, Engine: engine})
	runner := service.NewRunner(lg, service.RunnerDeps{
		Processor: pipeline,
		Ledger:    ledger,
		Sinks:     sinks,
		Metrics:   m,
		Versions:  versions,
		Workers:   cfg.App.Workers,
		QueueSize: cfg.App.QueueSize,
		Resume:    cfg.App.Resume,
	})

	assembler, err := panel.NewAssembler(lg, l, cfg.Panel, cfg.Network.Stablecoins)
	if err != nil {
		return nil, nil, err
	}

	// HTTP API
	routes := http.Routes{
		Health:  handlers.NewHandler(lg, 5*time.Second, checks...),
		Network: handlers.NewNetwork(lg, l),
		Metrics: m.Handler(),
		Logging: mw.NewLogging(lg),
		Gzip:    mw.NewGzip(0, lg),
	}
	if cfg.API.HTTP.JWT.Enabled {
		verifier, verr := security.NewVerifier(&cfg.API.HTTP.JWT)
		if verr != nil {
			return nil, nil, &domain.ConfigError{Field: "api.http.jwt", Err: verr}
		}
		if routes.JWT, err = mw.NewJWTMiddleware(verifier); err != nil {
			return nil, nil, err
		}
		lg.Info("Successfully initialize JWT verifier")
	}
	httpSrv := http.NewServer(lg, cfg.API.HTTP, http.BuildRouter(routes))

	var metricsSrv *nethttp.Server
	if cfg.Metrics.Prometheus != "" {
		mux := nethttp.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv = &nethttp.Server{Addr: cfg.Metrics.Prometheus, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	c.app = &App{
		log:             lg,
		versions:        versions,
		runner:          runner,
		panels:          assembler,
		httpSrv:         httpSrv,
		metricsSrv:      metricsSrv,
		shutdownTimeout: cfg.App.ShutdownTimeout,
	}

	lg.Info("Successfully initialize Wiring")
	return c, c.cleanup, nil
}

// cleanup flushes sinks first, then closes connections
func (c *Container) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if c.chWriter != nil {
		if err := c.chWriter.Close(ctx); err != nil {
			c.log.Errorf("Failed to close clickhouse writer: %v", err)
		}
	}
	if c.ch != nil {
		if err := c.ch.Close(); err != nil {
			c.log.Errorf("Failed to close clickhouse client: %v", err)
		}
	}
	if c.nc != nil {
		if err := c.nc.Close(); err != nil {
			c.log.Errorf("Failed to close nats client: %v", err)
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Errorf("Failed to close redis client: %v", err)
		}
	}
	if c.memory != nil {
		c.memory.Close()
	}
	if c.profiler != nil {
		if err := c.profiler.Stop(); err != nil {
			c.log.Errorf("Failed to stop profiler: %v", err)
		}
	}

	c.log.Info("Successfully cleaned up dependency")
}
