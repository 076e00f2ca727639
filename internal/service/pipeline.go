package service

import (
	"context"
	"dexnetwork/internal/centrality"
	"dexnetwork/internal/domain"
	"dexnetwork/internal/layout"
	"dexnetwork/internal/network"
	"dexnetwork/internal/normalize"
	"dexnetwork/internal/route"
	"errors"
	"fmt"
	"time"

	"gitlab.com/nevasik7/alerting/logger"
)

// Pipeline runs one (version, date) unit from raw swaps to every per-day artifact.
// A unit only writes paths keyed by its own (version, date)
type Pipeline struct {
	log        logger.Logger
	layout     *layout.Layout
	normalizer *normalize.Normalizer
	builder    *route.Builder
	tvl        *network.TVLReader
	engine     *centrality.Engine
}

type PipelineDeps struct {
	Layout  *layout.Layout
	Epsilon float64
	Engine  *centrality.Engine
}

func NewPipeline(log logger.Logger, deps PipelineDeps) *Pipeline {
	pools := normalize.NewPoolLists(deps.Layout)

	engine := deps.Engine
	if engine == nil {
		engine = centrality.NewEngine(log, centrality.Options{})
	}

	return &Pipeline{
		log:        log,
		layout:     deps.Layout,
		normalizer: normalize.NewNormalizer(log, deps.Layout, pools),
		builder:    route.NewBuilder(deps.Epsilon),
		tvl:        network.NewTVLReader(deps.Layout, pools),
		engine:     engine,
	}
}

// ProcessUnit merged units rebuild v2 and v3 from raw and tolerate one missing source.
// ErrRawMissing when no source has raw data; *ConfigError aborts the batch
func (p *Pipeline) ProcessUnit(ctx context.Context, v domain.Version, date time.Time) (*domain.DayResult, error) {
	log := p.log.WithFields(map[string]interface{}{
		"version": string(v),
		"date":    date.Format(domain.DayLayout),
	})

	var (
		swaps   []domain.SubSwap
		routes  []domain.Route
		loaded  []domain.Version
		written []string
	)

	for _, src := range v.Sources() {
		part, st, err := p.normalizer.Load(ctx, src, date)
		if err != nil {
			if errors.Is(err, domain.ErrRawMissing) && v == domain.Merged {
				log.Warnf("Raw swaps of %s missing, merged day built from the other version", src)
				continue
			}
			return nil, err
		}

		built := p.builder.Build(part)
		if v != domain.Merged {
			path := p.layout.NormalizedSwaps(src, date)
			if err = normalize.WriteNormalized(path, part); err != nil {
				return nil, fmt.Errorf("failed write normalized swaps, error=%w", err)
			}
			written = append(written, path)
		}

		log.Debugf("Source %s: swaps=%d tx=%d tx_dropped=%d", src, len(part), len(built), st.TxDropped)
		swaps = append(swaps, part...)
		routes = append(routes, built...)
		loaded = append(loaded, src)
	}

	if len(loaded) == 0 {
		return nil, fmt.Errorf("%s: %w", domain.MakeUnitID(v, date), domain.ErrRawMissing)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tvl, err := p.tvl.LoadSources(v, date, loaded)
	if err != nil {
		if !errors.Is(err, domain.ErrExternalAbsent) {
			return nil, err
		}
		log.Warnf("TVL feed absent, tvl shares are zero: %v", err)
	}

	day := network.Assemble(v, date, swaps, routes, tvl)
	res := p.engine.Compute(day)

	artifacts, err := p.writeArtifacts(day, res)
	if err != nil {
		return nil, err
	}

	out := &domain.DayResult{
		Version:   v,
		Date:      date,
		Tokens:    res.Tokens,
		Aggregate: res.Aggregate,
		Artifacts: append(written, artifacts...),
	}
	for i := range routes {
		out.Labels.Add(routes[i].Label)
	}

	log.Infof("Unit done: tx=%d simple=%d loop=%d spoon=%d error=%d tokens=%d",
		out.Labels.Total(), out.Labels.Simple, out.Labels.Loop, out.Labels.Spoon, out.Labels.Error, len(out.Tokens))

	return out, nil
}
