package centrality

import (
	"dexnetwork/internal/domain"
	"dexnetwork/internal/network"
	"sort"

	"gitlab.com/nevasik7/alerting/logger"
)

type Options struct {
	MaxIter     int
	Tol         float64
	Stablecoins []string
}

// Engine computes every network measure of one assembled day
type Engine struct {
	log     logger.Logger
	maxIter int
	tol     float64
	stable  map[string]struct{}
}

func NewEngine(log logger.Logger, opts Options) *Engine {
	// sane defaults
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultMaxIter
	}
	if opts.Tol <= 0 {
		opts.Tol = DefaultTol
	}

	stable := make(map[string]struct{}, len(opts.Stablecoins))
	for _, s := range opts.Stablecoins {
		stable[s] = struct{}{}
	}

	return &Engine{log: log, maxIter: opts.MaxIter, tol: opts.Tol, stable: stable}
}

func (e *Engine) IsStable(token string) bool {
	_, ok := e.stable[token]
	return ok
}

type Result struct {
	// pool view
	Inflow     []domain.CentralityRow
	Outflow    []domain.CentralityRow
	Undirected []domain.CentralityRow
	// route view
	InflowRoute     []domain.CentralityRow
	OutflowRoute    []domain.CentralityRow
	UndirectedRoute []domain.CentralityRow

	Betweenness []domain.BetweennessRow
	Clustering  []domain.TokenValue
	Tokens      []domain.TokenDay
	Aggregate   domain.DailyAggregate
}

func (e *Engine) Compute(d *network.Day) *Result {
	res := &Result{Betweenness: Betweenness(d.Routes)}

	btw := make(map[string]domain.BetweennessRow, len(res.Betweenness))
	for _, b := range res.Betweenness {
		btw[b.Node] = b
	}
	tvl := network.ValueMap(d.TVL)

	pool := Directions(d.PoolGraph, e.maxIter, e.tol)
	e.warnNotConverged(d, "pool", pool)
	res.Inflow = e.rows(d.PoolGraph, pool.Inflow, tvl, btw)
	res.Outflow = e.rows(d.PoolGraph, pool.Outflow, tvl, btw)
	res.Undirected = e.rows(d.PoolGraph, pool.Undirected, tvl, btw)

	rv := Directions(d.RouteGraph, e.maxIter, e.tol)
	e.warnNotConverged(d, "route", rv)
	res.InflowRoute = e.rows(d.RouteGraph, rv.Inflow, tvl, btw)
	res.OutflowRoute = e.rows(d.RouteGraph, rv.Outflow, tvl, btw)
	res.UndirectedRoute = e.rows(d.RouteGraph, rv.Undirected, tvl, btw)

	clust := Clustering(d.Pairs)
	for tok, c := range clust {
		res.Clustering = append(res.Clustering, domain.TokenValue{Token: tok, Value: c})
	}
	sort.Slice(res.Clustering, func(i, j int) bool { return res.Clustering[i].Token < res.Clustering[j].Token })

	res.Tokens = tokenDays(d, res, clust)
	res.Aggregate = e.aggregate(d, res, clust)

	return res
}

func (e *Engine) warnNotConverged(d *network.Day, view string, r Directional) {
	names := []string{"inflow", "outflow", "undirected"}
	for i, er := range []EigenResult{r.Inflow, r.Outflow, r.Undirected} {
		if !er.Converged {
			e.log.Warnf("eigenvector %s/%s of %s %s not converged after %d iterations, keeping last iterate",
				view, names[i], d.Version, d.Date.Format(domain.DayLayout), er.Iterations)
		}
	}
}

func (e *Engine) rows(g *network.Graph, er EigenResult, tvl map[string]domain.TokenValue, btw map[string]domain.BetweennessRow) []domain.CentralityRow {
	deg := g.Degrees()
	out := make([]domain.CentralityRow, 0, g.Len())
	for i, tok := range g.Nodes {
		var eig float64
		if i < len(er.Values) {
			eig = er.Values[i]
		}
		out = append(out, domain.CentralityRow{
			Token:             tok,
			TotalTVL:          tvl[tok].Value,
			Stable:            e.IsStable(tok),
			Eigenvector:       eig,
			Betweenness:       btw[tok].Count,
			Degree:            deg.In[i] + deg.Out[i],
			InDegree:          deg.In[i],
			OutDegree:         deg.Out[i],
			WeightedDegree:    deg.WeightedIn[i] + deg.WeightedOut[i],
			WeightedInDegree:  deg.WeightedIn[i],
			WeightedOutDegree: deg.WeightedOut[i],
		})
	}
	return out
}

func tokenDays(d *network.Day, res *Result, clust map[string]float64) []domain.TokenDay {
	rows := make(map[string]*domain.TokenDay)
	get := func(tok string) *domain.TokenDay {
		r, ok := rows[tok]
		if !ok {
			r = &domain.TokenDay{Token: tok}
			rows[tok] = r
		}
		return r
	}

	for _, v := range d.Volumes.Total {
		get(v.Token).VolumeShare = v.Share
	}
	for _, v := range d.Volumes.In {
		get(v.Token).VolumeInShare = v.Share
	}
	for _, v := range d.Volumes.Out {
		get(v.Token).VolumeOutShare = v.Share
	}
	for _, v := range d.TVL {
		get(v.Token).TVLShare = v.Share
	}
	for _, c := range res.Inflow {
		get(c.Token).InflowCentrality = c.Eigenvector
	}
	for _, c := range res.Outflow {
		get(c.Token).OutflowCentrality = c.Eigenvector
	}
	for _, b := range res.Betweenness {
		r := get(b.Node)
		r.BetweennessCount = b.Count
		r.BetweennessVolume = b.Volume
	}
	for tok, c := range clust {
		get(tok).Clustering = c
	}
	for _, v := range d.FullLength.In {
		get(v.Token).VolInFullLen = v.Value
	}
	for _, v := range d.FullLength.Out {
		get(v.Token).VolOutFullLen = v.Value
	}
	for _, v := range d.FullLength.Inter {
		get(v.Token).VolInterFullLen = v.Value
	}

	out := make([]domain.TokenDay, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

func (e *Engine) aggregate(d *network.Day, res *Result, clust map[string]float64) domain.DailyAggregate {
	values := func(tv []domain.TokenValue) []float64 {
		out := make([]float64, len(tv))
		for i, v := range tv {
			out[i] = v.Value
		}
		return out
	}
	eig := func(rows []domain.CentralityRow) []float64 {
		out := make([]float64, len(rows))
		for i, r := range rows {
			out[i] = r.Eigenvector
		}
		return out
	}
	btwCount := make([]float64, len(res.Betweenness))
	btwVolume := make([]float64, len(res.Betweenness))
	for i, b := range res.Betweenness {
		btwCount[i] = b.Count
		btwVolume[i] = b.Volume
	}

	return domain.DailyAggregate{
		Date:                  d.Date,
		Version:               d.Version,
		HerfVolume:            Herfindahl(values(d.Volumes.Total)),
		HerfInflow:            Herfindahl(eig(res.Inflow)),
		HerfOutflow:           Herfindahl(eig(res.Outflow)),
		HerfBetweennessCount:  Herfindahl(btwCount),
		HerfBetweennessVolume: Herfindahl(btwVolume),
		HerfTVL:               Herfindahl(values(d.TVL)),
		AvgClustering:         AverageClustering(clust),
		Nodes:                 d.PoolGraph.Len(),
		Edges:                 len(d.PoolGraph.Edges),
	}
}
