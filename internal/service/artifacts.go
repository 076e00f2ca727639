package service

import (
	"dexnetwork/internal/centrality"
	"dexnetwork/internal/domain"
	"dexnetwork/internal/layout"
	"dexnetwork/internal/network"
	"dexnetwork/internal/route"
	"fmt"
)

type artifact struct {
	path  string
	write func(path string) error
}

// writeArtifacts every file of one day, each replaced atomically
func (p *Pipeline) writeArtifacts(d *network.Day, res *centrality.Result) ([]string, error) {
	metric := func(name string) string { return p.layout.Metric(d.Version, name, d.Date) }

	values := func(col string, vals []domain.TokenValue) func(string) error {
		return func(path string) error { return network.WriteValues(path, col, vals) }
	}
	shares := func(col string, vals []domain.TokenValue) func(string) error {
		return func(path string) error { return network.WriteShares(path, col, vals) }
	}
	fullLen := func(col string, vals []domain.TokenValue) func(string) error {
		return func(path string) error { return network.WriteValueShares(path, col, vals) }
	}
	centralityRows := func(rows []domain.CentralityRow) func(string) error {
		return func(path string) error { return centrality.WriteCentrality(path, rows) }
	}
	betweenness := func(path string) error { return centrality.WriteBetweenness(path, res.Betweenness) }

	list := []artifact{
		{p.layout.SwapRoutes(d.Version, d.Date), func(path string) error { return route.Write(path, d.Routes) }},
		{metric(layout.MetricInoutFlow), func(path string) error { return network.WriteFlows(path, d.Flows) }},
		{metric(layout.MetricVolume), func(path string) error { return network.WritePairs(path, d.Pairs) }},
		{metric(layout.MetricVolumeIn), values("volume_in", d.Volumes.In)},
		{metric(layout.MetricVolumeOut), values("volume_out", d.Volumes.Out)},
		{metric(layout.MetricVolumeTotal), values("volume_total", d.Volumes.Total)},
		{metric(layout.MetricVolumeShare), shares("volume_share", d.Volumes.Total)},
		{metric(layout.MetricVolumeInShare), shares("volume_in_share", d.Volumes.In)},
		{metric(layout.MetricVolumeOutShare), shares("volume_out_share", d.Volumes.Out)},
		{metric(layout.MetricTVL), values("total_tvl", d.TVL)},
		{metric(layout.MetricTVLShare), shares("tvl_share", d.TVL)},
		{metric(layout.MetricInflowCentrality), centralityRows(res.Inflow)},
		{metric(layout.MetricOutflowCentrality), centralityRows(res.Outflow)},
		{metric(layout.MetricEigenUndirected), centralityRows(res.Undirected)},
		{metric(layout.MetricInflowCentralityRoute), centralityRows(res.InflowRoute)},
		{metric(layout.MetricOutflowCentralityRoute), centralityRows(res.OutflowRoute)},
		{metric(layout.MetricEigenUndirectedRoute), centralityRows(res.UndirectedRoute)},
		{metric(layout.MetricBetweenness), betweenness},
		{p.layout.Betweenness(d.Version, d.Date), betweenness},
		{metric(layout.MetricClustering), func(path string) error { return centrality.WriteClustering(path, res.Clustering) }},
		{metric(layout.MetricVolInFullLen), fullLen("vol_in_full_len", d.FullLength.In)},
		{metric(layout.MetricVolOutFullLen), fullLen("vol_out_full_len", d.FullLength.Out)},
		{metric(layout.MetricVolInterFullLen), fullLen("vol_inter_full_len", d.FullLength.Inter)},
		{metric(layout.MetricHerfindahl), func(path string) error { return centrality.WriteHerfindahl(path, res.Aggregate) }},
	}

	out := make([]string, 0, len(list))
	for _, a := range list {
		if err := a.write(a.path); err != nil {
			return out, fmt.Errorf("failed write %s, error=%w", a.path, err)
		}
		out = append(out, a.path)
	}

	return out, nil
}
