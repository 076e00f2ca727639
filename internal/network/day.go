package network

import (
	"dexnetwork/internal/domain"
	"time"
)

// Day every view of one (date, version)
type Day struct {
	Version domain.Version
	Date    time.Time

	Routes     []domain.Route
	PoolEdges  []PoolEdge
	Flows      []domain.FlowEdge
	Pairs      []domain.PairVolume
	Volumes    Volumes
	FullLength FullLength
	RouteFlows []domain.FlowEdge
	TVL        []domain.TokenValue

	PoolGraph  *Graph // pool view
	RouteGraph *Graph // route view
}

// Assemble build every per-day view. swaps and routes of a merged day are the concatenation
// of its sources, which makes every merged edge the sum of the per-version edges
func Assemble(v domain.Version, date time.Time, swaps []domain.SubSwap, routes []domain.Route, tvl map[string]float64) *Day {
	d := &Day{
		Version:   v,
		Date:      date,
		Routes:    routes,
		PoolEdges: PoolEdges(swaps),
		Flows:     InoutFlow(swaps),
	}

	d.Pairs = PairVolumes(d.Flows)
	d.Volumes = TokenVolumes(d.Flows)
	d.FullLength = FullLengthVolumes(routes)
	d.RouteFlows = RouteEdges(routes)
	d.TVL = Shares(tvl)

	d.PoolGraph = PoolGraph(d.PoolEdges)
	d.RouteGraph = FlowGraph(d.RouteFlows)

	return d
}
