package network

import (
	"dexnetwork/internal/domain"
)

// Simple routes only; loop/spoon/error never reach a centrality or concentration measure
func SimpleRoutes(routes []domain.Route) []domain.Route {
	out := make([]domain.Route, 0, len(routes))
	for _, r := range routes {
		if r.Label == domain.LabelSimple && len(r.Tokens) >= 2 {
			out = append(out, r)
		}
	}
	return out
}

type FullLength struct {
	In    []domain.TokenValue // token is ultimate_target
	Out   []domain.TokenValue // token is ultimate_source
	Inter []domain.TokenValue // token is an intermediary
}

// FullLengthVolumes tally volume_usd of simple routes by the role each token plays
func FullLengthVolumes(routes []domain.Route) FullLength {
	in := make(map[string]float64)
	out := make(map[string]float64)
	inter := make(map[string]float64)

	for _, r := range SimpleRoutes(routes) {
		v := clean(r.VolumeUSD)
		out[r.UltimateSource] += v
		in[r.UltimateTarget] += v
		for _, tok := range r.Intermediary {
			inter[tok] += v
		}
	}

	return FullLength{In: Shares(in), Out: Shares(out), Inter: Shares(inter)}
}

// RouteEdges ultimate_source -> ultimate_target summed over simple routes
func RouteEdges(routes []domain.Route) []domain.FlowEdge {
	parts := make([]domain.FlowEdge, 0, len(routes))
	for _, r := range SimpleRoutes(routes) {
		parts = append(parts, domain.FlowEdge{Source: r.UltimateSource, Target: r.UltimateTarget, Volume: r.VolumeUSD})
	}
	return MergeFlows(parts)
}
