package network

import (
	"dexnetwork/internal/domain"
	"sort"
)

// Directional USD volume of one pool
type PoolEdge struct {
	Pool   string
	Source string
	Target string
	Volume float64
}

// PoolEdges sum amount_usd per (pool, Source, Target); sorted by pool then direction
func PoolEdges(swaps []domain.SubSwap) []PoolEdge {
	type key struct{ pool, src, tgt string }
	sums := make(map[key]float64)
	for _, s := range swaps {
		sums[key{s.Pool, s.Source, s.Target}] += clean(s.AmountUSD)
	}

	out := make([]PoolEdge, 0, len(sums))
	for k, v := range sums {
		out = append(out, PoolEdge{Pool: k.pool, Source: k.src, Target: k.tgt, Volume: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pool != out[j].Pool {
			return out[i].Pool < out[j].Pool
		}
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// Pool view multidigraph, one edge per (pool, direction)
func PoolGraph(edges []PoolEdge) *Graph {
	ge := make([]Edge, 0, len(edges))
	for _, e := range edges {
		ge = append(ge, Edge{Key: e.Pool, From: e.Source, To: e.Target, Weight: e.Volume})
	}
	return NewGraph(ge)
}

// InoutFlow sum amount_usd per (Source, Target)
func InoutFlow(swaps []domain.SubSwap) []domain.FlowEdge {
	parts := make([]domain.FlowEdge, 0, len(swaps))
	for _, s := range swaps {
		parts = append(parts, domain.FlowEdge{Source: s.Source, Target: s.Target, Volume: clean(s.AmountUSD)})
	}
	return MergeFlows(parts)
}

// MergeFlows sum volumes by (Source, Target); a key absent in one input contributes 0
func MergeFlows(parts ...[]domain.FlowEdge) []domain.FlowEdge {
	type key struct{ src, tgt string }
	sums := make(map[key]float64)
	for _, p := range parts {
		for _, e := range p {
			sums[key{e.Source, e.Target}] += clean(e.Volume)
		}
	}

	out := make([]domain.FlowEdge, 0, len(sums))
	for k, v := range sums {
		out = append(out, domain.FlowEdge{Source: k.src, Target: k.tgt, Volume: v})
	}
	sortFlows(out)
	return out
}

func sortFlows(f []domain.FlowEdge) {
	sort.Slice(f, func(i, j int) bool {
		if f[i].Source != f[j].Source {
			return f[i].Source < f[j].Source
		}
		return f[i].Target < f[j].Target
	})
}

func FlowGraph(flows []domain.FlowEdge) *Graph {
	ge := make([]Edge, 0, len(flows))
	for _, f := range flows {
		ge = append(ge, Edge{From: f.Source, To: f.Target, Weight: f.Volume})
	}
	return NewGraph(ge)
}

type Volumes struct {
	In    []domain.TokenValue
	Out   []domain.TokenValue
	Total []domain.TokenValue
}

// TokenVolumes per-token incoming, outgoing and total flow with day shares
func TokenVolumes(flows []domain.FlowEdge) Volumes {
	in := make(map[string]float64)
	out := make(map[string]float64)
	for _, f := range flows {
		if f.Source == f.Target {
			continue
		}
		out[f.Source] += f.Volume
		in[f.Target] += f.Volume
		// every token of an edge is a node of the view
		in[f.Source] += 0
		out[f.Target] += 0
	}

	total := make(map[string]float64, len(in))
	for tok := range in {
		total[tok] = in[tok] + out[tok]
	}

	return Volumes{In: Shares(in), Out: Shares(out), Total: Shares(total)}
}

// PairVolumes undirected aggregated volume per token pair, Token0 < Token1
func PairVolumes(flows []domain.FlowEdge) []domain.PairVolume {
	type key struct{ a, b string }
	sums := make(map[key]float64)
	for _, f := range flows {
		if f.Source == f.Target {
			continue
		}
		a, b := f.Source, f.Target
		if b < a {
			a, b = b, a
		}
		sums[key{a, b}] += f.Volume
	}

	out := make([]domain.PairVolume, 0, len(sums))
	for k, v := range sums {
		out = append(out, domain.PairVolume{Token0: k.a, Token1: k.b, Volume: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Token0 != out[j].Token0 {
			return out[i].Token0 < out[j].Token0
		}
		return out[i].Token1 < out[j].Token1
	})
	return out
}

