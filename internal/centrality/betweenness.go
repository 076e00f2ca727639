package centrality

import (
	"dexnetwork/internal/domain"
	"dexnetwork/internal/network"
	"sort"
)

// Betweenness over simple routes, for every token appearing in one:
//
//	count(n)  = |{r : n in intermediary(r)}| / |{r : n != source(r), n != target(r)}|
//	volume(n) = same with volume_usd sums instead of counts
//
// A zero denominator gives 0
func Betweenness(routes []domain.Route) []domain.BetweennessRow {
	simple := network.SimpleRoutes(routes)

	nodes := make(map[string]struct{})
	for _, r := range simple {
		for _, t := range r.Tokens {
			nodes[t] = struct{}{}
		}
	}

	var totalCount, totalVolume float64
	endCount := make(map[string]float64)
	endVolume := make(map[string]float64)
	interCount := make(map[string]float64)
	interVolume := make(map[string]float64)

	for _, r := range simple {
		v := r.VolumeUSD
		if v < 0 {
			v = 0
		}
		totalCount++
		totalVolume += v

		endCount[r.UltimateSource]++
		endVolume[r.UltimateSource] += v
		if r.UltimateTarget != r.UltimateSource {
			endCount[r.UltimateTarget]++
			endVolume[r.UltimateTarget] += v
		}

		seen := make(map[string]struct{}, len(r.Intermediary))
		for _, t := range r.Intermediary {
			if t == r.UltimateSource || t == r.UltimateTarget {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			interCount[t]++
			interVolume[t] += v
		}
	}

	out := make([]domain.BetweennessRow, 0, len(nodes))
	for n := range nodes {
		out = append(out, domain.BetweennessRow{
			Node:   n,
			Count:  ratio(interCount[n], totalCount-endCount[n]),
			Volume: ratio(interVolume[n], totalVolume-endVolume[n]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Node < out[j].Node })

	return out
}

func ratio(num, den float64) float64 {
	if den <= 0 || num <= 0 {
		return 0
	}
	r := num / den
	if r > 1 {
		// rounding on float volume sums
		return 1
	}
	return r
}
