package centrality

import (
	"dexnetwork/internal/domain"
	"math"
	"sort"
)

// Clustering weighted clustering coefficient per token of the undirected pair graph:
//
//	c(u) = 2 / (deg(u)(deg(u)-1)) * sum over triangles (u,v,w) of (ŵuv ŵuw ŵvw)^(1/3)
//
// with weights normalized by the largest weight. deg < 2 gives 0
func Clustering(pairs []domain.PairVolume) map[string]float64 {
	adj := make(map[string]map[string]float64)
	add := func(a, b string, w float64) {
		if adj[a] == nil {
			adj[a] = make(map[string]float64)
		}
		adj[a][b] += w
	}

	for _, p := range pairs {
		if p.Token0 == p.Token1 || p.Token0 == "" || p.Token1 == "" {
			continue
		}
		w := p.Volume
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			w = 0
		}
		add(p.Token0, p.Token1, w)
		add(p.Token1, p.Token0, w)
	}

	var maxW float64
	for _, nbrs := range adj {
		for _, w := range nbrs {
			if w > maxW {
				maxW = w
			}
		}
	}

	nodes := make([]string, 0, len(adj))
	for n := range adj {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	out := make(map[string]float64, len(nodes))
	for _, u := range nodes {
		nbrs := adj[u]
		deg := len(nbrs)
		if deg < 2 || maxW == 0 {
			out[u] = 0
			continue
		}

		list := make([]string, 0, deg)
		for v := range nbrs {
			list = append(list, v)
		}
		sort.Strings(list)

		var tri float64
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				v, w := list[i], list[j]
				wvw, ok := adj[v][w]
				if !ok {
					continue
				}
				tri += math.Cbrt((nbrs[v] / maxW) * (nbrs[w] / maxW) * (wvw / maxW))
			}
		}

		out[u] = 2 * tri / float64(deg*(deg-1))
	}

	return out
}

// Average over every node; 0 for an empty graph
func AverageClustering(c map[string]float64) float64 {
	if len(c) == 0 {
		return 0
	}
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var s float64
	for _, k := range keys {
		s += c[k]
	}
	return s / float64(len(c))
}
