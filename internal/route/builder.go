package route

import (
	"dexnetwork/internal/domain"
	"math"

	"github.com/shopspring/decimal"
)

const DefaultEpsilon = 1e-9

// Builder turns the sub-swaps of each transaction into one classified route
type Builder struct {
	eps decimal.Decimal
}

func NewBuilder(eps float64) *Builder {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	return &Builder{eps: decimal.NewFromFloat(eps)}
}

// Build one route per transaction, in order of first appearance of the tx in swaps
func (b *Builder) Build(swaps []domain.SubSwap) []domain.Route {
	order := make([]string, 0)
	groups := make(map[string][]domain.SubSwap)
	for _, s := range swaps {
		if _, ok := groups[s.TxID]; !ok {
			order = append(order, s.TxID)
		}
		groups[s.TxID] = append(groups[s.TxID], s)
	}

	out := make([]domain.Route, 0, len(order))
	for _, id := range order {
		out = append(out, b.BuildTx(id, groups[id]))
	}
	return out
}

func (b *Builder) BuildTx(id string, swaps []domain.SubSwap) domain.Route {
	r := domain.Route{ID: id, VolumeUSD: meanUSD(swaps)}
	if len(swaps) > 0 {
		r.Version = swaps[0].Version
	}

	tokens, ok := b.order(swaps)
	if !ok {
		r.Label = domain.LabelError
		r.NewList = domain.Flat()
		return r
	}

	r.Tokens = tokens
	r.UltimateSource = tokens[0]
	r.UltimateTarget = tokens[len(tokens)-1]
	r.Intermediary = append([]string{}, tokens[1:len(tokens)-1]...)
	r.ChainLength = len(tokens)
	r.Label, r.NewList = Classify(tokens)

	return r
}

// Mean USD over every sub-swap; unvalued hops count as 0
func meanUSD(swaps []domain.SubSwap) float64 {
	if len(swaps) == 0 {
		return 0
	}
	var sum float64
	for _, s := range swaps {
		if s.AmountUSD > 0 && !math.IsInf(s.AmountUSD, 1) {
			sum += s.AmountUSD
		}
	}
	return sum / float64(len(swaps))
}

// order linearize the per-tx multidigraph over sub-swaps into a token sequence
func (b *Builder) order(swaps []domain.SubSwap) ([]string, bool) {
	switch len(swaps) {
	case 0:
		return nil, false
	case 1:
		return []string{swaps[0].Source, swaps[0].Target}, true
	}

	n := len(swaps)
	succ := make([][]int, n)
	indeg := make([]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || !b.links(&swaps[i], &swaps[j]) {
				continue
			}
			succ[i] = append(succ[i], j)
			indeg[j]++
		}
	}

	for start := 0; start < n; start++ {
		if indeg[start] != 0 {
			continue
		}
		if path, ok := walk(start, succ, n); ok {
			tokens := make([]string, 0, n+1)
			for _, i := range path {
				tokens = append(tokens, swaps[i].Source)
			}
			tokens = append(tokens, swaps[path[n-1]].Target)
			return tokens, true
		}
	}

	// no start (pure cycle) or no start covers every sub-swap
	return nil, false
}

// i delivers exactly what j consumes
func (b *Builder) links(i, j *domain.SubSwap) bool {
	if i.Target != j.Source {
		return false
	}
	return i.PoolOutVolume.Add(j.PoolInVolume).Abs().LessThan(b.eps)
}

func walk(start int, succ [][]int, n int) ([]int, bool) {
	visited := make([]bool, n)
	path := make([]int, 0, n)

	cur := start
	visited[cur] = true
	path = append(path, cur)

	for len(path) < n {
		next := -1
		for _, j := range succ[cur] {
			if visited[j] {
				continue
			}
			if next >= 0 {
				return nil, false
			}
			next = j
		}
		if next < 0 {
			return nil, false
		}
		visited[next] = true
		path = append(path, next)
		cur = next
	}

	return path, true
}
