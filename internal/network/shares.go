package network

import (
	"dexnetwork/internal/domain"
	"math"
	"sort"
)

// Shares turn per-token values into rows sorted by token.
// NaN/Inf and negatives count as 0; all shares are 0 when the total is 0
func Shares(values map[string]float64) []domain.TokenValue {
	out := make([]domain.TokenValue, 0, len(values))
	var total float64
	for tok, v := range values {
		v = clean(v)
		total += v
		out = append(out, domain.TokenValue{Token: tok, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })

	if total > 0 {
		for i := range out {
			out[i].Share = out[i].Value / total
		}
	}
	return out
}

func clean(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Lookup by token
func ValueMap(rows []domain.TokenValue) map[string]domain.TokenValue {
	m := make(map[string]domain.TokenValue, len(rows))
	for _, r := range rows {
		m[r.Token] = r
	}
	return m
}
