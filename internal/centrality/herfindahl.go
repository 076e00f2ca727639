package centrality

import "math"

// Herfindahl normalized concentration: sum of (x_i / sum x)^2.
// NaN/Inf count as 0, negatives are clipped, an empty or all-zero vector gives 0
func Herfindahl(x []float64) float64 {
	var total float64
	for _, v := range x {
		total += clip(v)
	}
	if total == 0 {
		return 0
	}

	var h float64
	for _, v := range x {
		s := clip(v) / total
		h += s * s
	}
	return h
}

func clip(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
