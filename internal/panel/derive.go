package panel

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Series one value per calendar day of the sample period, NaN where missing
type Series []float64

func seriesOf(f *Frame, token, col string, days []time.Time) Series {
	s := make(Series, len(days))
	for i, d := range days {
		s[i] = f.Get(Key{Token: token, Date: d}, col)
	}
	return s
}

// LogReturns r_t = ln(p_t / p_{t-1}); NaN unless both prices are positive
func LogReturns(p Series) Series {
	r := make(Series, len(p))
	for i := range p {
		r[i] = math.NaN()
		if i == 0 {
			continue
		}
		if p[i] > 0 && p[i-1] > 0 && !math.IsInf(p[i], 0) && !math.IsInf(p[i-1], 0) {
			r[i] = math.Log(p[i] / p[i-1])
		}
	}
	return r
}

func window(s Series, end, w int) ([]float64, bool) {
	if w < 2 || end+1 < w {
		return nil, false
	}
	out := s[end+1-w : end+1]
	for _, v := range out {
		if math.IsNaN(v) {
			return nil, false
		}
	}
	return out, true
}

// RollingStd sample standard deviation over the last w values; a window with a gap gives NaN
func RollingStd(s Series, w int) Series {
	out := make(Series, len(s))
	for i := range s {
		out[i] = math.NaN()
		if x, ok := window(s, i, w); ok {
			out[i] = stat.StdDev(x, nil)
		}
	}
	return out
}

// RollingCorr Pearson correlation over the last w pairs; gaps or a constant side give NaN
func RollingCorr(a, b Series, w int) Series {
	out := make(Series, len(a))
	for i := range a {
		out[i] = math.NaN()
		x, ok := window(a, i, w)
		if !ok {
			continue
		}
		y, ok := window(b, i, w)
		if !ok {
			continue
		}
		if c := stat.Correlation(x, y, nil); !math.IsNaN(c) && !math.IsInf(c, 0) {
			out[i] = c
		}
	}
	return out
}
