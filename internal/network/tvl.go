package network

import (
	"dexnetwork/internal/domain"
	"dexnetwork/internal/layout"
	"dexnetwork/internal/normalize"
	"dexnetwork/internal/stores/csvfs"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// TVLReader reads per-pool TVL feeds and aggregates them per token
type TVLReader struct {
	layout *layout.Layout
	pools  *normalize.PoolLists
}

func NewTVLReader(l *layout.Layout, pools *normalize.PoolLists) *TVLReader {
	return &TVLReader{layout: l, pools: pools}
}

// Load per-token TVL of (v, date); merged sums v2 and v3.
// A missing feed contributes nothing; err wraps ErrExternalAbsent only when every source is missing
func (r *TVLReader) Load(v domain.Version, date time.Time) (map[string]float64, error) {
	return r.LoadSources(v, date, v.Sources())
}

// LoadSources like Load restricted to srcs, the versions whose raw swaps exist for the day
func (r *TVLReader) LoadSources(v domain.Version, date time.Time, srcs []domain.Version) (map[string]float64, error) {
	total := make(map[string]float64)
	var missing int

	for _, src := range srcs {
		list, err := r.pools.For(src, date)
		if err != nil {
			return nil, err
		}
		part, err := ReadTVL(r.layout.TVL(src, date), list)
		if err != nil {
			if errors.Is(err, domain.ErrExternalAbsent) {
				missing++
				continue
			}
			return nil, err
		}
		for tok, val := range part {
			total[tok] += val
		}
	}

	if missing == len(srcs) {
		return total, fmt.Errorf("tvl %s %s: %w", v, date.Format(domain.DayLayout), domain.ErrExternalAbsent)
	}
	return total, nil
}

// ReadTVL columns: pool, tvl_usd, optional token0_tvl_usd/token1_tvl_usd (50/50 split when absent),
// optional token0_symbol/token1_symbol (pool list otherwise). Pools outside list are ignored
func ReadTVL(path string, list *normalize.PoolList) (map[string]float64, error) {
	tbl, err := csvfs.ReadTable(path, "pool")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrExternalAbsent)
		}
		return nil, err
	}
	split := tbl.Has("token0_tvl_usd") && tbl.Has("token1_tvl_usd")
	if !split && !tbl.Has("tvl_usd") {
		return nil, &domain.SchemaError{Path: path, Column: "tvl_usd"}
	}

	out := make(map[string]float64)
	for _, row := range tbl.Rows {
		pool := strings.ToLower(tbl.Get(row, "pool"))
		meta, ok := list.Get(pool)
		if !ok {
			continue
		}
		t0, t1 := tbl.Get(row, "token0_symbol"), tbl.Get(row, "token1_symbol")
		if t0 == "" {
			t0 = meta.Token0
		}
		if t1 == "" {
			t1 = meta.Token1
		}
		if t0 == "" || t1 == "" {
			continue
		}

		var v0, v1 float64
		if split {
			v0, v1 = clean(tbl.Float(row, "token0_tvl_usd")), clean(tbl.Float(row, "token1_tvl_usd"))
		} else {
			half := clean(tbl.Float(row, "tvl_usd")) / 2
			v0, v1 = half, half
		}
		out[t0] += v0
		out[t1] += v1
	}

	return out, nil
}
