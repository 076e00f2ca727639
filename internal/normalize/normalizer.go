package normalize

import (
	"context"
	"dexnetwork/internal/domain"
	"dexnetwork/internal/layout"
	"dexnetwork/internal/stores/csvfs"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/nevasik7/alerting/logger"
)

var (
	commonColumns = []string{"transaction", "timestamp", "token0_symbol", "token1_symbol", "amountUSD"}
	v2Columns     = []string{"amount0In", "amount0Out", "amount1In", "amount1Out"}
	v3Columns     = []string{"amount0", "amount1"}
)

// What happened to the raw rows of one (date, version)
type Stats struct {
	Rows         int
	Malformed    int
	TxKept       int
	TxDropped    int
	SwapsKept    int
	SwapsZeroUSD int
}

type Normalizer struct {
	log    logger.Logger
	layout *layout.Layout
	pools  *PoolLists
}

func NewNormalizer(log logger.Logger, l *layout.Layout, pools *PoolLists) *Normalizer {
	if pools == nil {
		pools = NewPoolLists(l)
	}
	return &Normalizer{log: log, layout: l, pools: pools}
}

func (n *Normalizer) Pools() *PoolLists { return n.pools }

// Load normalize raw swaps of (v, date). v must be v2 or v3.
// ErrRawMissing when the raw table doesn't exist, *SchemaError when a column is missing,
// *ConfigError when the month pool list can't be used
func (n *Normalizer) Load(ctx context.Context, v domain.Version, date time.Time) ([]domain.SubSwap, Stats, error) {
	var st Stats
	if v != domain.V2 && v != domain.V3 {
		return nil, st, fmt.Errorf("normalize: unsupported version %s", v)
	}

	path := n.layout.RawSwaps(v, date)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, st, fmt.Errorf("%s: %w", path, domain.ErrRawMissing)
		}
		return nil, st, fmt.Errorf("failed stat raw table %s, error=%w", path, err)
	}

	list, err := n.pools.For(v, date)
	if err != nil {
		return nil, st, err
	}

	if err = ctx.Err(); err != nil {
		return nil, st, err
	}

	swaps, st, err := ReadRaw(path, v, list)
	if err != nil {
		return nil, st, err
	}

	if st.Malformed > 0 {
		n.log.Warnf("normalize %s %s: %d malformed rows dropped with their transactions", v, date.Format(domain.DayLayout), st.Malformed)
	}
	n.log.Debugf("normalize %s %s: rows=%d tx_kept=%d tx_dropped=%d", v, date.Format(domain.DayLayout), st.Rows, st.TxKept, st.TxDropped)

	return swaps, st, nil
}

// ReadRaw parse one raw table and apply the pool list filter
func ReadRaw(path string, v domain.Version, list *PoolList) ([]domain.SubSwap, Stats, error) {
	var st Stats

	required := append([]string{}, commonColumns...)
	if v == domain.V2 {
		required = append(required, v2Columns...)
	} else {
		required = append(required, v3Columns...)
	}

	tbl, err := csvfs.ReadTable(path, required...)
	if err != nil {
		return nil, st, err
	}
	poolCol, ok := tbl.Pick("pool", "pair")
	if !ok {
		return nil, st, &domain.SchemaError{Path: path, Column: "pool"}
	}

	st.Rows = len(tbl.Rows)
	parsed := make([]domain.SubSwap, 0, len(tbl.Rows))
	bad := make(map[string]struct{})

	for _, row := range tbl.Rows {
		s, err := parseRow(tbl, row, poolCol, v, list)
		if err != nil {
			st.Malformed++
			if s.TxID != "" {
				bad[s.TxID] = struct{}{}
			}
			continue
		}
		parsed = append(parsed, s)
	}

	return Filter(parsed, list, bad, &st), st, nil
}

func parseRow(tbl *csvfs.Table, row []string, poolCol string, v domain.Version, list *PoolList) (domain.SubSwap, error) {
	s := domain.SubSwap{
		TxID:    strings.ToLower(tbl.Get(row, "transaction")),
		Pool:    strings.ToLower(tbl.Get(row, poolCol)),
		Token0:  tbl.Get(row, "token0_symbol"),
		Token1:  tbl.Get(row, "token1_symbol"),
		Version: v,
	}
	if s.TxID == "" {
		return s, errors.New("empty transaction")
	}

	if meta, ok := list.Get(s.Pool); ok {
		if s.Token0 == "" {
			s.Token0 = meta.Token0
		}
		if s.Token1 == "" {
			s.Token1 = meta.Token1
		}
	}
	if s.Token0 == "" || s.Token1 == "" {
		return s, errors.New("empty token symbol")
	}

	s.Timestamp = parseTimestamp(tbl.Get(row, "timestamp"))

	var amount0, amount1 decimal.Decimal
	var err error
	if v == domain.V2 {
		amount0, err = net(tbl.Get(row, "amount0In"), tbl.Get(row, "amount0Out"))
		if err != nil {
			return s, err
		}
		amount1, err = net(tbl.Get(row, "amount1In"), tbl.Get(row, "amount1Out"))
		if err != nil {
			return s, err
		}
	} else {
		if amount0, err = parseAmount(tbl.Get(row, "amount0")); err != nil {
			return s, err
		}
		if amount1, err = parseAmount(tbl.Get(row, "amount1")); err != nil {
			return s, err
		}
	}

	Orient(&s, amount0, amount1)

	usd := tbl.Float(row, "amountUSD")
	if usd < 0 || math.IsNaN(usd) {
		usd = 0
	}
	s.AmountUSD = usd

	return s, nil
}

// Orient set Source/Target from the pool's signed token deltas
func Orient(s *domain.SubSwap, amount0, amount1 decimal.Decimal) {
	if amount0.IsPositive() {
		s.Source, s.Target = s.Token0, s.Token1
		s.PoolInVolume, s.PoolOutVolume = amount0, amount1
		return
	}
	s.Source, s.Target = s.Token1, s.Token0
	s.PoolInVolume, s.PoolOutVolume = amount1, amount0
}

func net(in, out string) (decimal.Decimal, error) {
	a, err := parseAmount(in)
	if err != nil {
		return decimal.Zero, err
	}
	b, err := parseAmount(out)
	if err != nil {
		return decimal.Zero, err
	}
	return a.Sub(b), nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

func parseTimestamp(s string) int64 {
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) {
		return int64(f)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix()
	}
	return 0
}

// Filter drop every transaction with a sub-swap outside list (or listed in bad),
// keep input order and set Distance
func Filter(swaps []domain.SubSwap, list *PoolList, bad map[string]struct{}, st *Stats) []domain.SubSwap {
	if st == nil {
		st = &Stats{}
	}

	dropped := make(map[string]struct{}, len(bad))
	for id := range bad {
		dropped[id] = struct{}{}
	}
	seen := make(map[string]struct{})
	for i := range swaps {
		seen[swaps[i].TxID] = struct{}{}
		if !list.Contains(swaps[i].Pool) {
			dropped[swaps[i].TxID] = struct{}{}
		}
	}
	for id := range bad {
		seen[id] = struct{}{}
	}

	distance := make(map[string]int)
	out := make([]domain.SubSwap, 0, len(swaps))
	for _, s := range swaps {
		if _, drop := dropped[s.TxID]; drop {
			continue
		}
		distance[s.TxID]++
		out = append(out, s)
	}
	for i := range out {
		out[i].Distance = distance[out[i].TxID]
		if out[i].AmountUSD == 0 {
			st.SwapsZeroUSD++
		}
	}

	st.TxDropped = len(dropped)
	st.TxKept = len(seen) - len(dropped)
	st.SwapsKept = len(out)

	return out
}
