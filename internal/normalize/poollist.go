package normalize

import (
	"dexnetwork/internal/domain"
	"dexnetwork/internal/layout"
	"dexnetwork/internal/stores/csvfs"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var poolColumns = []string{"pool", "id", "address", "pair", "pair_address", "pool_address"}

type PoolMeta struct {
	Address string
	Token0  string
	Token1  string
}

// Month top-50 list of one version
type PoolList struct {
	Version domain.Version
	Month   string
	pools   map[string]PoolMeta
}

func (p *PoolList) Contains(pool string) bool {
	_, ok := p.pools[strings.ToLower(pool)]
	return ok
}

func (p *PoolList) Get(pool string) (PoolMeta, bool) {
	m, ok := p.pools[strings.ToLower(pool)]
	return m, ok
}

func (p *PoolList) Len() int { return len(p.pools) }

// Addresses sorted
func (p *PoolList) Addresses() []string {
	out := make([]string, 0, len(p.pools))
	for a := range p.pools {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// ReadPoolList parse a top-50 list; any failure is a *domain.ConfigError
func ReadPoolList(path string, v domain.Version, month string) (*PoolList, error) {
	tbl, err := csvfs.ReadTable(path)
	if err != nil {
		return nil, &domain.ConfigError{Field: "pool_list", Err: fmt.Errorf("read %s: %w", path, err)}
	}

	col, ok := tbl.Pick(poolColumns...)
	if !ok {
		return nil, &domain.ConfigError{Field: "pool_list", Err: &domain.SchemaError{Path: path, Column: "pool"}}
	}

	list := &PoolList{Version: v, Month: month, pools: make(map[string]PoolMeta, len(tbl.Rows))}
	for i, row := range tbl.Rows {
		addr := strings.ToLower(tbl.Get(row, col))
		if !isAddress(addr) {
			return nil, &domain.ConfigError{
				Field: "pool_list",
				Err:   fmt.Errorf("%s row %d: invalid pool address %q", path, i+2, addr),
			}
		}
		list.pools[addr] = PoolMeta{
			Address: addr,
			Token0:  tbl.Get(row, "token0_symbol"),
			Token1:  tbl.Get(row, "token1_symbol"),
		}
	}

	if len(list.pools) == 0 {
		return nil, &domain.ConfigError{Field: "pool_list", Err: fmt.Errorf("%s: empty pool list", path)}
	}

	return list, nil
}

// 0x + 40 hex digits
func isAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// PoolLists caches month lists; read-only after the first load of a month
type PoolLists struct {
	layout *layout.Layout

	mu    sync.Mutex
	cache map[string]*PoolList
}

func NewPoolLists(l *layout.Layout) *PoolLists {
	return &PoolLists{layout: l, cache: make(map[string]*PoolList)}
}

func (p *PoolLists) For(v domain.Version, date time.Time) (*PoolList, error) {
	if v == domain.Merged {
		return nil, errors.New("merged has no pool list of its own")
	}

	month := date.UTC().Format(domain.MonthLayout)
	key := string(v) + ":" + month

	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.cache[key]; ok {
		return l, nil
	}

	l, err := ReadPoolList(p.layout.PoolList(v, date), v, month)
	if err != nil {
		return nil, err
	}
	p.cache[key] = l

	return l, nil
}
