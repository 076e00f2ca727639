package layout

import (
	"dexnetwork/internal/domain"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Per-day per-version metric directories under data_network/<version>/
const (
	MetricInoutFlow              = "inout_flow"
	MetricVolume                 = "volume"
	MetricVolumeIn               = "volume_in"
	MetricVolumeOut              = "volume_out"
	MetricVolumeShare            = "volume_share"
	MetricVolumeInShare          = "volume_in_share"
	MetricVolumeOutShare         = "volume_out_share"
	MetricVolumeTotal            = "volume_total"
	MetricTVL                    = "tvl"
	MetricTVLShare               = "tvl_share"
	MetricInflowCentrality       = "inflow_centrality"
	MetricOutflowCentrality      = "outflow_centrality"
	MetricEigenUndirected        = "eigen_centrality_undirected"
	MetricInflowCentralityRoute  = "inflow_centrality_route"
	MetricOutflowCentralityRoute = "outflow_centrality_route"
	MetricEigenUndirectedRoute   = "eigen_centrality_undirected_route"
	MetricBetweenness            = "betweenness"
	MetricClustering             = "clustering_ind"
	MetricVolInFullLen           = "vol_in_full_len"
	MetricVolOutFullLen          = "vol_out_full_len"
	MetricVolInterFullLen        = "vol_inter_full_len"
	MetricHerfindahl             = "herfindahl"
)

// Layout addresses every artifact of the pipeline by (version, date)
type Layout struct {
	Root string
}

func New(root string) *Layout {
	return &Layout{Root: root}
}

func protocolDir(v domain.Version) string {
	return "data_uniswap_" + string(v)
}

func day(d time.Time) string { return d.UTC().Format(domain.DayLayout) }

func (l *Layout) RawSwaps(v domain.Version, d time.Time) string {
	return filepath.Join(l.Root, protocolDir(v), "swap", day(d)+".csv")
}

// Top-50 list of the month containing d
func (l *Layout) PoolList(v domain.Version, d time.Time) string {
	name := fmt.Sprintf("top50_pairs_list_%s_%s.csv", v, d.UTC().Format(domain.MonthLayout))
	return filepath.Join(l.Root, protocolDir(v), "pool_list", name)
}

func (l *Layout) TVL(v domain.Version, d time.Time) string {
	return filepath.Join(l.Root, protocolDir(v), "tvl", day(d)+".csv")
}

func (l *Layout) Metric(v domain.Version, metric string, d time.Time) string {
	name := fmt.Sprintf("%s_%s_%s.csv", metric, v, day(d))
	return filepath.Join(l.Root, "data_network", string(v), metric, name)
}

func (l *Layout) MetricGlob(v domain.Version, metric string) string {
	return filepath.Join(l.Root, "data_network", string(v), metric, fmt.Sprintf("%s_%s_*.csv", metric, v))
}

func (l *Layout) SwapRoutes(v domain.Version, d time.Time) string {
	name := fmt.Sprintf("DAG_swaps_tx_route_%s_%s.csv", v, day(d))
	return filepath.Join(l.Root, "data_betweenness", "swap_route", name)
}

func (l *Layout) SwapRoutesGlob(v domain.Version) string {
	return filepath.Join(l.Root, "data_betweenness", "swap_route", fmt.Sprintf("DAG_swaps_tx_route_%s_*.csv", v))
}

func (l *Layout) Betweenness(v domain.Version, d time.Time) string {
	name := fmt.Sprintf("betweenness_centrality_%s_%s.csv", v, day(d))
	return filepath.Join(l.Root, "data_betweenness", "betweenness", name)
}

func (l *Layout) NormalizedSwaps(v domain.Version, d time.Time) string {
	name := fmt.Sprintf("normalized_swaps_%s_%s.csv", v, day(d))
	return filepath.Join(l.Root, "data_betweenness", "swap_normalized", name)
}

func (l *Layout) Panel(name string, v domain.Version) string {
	return filepath.Join(l.Root, "data_panel", fmt.Sprintf("%s_%s.csv", name, v))
}

// Relative collaborator paths live under data_external/
func (l *Layout) External(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.Root, "data_external", path)
}

// DateFromName extract date component from "<anything>_YYYYMMDD.csv" or "YYYYMMDD.csv"
func DateFromName(path string) (time.Time, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.LastIndex(base, "_"); i >= 0 {
		base = base[i+1:]
	}
	return time.Parse(domain.DayLayout, base)
}

type DatedFile struct {
	Path string
	Date time.Time
}

// Glob returns the matched files that carry a date, sorted by date
func Glob(pattern string) ([]DatedFile, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern %s, error=%w", pattern, err)
	}

	out := make([]DatedFile, 0, len(matches))
	for _, m := range matches {
		d, err := DateFromName(m)
		if err != nil {
			continue
		}
		out = append(out, DatedFile{Path: m, Date: d})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].Path < out[j].Path
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}
