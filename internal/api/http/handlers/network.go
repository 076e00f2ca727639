package handlers

import (
	"dexnetwork/internal/centrality"
	"dexnetwork/internal/domain"
	"dexnetwork/internal/layout"
	"dexnetwork/internal/route"
	"dexnetwork/internal/stores/csvfs"
	"dexnetwork/pkg/httputil"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"gitlab.com/nevasik7/alerting/logger"
)

// Network serves the per-day artifacts of the data tree
type Network struct {
	log    logger.Logger
	layout *layout.Layout
}

func NewNetwork(log logger.Logger, l *layout.Layout) *Network {
	return &Network{log: log, layout: l}
}

type HerfindahlResponse struct {
	Date                  string  `json:"date"`
	Version               string  `json:"version"`
	HerfVolume            float64 `json:"herfindahl_volume"`
	HerfInflow            float64 `json:"herfindahl_inflow_centrality"`
	HerfOutflow           float64 `json:"herfindahl_outflow_centrality"`
	HerfBetweennessCount  float64 `json:"herfindahl_betweenness_count"`
	HerfBetweennessVolume float64 `json:"herfindahl_betweenness_volume"`
	HerfTVL               float64 `json:"herfindahl_tvl"`
	AvgClustering         float64 `json:"avg_clustering"`
	Nodes                 int     `json:"nodes"`
	Edges                 int     `json:"edges"`
}

type TokenMeasures struct {
	Token    string             `json:"token"`
	Measures map[string]float64 `json:"measures"`
}

type RouteSummary struct {
	Date         string             `json:"date"`
	Version      string             `json:"version"`
	Transactions int                `json:"transactions"`
	Labels       domain.LabelCounts `json:"labels"`
	VolumeUSD    map[string]float64 `json:"volume_usd"`
	MaxChain     int                `json:"max_chain_length"`
}

// per-token files served by the tokens endpoint: metric dir, key column, value column -> measure
var tokenMeasures = []struct {
	metric string
	key    string
	cols   map[string]string
}{
	{layout.MetricVolumeShare, "token", map[string]string{"volume_share": "volume_share"}},
	{layout.MetricVolumeInShare, "token", map[string]string{"volume_in_share": "volume_in_share"}},
	{layout.MetricVolumeOutShare, "token", map[string]string{"volume_out_share": "volume_out_share"}},
	{layout.MetricTVLShare, "token", map[string]string{"tvl_share": "tvl_share"}},
	{layout.MetricInflowCentrality, "token", map[string]string{"eigenvector_centrality": "inflow_centrality"}},
	{layout.MetricOutflowCentrality, "token", map[string]string{"eigenvector_centrality": "outflow_centrality"}},
	{layout.MetricBetweenness, "node", map[string]string{
		"betweenness_centrality_count":  "betweenness_centrality_count",
		"betweenness_centrality_volume": "betweenness_centrality_volume",
	}},
	{layout.MetricClustering, "token", map[string]string{"clustering": "clustering_coefficient"}},
}

func (n *Network) params(w http.ResponseWriter, r *http.Request) (domain.Version, time.Time, bool) {
	v, err := domain.ParseVersion(chi.URLParam(r, "version"))
	if err != nil {
		_ = httputil.BadRequest(w, r, err.Error(), nil)
		return "", time.Time{}, false
	}

	raw := chi.URLParam(r, "date")
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		if d, err = time.Parse(domain.DayLayout, raw); err != nil {
			_ = httputil.BadRequest(w, r, fmt.Sprintf("bad date %q, want YYYY-MM-DD", raw), nil)
			return "", time.Time{}, false
		}
	}
	return v, d, true
}

func (n *Network) fail(w http.ResponseWriter, r *http.Request, what string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		_ = httputil.NotFound(w, r, what+" not computed")
		return
	}
	n.log.Errorf("failed read %s, error=%v", what, err)
	_ = httputil.Error(w, r, http.StatusInternalServerError, "internal", "failed read "+what, nil)
}

func (n *Network) Herfindahl(w http.ResponseWriter, r *http.Request) {
	v, d, ok := n.params(w, r)
	if !ok {
		return
	}

	a, err := centrality.ReadHerfindahl(n.layout.Metric(v, layout.MetricHerfindahl, d))
	if err != nil {
		n.fail(w, r, "herfindahl", err)
		return
	}

	if err = httputil.Cached(w, HerfindahlResponse{
		Date:                  a.Date.Format(time.DateOnly),
		Version:               string(a.Version),
		HerfVolume:            a.HerfVolume,
		HerfInflow:            a.HerfInflow,
		HerfOutflow:           a.HerfOutflow,
		HerfBetweennessCount:  a.HerfBetweennessCount,
		HerfBetweennessVolume: a.HerfBetweennessVolume,
		HerfTVL:               a.HerfTVL,
		AvgClustering:         a.AvgClustering,
		Nodes:                 a.Nodes,
		Edges:                 a.Edges,
	}); err != nil {
		n.log.Errorf("Herfindahl handler error: %s", err.Error())
	}
}

// Tokens every per-token measure of the day; a measure file not yet written is left out
func (n *Network) Tokens(w http.ResponseWriter, r *http.Request) {
	v, d, ok := n.params(w, r)
	if !ok {
		return
	}

	byToken := make(map[string]map[string]float64)
	found := 0
	for _, m := range tokenMeasures {
		cols := make([]string, 0, len(m.cols)+1)
		cols = append(cols, m.key)
		for c := range m.cols {
			cols = append(cols, c)
		}

		tbl, err := csvfs.ReadTable(n.layout.Metric(v, m.metric, d), cols...)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			n.fail(w, r, m.metric, err)
			return
		}
		found++

		for _, row := range tbl.Rows {
			tok := tbl.Get(row, m.key)
			if byToken[tok] == nil {
				byToken[tok] = make(map[string]float64)
			}
			for col, name := range m.cols {
				byToken[tok][name] = tbl.Float(row, col)
			}
		}
	}

	if found == 0 {
		_ = httputil.NotFound(w, r, "token measures not computed")
		return
	}

	out := make([]TokenMeasures, 0, len(byToken))
	for tok, ms := range byToken {
		out = append(out, TokenMeasures{Token: tok, Measures: ms})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })

	if err := httputil.Cached(w, map[string]any{
		"date":    d.Format(time.DateOnly),
		"version": v,
		"tokens":  out,
	}); err != nil {
		n.log.Errorf("Tokens handler error: %s", err.Error())
	}
}

func (n *Network) RouteSummary(w http.ResponseWriter, r *http.Request) {
	v, d, ok := n.params(w, r)
	if !ok {
		return
	}

	routes, err := route.Read(n.layout.SwapRoutes(v, d), v)
	if err != nil {
		n.fail(w, r, "routes", err)
		return
	}

	sum := RouteSummary{
		Date:         d.Format(time.DateOnly),
		Version:      string(v),
		Transactions: len(routes),
		VolumeUSD:    make(map[string]float64, 4),
	}
	for i := range routes {
		rt := &routes[i]
		sum.Labels.Add(rt.Label)
		sum.VolumeUSD[rt.Label.String()] += rt.VolumeUSD
		if rt.ChainLength > sum.MaxChain {
			sum.MaxChain = rt.ChainLength
		}
	}

	if err = httputil.Cached(w, sum); err != nil {
		n.log.Errorf("RouteSummary handler error: %s", err.Error())
	}
}
