package centrality

import (
	"dexnetwork/internal/domain"
	"dexnetwork/internal/network"
	"dexnetwork/internal/testutil"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========== Test Helpers ==========

func simple(tokens []string, usd float64) domain.Route {
	return domain.Route{
		Tokens:         tokens,
		UltimateSource: tokens[0],
		UltimateTarget: tokens[len(tokens)-1],
		Intermediary:   tokens[1 : len(tokens)-1],
		VolumeUSD:      usd,
		ChainLength:    len(tokens),
		Label:          domain.LabelSimple,
	}
}

func btwByNode(rows []domain.BetweennessRow) map[string]domain.BetweennessRow {
	m := make(map[string]domain.BetweennessRow, len(rows))
	for _, r := range rows {
		m[r.Node] = r
	}
	return m
}

func swap(pool, src, tgt string, usd float64) domain.SubSwap {
	return domain.SubSwap{TxID: pool, Pool: pool, Source: src, Target: tgt, AmountUSD: usd, Version: domain.V2}
}

// ========== Betweenness ==========

func TestBetweenness_SingleSimpleRoute(t *testing.T) {
	rows := btwByNode(Betweenness([]domain.Route{simple([]string{"A", "B", "C"}, 100)}))

	assert.Equal(t, 1.0, rows["B"].Count)
	assert.Equal(t, 1.0, rows["B"].Volume)
	assert.Equal(t, 0.0, rows["A"].Count)
	assert.Equal(t, 0.0, rows["C"].Volume)
}

func TestBetweenness_LoopExcluded(t *testing.T) {
	loop := domain.Route{
		Tokens: []string{"A", "B", "A"}, UltimateSource: "A", UltimateTarget: "A",
		Intermediary: []string{"B"}, VolumeUSD: 10, ChainLength: 3, Label: domain.LabelLoop,
	}
	spoon := domain.Route{
		Tokens: []string{"A", "B", "C", "B"}, UltimateSource: "A", UltimateTarget: "B",
		Intermediary: []string{"B", "C"}, VolumeUSD: 10, ChainLength: 4, Label: domain.LabelSpoon,
	}
	broken := domain.Route{Label: domain.LabelError, VolumeUSD: 10}

	rows := btwByNode(Betweenness([]domain.Route{loop, spoon, broken}))
	assert.Equal(t, 0.0, rows["B"].Count)
	assert.Empty(t, rows)
}

func TestBetweenness_Formula(t *testing.T) {
	routes := []domain.Route{
		simple([]string{"A", "B", "C"}, 100),
		simple([]string{"A", "D"}, 300),
		simple([]string{"D", "B", "A"}, 50),
		simple([]string{"C", "E"}, 10),
	}

	rows := btwByNode(Betweenness(routes))

	// B: intermediary in r1, r3; not an endpoint in any route -> 2/4
	assert.InDelta(t, 0.5, rows["B"].Count, 1e-12)
	assert.InDelta(t, 150.0/460.0, rows["B"].Volume, 1e-12)
	// D: endpoint in r2 and r3, never an intermediary
	assert.Equal(t, 0.0, rows["D"].Count)

	for _, r := range rows {
		assert.GreaterOrEqual(t, r.Count, 0.0)
		assert.LessOrEqual(t, r.Count, 1.0)
		assert.GreaterOrEqual(t, r.Volume, 0.0)
		assert.LessOrEqual(t, r.Volume, 1.0)
	}
}

// ========== Eigenvector ==========

func TestEigenvector_Symmetric(t *testing.T) {
	res := Eigenvector([][]float64{{0, 1}, {1, 0}}, 100, 1e-9)
	require.True(t, res.Converged)
	assert.InDelta(t, 1/math.Sqrt2, res.Values[0], 1e-9)
	assert.InDelta(t, 1/math.Sqrt2, res.Values[1], 1e-9)
}

func TestEigenvector_InflowOutflow(t *testing.T) {
	g := network.FlowGraph([]domain.FlowEdge{
		{Source: "A", Target: "B", Volume: 10},
		{Source: "C", Target: "B", Volume: 10},
	})
	d := Directions(g, 1000, 1e-9)

	ia, _ := g.Index("A")
	ib, _ := g.Index("B")
	ic, _ := g.Index("C")

	assert.Greater(t, d.Inflow.Values[ib], d.Inflow.Values[ia])
	assert.Greater(t, d.Outflow.Values[ia], d.Outflow.Values[ib])
	assert.InDelta(t, d.Outflow.Values[ia], d.Outflow.Values[ic], 1e-9)
	assert.Greater(t, d.Undirected.Values[ib], d.Undirected.Values[ia])

	for _, er := range []EigenResult{d.Inflow, d.Outflow, d.Undirected} {
		var sum float64
		for _, v := range er.Values {
			assert.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		assert.Greater(t, sum, 0.0)
	}
}

func TestEigenvector_NotConvergedKeepsLastIterate(t *testing.T) {
	adj := [][]float64{{0, 5, 1}, {2, 0, 7}, {3, 1, 0}}
	res := Eigenvector(adj, 1, 1e-15)
	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Iterations)
	assert.Len(t, res.Values, 3)
}

func TestEigenvector_Empty(t *testing.T) {
	res := Eigenvector(nil, 10, 1e-6)
	assert.Empty(t, res.Values)
}

// ========== Clustering / Herfindahl ==========

func TestClustering(t *testing.T) {
	tri := Clustering([]domain.PairVolume{
		{Token0: "A", Token1: "B", Volume: 2},
		{Token0: "A", Token1: "C", Volume: 2},
		{Token0: "B", Token1: "C", Volume: 2},
		{Token0: "C", Token1: "D", Volume: 2},
	})

	assert.InDelta(t, 1.0, tri["A"], 1e-12)
	assert.InDelta(t, 1.0, tri["B"], 1e-12)
	// C has 3 neighbours, one triangle
	assert.InDelta(t, 1.0/3.0, tri["C"], 1e-12)
	assert.Equal(t, 0.0, tri["D"])
	assert.InDelta(t, (1+1+1.0/3.0)/4, AverageClustering(tri), 1e-12)

	weighted := Clustering([]domain.PairVolume{
		{Token0: "A", Token1: "B", Volume: 8},
		{Token0: "A", Token1: "C", Volume: 1},
		{Token0: "B", Token1: "C", Volume: 1},
	})
	assert.InDelta(t, math.Cbrt(1.0/64.0), weighted["A"], 1e-12)

	assert.Equal(t, 0.0, AverageClustering(nil))
}

func TestHerfindahl(t *testing.T) {
	testCases := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"zeros", []float64{0, 0}, 0},
		{"equal_raw", []float64{3, 3}, 0.5},
		{"pre_normalized", []float64{0.2, 0.3, 0.5}, 0.04 + 0.09 + 0.25},
		{"monopoly", []float64{0, 7}, 1},
		{"nan_inf_negative", []float64{math.NaN(), math.Inf(1), -4, 2}, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Herfindahl(tc.in), 1e-12)
		})
	}
}

// ========== Engine ==========

func TestEngine_Compute(t *testing.T) {
	swaps := []domain.SubSwap{
		swap("p1", "X", "Y", 30),
		swap("p2", "Y", "Z", 20),
		swap("p3", "Z", "X", 50),
	}
	routes := []domain.Route{
		simple([]string{"X", "Y", "Z"}, 25),
		{ID: "bad", Label: domain.LabelError, VolumeUSD: 1e9},
	}
	tvl := map[string]float64{"X": 10, "Y": 30}
	date := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)

	d := network.Assemble(domain.V2, date, swaps, routes, tvl)
	res := NewEngine(testutil.Noop(), Options{Stablecoins: []string{"Y"}}).Compute(d)

	require.Len(t, res.Tokens, 3)
	var volShare float64
	var herf float64
	for _, td := range res.Tokens {
		volShare += td.VolumeShare
		herf += td.VolumeShare * td.VolumeShare
		assert.GreaterOrEqual(t, td.InflowCentrality, 0.0)
		assert.GreaterOrEqual(t, td.OutflowCentrality, 0.0)
	}
	assert.InDelta(t, 1.0, volShare, 1e-9)
	assert.InDelta(t, herf, res.Aggregate.HerfVolume, 1e-12)

	assert.Equal(t, 3, res.Aggregate.Nodes)
	assert.Equal(t, 3, res.Aggregate.Edges)
	assert.InDelta(t, 0.25*0.25+0.75*0.75, res.Aggregate.HerfTVL, 1e-12)
	assert.InDelta(t, 1.0, res.Aggregate.HerfBetweennessCount, 1e-12)
	// one triangle, weights normalized by the largest (50)
	assert.InDelta(t, math.Cbrt(0.6*1*0.4), res.Aggregate.AvgClustering, 1e-12)

	require.Len(t, res.Inflow, 3)
	assert.Equal(t, "Y", res.Inflow[1].Token)
	assert.True(t, res.Inflow[1].Stable)
	assert.Equal(t, 30.0, res.Inflow[1].TotalTVL)
	assert.Equal(t, 1.0, res.Inflow[1].Betweenness)
	assert.Equal(t, 2, res.Inflow[1].Degree)

	require.Len(t, res.InflowRoute, 2)
	assert.Equal(t, []string{"X", "Z"}, []string{res.InflowRoute[0].Token, res.InflowRoute[1].Token})
}

func TestEngine_EmptyDay(t *testing.T) {
	d := network.Assemble(domain.V3, time.Now().UTC(), nil, nil, nil)
	res := NewEngine(testutil.Noop(), Options{}).Compute(d)

	assert.Empty(t, res.Tokens)
	assert.Equal(t, 0.0, res.Aggregate.HerfVolume)
	assert.Equal(t, 0.0, res.Aggregate.HerfInflow)
	assert.Equal(t, 0, res.Aggregate.Nodes)
}

func TestHerfindahlCSV_RoundTrip(t *testing.T) {
	a := domain.DailyAggregate{
		Date:       time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC),
		Version:    domain.Merged,
		HerfVolume: 0.3, HerfInflow: 0.25, HerfOutflow: 0.5,
		HerfBetweennessCount: 1, HerfBetweennessVolume: 0.75, HerfTVL: 0.625,
		AvgClustering: 0.1, Nodes: 4, Edges: 9,
	}
	path := filepath.Join(t.TempDir(), "herfindahl_merged_20220501.csv")
	require.NoError(t, WriteHerfindahl(path, a))

	back, err := ReadHerfindahl(path)
	require.NoError(t, err)
	assert.Equal(t, a, back)
}
