package panel

import (
	"context"
	"dexnetwork/internal/centrality"
	"dexnetwork/internal/config"
	"dexnetwork/internal/domain"
	"dexnetwork/internal/layout"
	"dexnetwork/internal/network"
	"dexnetwork/internal/stores/csvfs"
	"dexnetwork/internal/testutil"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========== Test Helpers ==========

func jan(d int) time.Time { return time.Date(2022, 1, d, 0, 0, 0, 0, time.UTC) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// writeDay per-day outputs as the pipeline leaves them
func writeDay(t *testing.T, l *layout.Layout, d time.Time, vol map[string]float64, btw []domain.BetweennessRow) {
	t.Helper()
	v := domain.V2

	shares := network.Shares(vol)
	require.NoError(t, network.WriteShares(l.Metric(v, layout.MetricVolumeShare, d), "volume_share", shares))
	require.NoError(t, network.WriteValues(l.Metric(v, layout.MetricVolumeTotal, d), "volume_total", shares))
	require.NoError(t, centrality.WriteBetweenness(l.Metric(v, layout.MetricBetweenness, d), btw))

	var sq float64
	for _, s := range shares {
		sq += s.Share * s.Share
	}
	require.NoError(t, centrality.WriteHerfindahl(l.Metric(v, layout.MetricHerfindahl, d), domain.DailyAggregate{
		Date: d, Version: v, HerfVolume: sq, Nodes: len(shares),
	}))
}

func testTree(t *testing.T) *layout.Layout {
	t.Helper()
	l := layout.New(t.TempDir())

	writeDay(t, l, jan(1), map[string]float64{"X": 30, "Y": 10}, []domain.BetweennessRow{{Node: "Z", Count: 1, Volume: 1}})
	writeDay(t, l, jan(2), map[string]float64{"X": 10, "Y": 10}, nil)
	writeDay(t, l, jan(3), map[string]float64{"X": 5, "Y": 15}, nil)
	// outside the sample period
	writeDay(t, l, jan(9), map[string]float64{"Q": 1}, nil)

	writeFile(t, l.External("prices.csv"),
		"Token,Date,price,market_cap\n"+
			"X,2022-01-01,1,100\nX,2022-01-02,2,\nX,2022-01-03,8,300\nX,2022-01-04,16,400\n"+
			"Y,2022-01-01,5,50\nY,2022-01-02,5,50\nY,2022-01-03,5,50\n")
	writeFile(t, l.External("macro.csv"),
		"Date,gas_price,market_index,volume_share\n"+
			"20220101,10,1000,9\n20220102,20,1100,9\n20220103,10,1210,9\n20220104,20,1210,9\n")

	return l
}

func testPanelConfig() config.PanelConfig {
	return config.PanelConfig{
		PriceColumn:    "price",
		GasColumn:      "gas_price",
		MarketColumn:   "market_index",
		ReferenceToken: "X",
		RollingWindow:  2,
		BoomBust:       []config.Interval{{Start: "2022-01-02", End: "2022-01-03"}},
		External: []config.ExternalSource{
			{Name: "prices", Path: "prices.csv", Keyed: "token_date"},
			{Name: "macro", Path: "macro.csv", Keyed: "date"},
			{Name: "lending", Path: "lending.csv", Keyed: "token_date"},
		},
	}
}

func build(t *testing.T) (*Frame, *Frame, *Summary) {
	t.Helper()
	a, err := NewAssembler(testutil.Noop(), testTree(t), testPanelConfig(), []string{"Y"})
	require.NoError(t, err)

	main, herf, sum, err := a.Build(context.Background(), domain.V2, jan(1), jan(4))
	require.NoError(t, err)
	return main, herf, sum
}

// ========== Tests ==========

func TestAssembler_MainPanelShares(t *testing.T) {
	main, _, sum := build(t)

	assert.Equal(t, 4, sum.Days)
	assert.Equal(t, 1, sum.DaysMissing)
	assert.Equal(t, []string{"lending"}, sum.ExternalAbsent)
	assert.Equal(t, []string{"X", "Y", "Z"}, main.Tokens())

	for _, d := range []time.Time{jan(1), jan(2), jan(3)} {
		var total float64
		for _, tok := range main.Tokens() {
			v := main.Get(Key{Token: tok, Date: d}, "volume_share")
			if main.Has(Key{Token: tok, Date: d}) {
				assert.GreaterOrEqual(t, v, 0.0)
				total += v
			}
		}
		assert.InDelta(t, 1.0, total, 1e-9, "day %s", d)
	}

	// Z only appears as a betweenness node: share columns filled with zero
	z := Key{Token: "Z", Date: jan(1)}
	assert.Equal(t, 0.0, main.Get(z, "volume_share"))
	assert.Equal(t, 1.0, main.Get(z, "betweenness_count"))

	// day 4 exists only in the price table: outer merge keeps it
	assert.True(t, main.Has(Key{Token: "X", Date: jan(4)}))
	assert.False(t, main.Has(Key{Token: "Q", Date: jan(9)}))
}

func TestAssembler_ExternalsAndFlags(t *testing.T) {
	main, _, _ := build(t)

	x2 := Key{Token: "X", Date: jan(2)}
	assert.Equal(t, 2.0, main.Get(x2, "price"))
	assert.True(t, math.IsNaN(main.Get(x2, "market_cap")))
	assert.Equal(t, 20.0, main.Get(x2, "gas_price"))
	// colliding date column is prefixed by its source
	assert.Equal(t, 9.0, main.Get(x2, "macro_volume_share"))
	assert.Equal(t, 1.0, main.Get(x2, "boom_bust"))
	assert.Equal(t, 0.0, main.Get(Key{Token: "X", Date: jan(1)}, "boom_bust"))

	assert.Equal(t, 0.0, main.Get(x2, "stable"))
	assert.Equal(t, 1.0, main.Get(Key{Token: "Y", Date: jan(2)}, "stable"))
}

func TestAssembler_Derived(t *testing.T) {
	main, _, _ := build(t)

	x := func(d int, col string) float64 { return main.Get(Key{Token: "X", Date: jan(d)}, col) }

	assert.True(t, math.IsNaN(x(1, "log_return")))
	assert.InDelta(t, math.Ln2, x(2, "log_return"), 1e-12)
	assert.InDelta(t, 2*math.Ln2, x(3, "log_return"), 1e-12)

	assert.True(t, math.IsNaN(x(2, "volatility_2d")))
	assert.InDelta(t, math.Ln2/math.Sqrt2, x(3, "volatility_2d"), 1e-12)

	// gas returns +ln2, -ln2 against token returns ln2, 2ln2
	assert.InDelta(t, -1.0, x(3, "corr_gas_2d"), 1e-12)
	assert.InDelta(t, 1.0, x(3, "corr_ref_2d"), 1e-12)

	// constant price: zero variance gives an empty correlation
	assert.True(t, math.IsNaN(main.Get(Key{Token: "Y", Date: jan(3)}, "corr_gas_2d")))
	assert.Equal(t, 0.0, main.Get(Key{Token: "Y", Date: jan(3)}, "volatility_2d"))
}

func TestAssembler_HerfPanel(t *testing.T) {
	_, herf, _ := build(t)

	d1 := Key{Date: jan(1)}
	assert.InDelta(t, 0.75*0.75+0.25*0.25, herf.Get(d1, "herfindahl_volume"), 1e-12)
	assert.Equal(t, 2.0, herf.Get(d1, "nodes"))
	// volume_total 30 + 10, every flow counted on both ends
	assert.InDelta(t, 20.0, herf.Get(d1, "dex_volume"), 1e-12)

	// day 4 comes from the macro table only
	d4 := Key{Date: jan(4)}
	require.True(t, herf.Has(d4))
	assert.True(t, math.IsNaN(herf.Get(d4, "herfindahl_volume")))
	assert.InDelta(t, math.Ln2, herf.Get(d4, "gas_return"), 1e-12)
	assert.InDelta(t, 0.0, herf.Get(d4, "market_return"), 1e-12)
	assert.InDelta(t, math.Log(1.1), herf.Get(Key{Date: jan(2)}, "market_return"), 1e-12)
	assert.Equal(t, 1.0, herf.Get(Key{Date: jan(3)}, "boom_bust"))
}

func TestAssembler_RunWritesPanels(t *testing.T) {
	l := testTree(t)
	a, err := NewAssembler(testutil.Noop(), l, testPanelConfig(), nil)
	require.NoError(t, err)

	sum, err := a.Run(context.Background(), domain.V2, jan(1), jan(4))
	require.NoError(t, err)
	assert.Equal(t, l.Panel(MainName, domain.V2), sum.MainPath)

	tbl, err := csvfs.ReadTable(sum.MainPath, "Token", "Date", "volume_share", "log_return", "stable", "boom_bust")
	require.NoError(t, err)
	assert.Equal(t, sum.Rows, len(tbl.Rows))
	assert.Equal(t, "X", tbl.Get(tbl.Rows[0], "Token"))
	assert.Equal(t, "2022-01-01", tbl.Get(tbl.Rows[0], "Date"))
	assert.Equal(t, "", tbl.Get(tbl.Rows[0], "log_return"))

	herf, err := csvfs.ReadTable(sum.HerfPath, "Date", "herfindahl_volume", "gas_volatility_2d")
	require.NoError(t, err)
	assert.Len(t, herf.Rows, 4)
}

func TestAssembler_Errors(t *testing.T) {
	_, err := NewAssembler(testutil.Noop(), layout.New(t.TempDir()), config.PanelConfig{
		BoomBust: []config.Interval{{Start: "bad", End: "2022-01-01"}},
	}, nil)
	assert.True(t, domain.IsFatal(err))

	l := layout.New(t.TempDir())
	writeFile(t, l.External("broken.csv"), "Token,price\nX,1\n")
	a, err := NewAssembler(testutil.Noop(), l, config.PanelConfig{
		External: []config.ExternalSource{{Name: "broken", Path: "broken.csv", Keyed: "token_date"}},
	}, nil)
	require.NoError(t, err)

	_, _, _, err = a.Build(context.Background(), domain.V3, jan(1), jan(2))
	var se *domain.SchemaError
	assert.ErrorAs(t, err, &se)
}

func TestRolling(t *testing.T) {
	r := LogReturns(Series{1, math.E, math.NaN(), 1, math.E})
	assert.True(t, math.IsNaN(r[0]))
	assert.InDelta(t, 1.0, r[1], 1e-12)
	assert.True(t, math.IsNaN(r[2]))
	assert.True(t, math.IsNaN(r[3]))
	assert.InDelta(t, 1.0, r[4], 1e-12)

	std := RollingStd(Series{1, 2, 3, math.NaN(), 5}, 3)
	assert.True(t, math.IsNaN(std[1]))
	assert.InDelta(t, 1.0, std[2], 1e-12)
	assert.True(t, math.IsNaN(std[4]))
}
