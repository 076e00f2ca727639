package service

import (
	"context"
	"dexnetwork/internal/centrality"
	"dexnetwork/internal/domain"
	"dexnetwork/internal/layout"
	"dexnetwork/internal/route"
	"dexnetwork/internal/testutil"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========== Test Helpers ==========

const (
	poolAB  = "0x00000000000000000000000000000000000000ab"
	poolBC  = "0x00000000000000000000000000000000000000bc"
	poolCA  = "0x00000000000000000000000000000000000000ca"
	poolAB3 = "0x0000000000000000000000000000000000000ab3"
)

var testDay = time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC)

const v2Header = "transaction,timestamp,pair,token0_symbol,token1_symbol,amount0In,amount0Out,amount1In,amount1Out,amountUSD\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// writeTree one day with a simple two-hop, a single hop and a loop on v2, one v3 swap
func writeTree(t *testing.T, withV3 bool) *layout.Layout {
	t.Helper()
	l := layout.New(t.TempDir())

	writeFile(t, l.PoolList(domain.V2, testDay),
		"pool,token0_symbol,token1_symbol\n"+poolAB+",A,B\n"+poolBC+",B,C\n"+poolCA+",C,A\n")
	writeFile(t, l.RawSwaps(domain.V2, testDay), v2Header+
		"0xT1,1642204800,"+poolAB+",A,B,100,0,0,50,100\n"+
		"0xT1,1642204800,"+poolBC+",B,C,50,0,0,20,100\n"+
		"0xT2,1642204801,"+poolCA+",C,A,10,0,0,9,30\n"+
		"0xT3,1642204802,"+poolAB+",A,B,10,0,0,5,12\n"+
		"0xT3,1642204802,"+poolAB+",A,B,0,9.9,5,0,12\n")
	writeFile(t, l.TVL(domain.V2, testDay),
		"pool,tvl_usd\n"+poolAB+",200\n"+poolBC+",100\n")

	writeFile(t, l.PoolList(domain.V3, testDay), "pool,token0_symbol,token1_symbol\n"+poolAB3+",A,B\n")
	if withV3 {
		writeFile(t, l.RawSwaps(domain.V3, testDay),
			"transaction,timestamp,pool,token0_symbol,token1_symbol,amount0,amount1,amountUSD\n"+
				"0xU1,1642204900,"+poolAB3+",A,B,-4,8,80\n")
	}

	return l
}

func newTestPipeline(l *layout.Layout) *Pipeline {
	engine := centrality.NewEngine(testutil.Noop(), centrality.Options{Stablecoins: []string{"C"}})
	return NewPipeline(testutil.Noop(), PipelineDeps{Layout: l, Epsilon: 1e-9, Engine: engine})
}

// ========== Tests ==========

func TestPipeline_ProcessUnitV2(t *testing.T) {
	l := writeTree(t, true)
	p := newTestPipeline(l)

	res, err := p.ProcessUnit(context.Background(), domain.V2, testDay)
	require.NoError(t, err)

	assert.Equal(t, domain.LabelCounts{Simple: 2, Loop: 1}, res.Labels)
	assert.Len(t, res.Artifacts, 25)
	for _, path := range res.Artifacts {
		assert.FileExists(t, path)
	}
	assert.Contains(t, res.Artifacts, l.NormalizedSwaps(domain.V2, testDay))
	assert.Contains(t, res.Artifacts, l.Betweenness(domain.V2, testDay))

	routes, err := route.Read(l.SwapRoutes(domain.V2, testDay), domain.V2)
	require.NoError(t, err)
	require.Len(t, routes, 3)
	assert.Equal(t, []string{"A", "B", "C"}, routes[0].Tokens)
	assert.Equal(t, domain.LabelLoop, routes[2].Label)

	agg, err := centrality.ReadHerfindahl(l.Metric(domain.V2, layout.MetricHerfindahl, testDay))
	require.NoError(t, err)
	assert.Equal(t, res.Aggregate, agg)
	assert.Equal(t, 3, agg.Nodes)
	// only B is an intermediary of a simple route
	assert.InDelta(t, 1.0, agg.HerfBetweennessCount, 1e-12)
	// tvl per token A=100 B=150 C=50
	assert.InDelta(t, 1.0/9.0+1.0/4.0+1.0/36.0, agg.HerfTVL, 1e-12)

	var share float64
	for _, td := range res.Tokens {
		share += td.VolumeShare
	}
	assert.InDelta(t, 1.0, share, 1e-9)
}

func TestPipeline_MergedSumsVersions(t *testing.T) {
	l := writeTree(t, true)
	p := newTestPipeline(l)

	v2, err := p.ProcessUnit(context.Background(), domain.V2, testDay)
	require.NoError(t, err)
	merged, err := p.ProcessUnit(context.Background(), domain.Merged, testDay)
	require.NoError(t, err)

	assert.Equal(t, v2.Labels.Simple+1, merged.Labels.Simple)
	assert.Equal(t, v2.Labels.Loop, merged.Labels.Loop)
	assert.NotContains(t, merged.Artifacts, l.NormalizedSwaps(domain.V2, testDay))
	assert.FileExists(t, l.SwapRoutes(domain.Merged, testDay))
}

func TestPipeline_MergedToleratesOneMissingSource(t *testing.T) {
	l := writeTree(t, false)
	p := newTestPipeline(l)

	res, err := p.ProcessUnit(context.Background(), domain.Merged, testDay)
	require.NoError(t, err)
	assert.Equal(t, domain.LabelCounts{Simple: 2, Loop: 1}, res.Labels)

	_, err = p.ProcessUnit(context.Background(), domain.V3, testDay)
	assert.True(t, errors.Is(err, domain.ErrRawMissing))
}

func TestPipeline_MergedBeforeV3Existed(t *testing.T) {
	l := writeTree(t, false)
	require.NoError(t, os.Remove(l.PoolList(domain.V3, testDay)))
	p := newTestPipeline(l)

	res, err := p.ProcessUnit(context.Background(), domain.Merged, testDay)
	require.NoError(t, err)
	assert.Equal(t, domain.LabelCounts{Simple: 2, Loop: 1}, res.Labels)
	assert.Greater(t, res.Aggregate.HerfTVL, 0.0)
}

func TestPipeline_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		prepare func(t *testing.T, l *layout.Layout) (domain.Version, time.Time)
		check   func(t *testing.T, err error)
	}{
		{
			name: "no_raw_for_any_source",
			prepare: func(t *testing.T, l *layout.Layout) (domain.Version, time.Time) {
				return domain.Merged, testDay.AddDate(0, 0, 1)
			},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, domain.ErrRawMissing))
				assert.False(t, domain.IsFatal(err))
			},
		},
		{
			name: "malformed_pool_list",
			prepare: func(t *testing.T, l *layout.Layout) (domain.Version, time.Time) {
				d := time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)
				writeFile(t, l.PoolList(domain.V2, d), "pool\nnot-an-address\n")
				writeFile(t, l.RawSwaps(domain.V2, d), v2Header)
				return domain.V2, d
			},
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsFatal(err))
			},
		},
		{
			name: "schema_error",
			prepare: func(t *testing.T, l *layout.Layout) (domain.Version, time.Time) {
				d := testDay.AddDate(0, 0, 2)
				writeFile(t, l.RawSwaps(domain.V2, d), "transaction,timestamp\n0xT1,1\n")
				return domain.V2, d
			},
			check: func(t *testing.T, err error) {
				var se *domain.SchemaError
				assert.True(t, errors.As(err, &se))
				assert.False(t, domain.IsFatal(err))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := writeTree(t, true)
			v, d := tc.prepare(t, l)

			res, err := newTestPipeline(l).ProcessUnit(context.Background(), v, d)
			require.Error(t, err)
			assert.Nil(t, res)
			tc.check(t, err)
		})
	}
}

// reruns over the same inputs give byte-identical outputs
func TestPipeline_Deterministic(t *testing.T) {
	l := writeTree(t, true)
	p := newTestPipeline(l)

	snapshot := func(paths []string) map[string][]byte {
		out := make(map[string][]byte, len(paths))
		for _, path := range paths {
			b, err := os.ReadFile(path)
			require.NoError(t, err)
			out[path] = b
		}
		return out
	}

	for _, v := range []domain.Version{domain.V2, domain.Merged} {
		first, err := p.ProcessUnit(context.Background(), v, testDay)
		require.NoError(t, err)
		before := snapshot(first.Artifacts)

		second, err := newTestPipeline(l).ProcessUnit(context.Background(), v, testDay)
		require.NoError(t, err)

		assert.Equal(t, first.Artifacts, second.Artifacts)
		assert.Equal(t, before, snapshot(second.Artifacts), "version %s", v)
	}
}
