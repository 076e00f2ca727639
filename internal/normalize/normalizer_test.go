package normalize

import (
	"context"
	"dexnetwork/internal/domain"
	"dexnetwork/internal/layout"
	"dexnetwork/internal/testutil"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========== Test Helpers ==========

const (
	poolAB = "0x00000000000000000000000000000000000000ab"
	poolBC = "0x00000000000000000000000000000000000000bc"
	poolXX = "0x00000000000000000000000000000000000000ff"
)

var day = time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writePoolList(t *testing.T, l *layout.Layout, v domain.Version, pools ...string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("pool,token0_symbol,token1_symbol\n")
	for _, p := range pools {
		b.WriteString(strings.ToUpper(p[:2]) + p[2:] + ",,\n")
	}
	writeFile(t, l.PoolList(v, day), b.String())
}

// ========== Tests ==========

func TestNormalizer_V2_OrientationAndFilter(t *testing.T) {
	l := layout.New(t.TempDir())
	writePoolList(t, l, domain.V2, poolAB, poolBC)

	raw := "transaction,timestamp,pool,token0_id,token0_symbol,token1_id,token1_symbol,amount0In,amount0Out,amount1In,amount1Out,amountUSD,sender,to\n" +
		// tx1: A->B then B->C; hop amount of B matches exactly
		"0xT1,1642204800," + poolAB + ",a,A,b,B,100,0,0,50.5,100,s,t\n" +
		"0xT1,1642204800," + poolBC + ",b,B,c,C,50.5,0,0,20,100,s,t\n" +
		// tx2: one hop inside the list, one outside -> whole tx dropped
		"0xT2,1642204801," + poolAB + ",a,A,b,B,0,10,20,0,40,s,t\n" +
		"0xT2,1642204801," + poolXX + ",b,B,x,X,10,0,0,1,40,s,t\n" +
		// tx3: token1 delivered -> Source = B
		"0xT3,1642204802," + poolAB + ",a,A,b,B,0,7,3,0,0,s,t\n"
	writeFile(t, l.RawSwaps(domain.V2, day), raw)

	n := NewNormalizer(testutil.Noop(), l, nil)
	swaps, st, err := n.Load(context.Background(), domain.V2, day)
	require.NoError(t, err)

	require.Len(t, swaps, 3)
	assert.Equal(t, 2, st.TxKept)
	assert.Equal(t, 1, st.TxDropped)
	assert.Equal(t, 1, st.SwapsZeroUSD)

	first := swaps[0]
	assert.Equal(t, "0xt1", first.TxID)
	assert.Equal(t, "A", first.Source)
	assert.Equal(t, "B", first.Target)
	assert.True(t, first.PoolInVolume.Equal(decimal.NewFromInt(100)))
	assert.True(t, first.PoolOutVolume.Equal(decimal.RequireFromString("-50.5")))
	assert.Equal(t, 2, first.Distance)

	third := swaps[2]
	assert.Equal(t, "B", third.Source)
	assert.Equal(t, "A", third.Target)
	assert.Equal(t, 1, third.Distance)

	list, err := n.Pools().For(domain.V2, day)
	require.NoError(t, err)
	for _, s := range swaps {
		assert.True(t, list.Contains(s.Pool), "pool %s outside top-50", s.Pool)
	}
}

func TestNormalizer_V3_SignedAmounts(t *testing.T) {
	l := layout.New(t.TempDir())
	writePoolList(t, l, domain.V3, poolAB)

	raw := "transaction,timestamp,pool,token0_id,token0_symbol,token1_id,token1_symbol,amount0,amount1,amountUSD,sender,recipient,origin\n" +
		"0xT1,1642204800," + poolAB + ",a,A,b,B,-5,2.25,NaN,s,r,o\n" +
		"0xT2,1642204800," + poolAB + ",a,A,b,B,5,-2.25,-3,s,r,o\n"
	writeFile(t, l.RawSwaps(domain.V3, day), raw)

	swaps, _, err := NewNormalizer(testutil.Noop(), l, nil).Load(context.Background(), domain.V3, day)
	require.NoError(t, err)
	require.Len(t, swaps, 2)

	assert.Equal(t, "B", swaps[0].Source)
	assert.Equal(t, "A", swaps[0].Target)
	assert.True(t, swaps[0].PoolInVolume.IsPositive())
	assert.True(t, swaps[0].PoolOutVolume.IsNegative())
	assert.Equal(t, 0.0, swaps[0].AmountUSD)

	assert.Equal(t, "A", swaps[1].Source)
	assert.Equal(t, 0.0, swaps[1].AmountUSD)
}

func TestNormalizer_Failures(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(t *testing.T, l *layout.Layout)
		check func(t *testing.T, err error)
	}{
		{
			name:  "raw_missing",
			setup: func(t *testing.T, l *layout.Layout) {},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, domain.ErrRawMissing))
				assert.False(t, domain.IsFatal(err))
			},
		},
		{
			name: "pool_list_missing",
			setup: func(t *testing.T, l *layout.Layout) {
				writeFile(t, l.RawSwaps(domain.V2, day), "transaction\n")
			},
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsFatal(err))
			},
		},
		{
			name: "pool_list_malformed",
			setup: func(t *testing.T, l *layout.Layout) {
				writeFile(t, l.RawSwaps(domain.V2, day), "transaction\n")
				writeFile(t, l.PoolList(domain.V2, day), "pool\nnot-an-address\n")
			},
			check: func(t *testing.T, err error) {
				var ce *domain.ConfigError
				assert.ErrorAs(t, err, &ce)
			},
		},
		{
			name: "schema",
			setup: func(t *testing.T, l *layout.Layout) {
				writePoolList(t, l, domain.V2, poolAB)
				writeFile(t, l.RawSwaps(domain.V2, day), "transaction,timestamp,pool,token0_symbol,token1_symbol,amountUSD\n")
			},
			check: func(t *testing.T, err error) {
				var se *domain.SchemaError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, "amount0In", se.Column)
				assert.False(t, domain.IsFatal(err))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := layout.New(t.TempDir())
			tc.setup(t, l)
			_, _, err := NewNormalizer(testutil.Noop(), l, nil).Load(context.Background(), domain.V2, day)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestNormalizer_MalformedRowDropsTransaction(t *testing.T) {
	l := layout.New(t.TempDir())
	writePoolList(t, l, domain.V2, poolAB, poolBC)

	raw := "transaction,timestamp,pool,token0_symbol,token1_symbol,amount0In,amount0Out,amount1In,amount1Out,amountUSD\n" +
		"0xT1,1," + poolAB + ",A,B,100,0,0,50,10\n" +
		"0xT1,1," + poolBC + ",B,C,abc,0,0,20,10\n" +
		"0xT2,1," + poolAB + ",A,B,1,0,0,1,10\n"
	writeFile(t, l.RawSwaps(domain.V2, day), raw)

	swaps, st, err := NewNormalizer(testutil.Noop(), l, nil).Load(context.Background(), domain.V2, day)
	require.NoError(t, err)
	require.Len(t, swaps, 1)
	assert.Equal(t, "0xt2", swaps[0].TxID)
	assert.Equal(t, 1, st.Malformed)
}

func TestNormalized_RoundTripKeepsFlowTotals(t *testing.T) {
	l := layout.New(t.TempDir())
	writePoolList(t, l, domain.V2, poolAB, poolBC)

	raw := "transaction,timestamp,pool,token0_symbol,token1_symbol,amount0In,amount0Out,amount1In,amount1Out,amountUSD\n" +
		"0xT1,1," + poolAB + ",A,B,100,0,0,50,101.25\n" +
		"0xT1,1," + poolBC + ",B,C,50,0,0,20,99.5\n" +
		"0xT2,2," + poolBC + ",B,C,0,3,4,0,12.125\n"
	writeFile(t, l.RawSwaps(domain.V2, day), raw)

	swaps, _, err := NewNormalizer(testutil.Noop(), l, nil).Load(context.Background(), domain.V2, day)
	require.NoError(t, err)

	path := l.NormalizedSwaps(domain.V2, day)
	require.NoError(t, WriteNormalized(path, swaps))

	back, err := ReadNormalized(path)
	require.NoError(t, err)
	require.Len(t, back, len(swaps))

	sum := func(ss []domain.SubSwap) map[[2]string]float64 {
		out := map[[2]string]float64{}
		for _, s := range ss {
			out[[2]string{s.Source, s.Target}] += s.AmountUSD
		}
		return out
	}
	direct, reread := sum(swaps), sum(back)
	require.Len(t, reread, len(direct))
	for k, v := range direct {
		assert.LessOrEqual(t, math.Abs(reread[k]-v), 1e-6*math.Abs(v), "edge %v", k)
	}
	for i := range swaps {
		assert.True(t, swaps[i].PoolInVolume.Equal(back[i].PoolInVolume))
		assert.True(t, swaps[i].PoolOutVolume.Equal(back[i].PoolOutVolume))
		assert.Equal(t, swaps[i].Distance, back[i].Distance)
	}
}
