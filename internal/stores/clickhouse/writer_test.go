package clickhouse

import (
	"context"
	"dexnetwork/internal/config"
	"dexnetwork/internal/domain"
	"dexnetwork/internal/testutil"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========== Test Helpers ==========

// fakeConn records every sent batch; unimplemented driver.Conn methods panic
type fakeConn struct {
	driver.Conn

	mu        sync.Mutex
	sent      map[string][][]any
	failSends int
	prepares  int
}

func newFakeConn() *fakeConn {
	return &fakeConn{sent: make(map[string][][]any)}
}

func (c *fakeConn) PrepareBatch(_ context.Context, query string, _ ...driver.PrepareBatchOption) (driver.Batch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepares++

	table := "token_daily_measures"
	if strings.Contains(query, "daily_herfindahl") {
		table = "daily_herfindahl"
	}
	return &fakeBatch{conn: c, table: table}, nil
}

func (c *fakeConn) rows(table string) [][]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent[table]
}

type fakeBatch struct {
	driver.Batch

	conn  *fakeConn
	table string
	rows  [][]any
}

func (b *fakeBatch) Append(v ...any) error {
	b.rows = append(b.rows, v)
	return nil
}

func (b *fakeBatch) Abort() error { return nil }

func (b *fakeBatch) Send() error {
	b.conn.mu.Lock()
	defer b.conn.mu.Unlock()
	if b.conn.failSends > 0 {
		b.conn.failSends--
		return errors.New("connection reset")
	}
	b.conn.sent[b.table] = append(b.conn.sent[b.table], b.rows...)
	return nil
}

func testWriterConfig(maxRows, retries int) config.ClickHouseConfig {
	return config.ClickHouseConfig{
		Enabled: true,
		Writer: config.ClickHouseWriterConfig{
			BatchMaxRows:     maxRows,
			BatchMaxInterval: time.Hour,
			MaxRetries:       retries,
			RetryBackoff:     time.Millisecond,
		},
	}
}

func dayResult(v domain.Version, day int, tokens ...string) *domain.DayResult {
	date := time.Date(2022, 4, day, 0, 0, 0, 0, time.UTC)
	r := &domain.DayResult{
		RunID:   "run-1",
		Version: v,
		Date:    date,
		Aggregate: domain.DailyAggregate{
			Date: date, Version: v, HerfVolume: 0.5, Nodes: len(tokens), Edges: 2,
		},
		Labels: domain.LabelCounts{Simple: 3, Loop: 1},
	}
	for _, tok := range tokens {
		r.Tokens = append(r.Tokens, domain.TokenDay{Token: tok, VolumeShare: 1 / float64(len(tokens))})
	}
	return r
}

// ========== Tests ==========

func TestWriter_FlushOnClose(t *testing.T) {
	conn := newFakeConn()
	w := NewWriter(testutil.Noop(), conn, testWriterConfig(1000, 0), nil)

	ctx := context.Background()
	require.NoError(t, w.Publish(ctx, dayResult(domain.V2, 1, "USDC", "WETH")))
	require.NoError(t, w.Publish(ctx, dayResult(domain.V3, 1, "DAI")))
	require.NoError(t, w.Close(ctx))

	tokens := conn.rows("token_daily_measures")
	require.Len(t, tokens, 3)
	assert.Equal(t, "v2", tokens[0][1])
	assert.Equal(t, "USDC", tokens[0][2])
	assert.Equal(t, "run-1", tokens[0][15])

	herf := conn.rows("daily_herfindahl")
	require.Len(t, herf, 2)
	assert.Equal(t, 0.5, herf[0][2])
	assert.Equal(t, uint32(3), herf[0][11])
	assert.Equal(t, uint32(1), herf[0][12])
}

func TestWriter_FlushOnBatchSize(t *testing.T) {
	conn := newFakeConn()
	w := NewWriter(testutil.Noop(), conn, testWriterConfig(3, 0), nil)
	defer w.Close(context.Background())

	require.NoError(t, w.Publish(context.Background(), dayResult(domain.Merged, 2, "A", "B")))

	assert.Eventually(t, func() bool {
		return len(conn.rows("daily_herfindahl")) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestWriter_RetryThenSuccess(t *testing.T) {
	conn := newFakeConn()
	conn.failSends = 2

	var failures int
	w := NewWriter(testutil.Noop(), conn, testWriterConfig(1000, 3), func(error) { failures++ })

	require.NoError(t, w.Publish(context.Background(), dayResult(domain.V2, 3, "A")))
	require.NoError(t, w.Close(context.Background()))

	assert.Len(t, conn.rows("token_daily_measures"), 1)
	assert.Len(t, conn.rows("daily_herfindahl"), 1)
	assert.Equal(t, 0, failures)
}

func TestWriter_RetriesExhausted(t *testing.T) {
	conn := newFakeConn()
	conn.failSends = 10

	var failures int
	w := NewWriter(testutil.Noop(), conn, testWriterConfig(1000, 1), func(error) { failures++ })

	require.NoError(t, w.Publish(context.Background(), dayResult(domain.V2, 4, "A")))
	require.NoError(t, w.Close(context.Background()))

	assert.Empty(t, conn.rows("token_daily_measures"))
	assert.Equal(t, 1, failures)
	assert.Equal(t, 2, conn.prepares)
}

func TestWriter_PublishAfterClose(t *testing.T) {
	w := NewWriter(testutil.Noop(), newFakeConn(), testWriterConfig(10, 0), nil)
	require.NoError(t, w.Close(context.Background()))
	require.NoError(t, w.Close(context.Background()))

	err := w.Publish(context.Background(), dayResult(domain.V2, 5, "A"))
	assert.ErrorIs(t, err, ErrWriterClosed)
}
