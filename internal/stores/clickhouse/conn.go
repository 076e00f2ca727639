package clickhouse

import (
	"context"
	"dexnetwork/internal/config"
	"fmt"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

type Conn struct {
	Native ch.Conn
}

func New(ctx context.Context, cfg *config.ClickHouseConfig) (*Conn, error) {
	if cfg == nil {
		return nil, fmt.Errorf("clickhouse config cannot be nil")
	}
	opts, err := ch.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed parse DSN ch, error=%w", err)
	}

	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}

	if opts.Compression == nil {
		opts.Compression = &ch.Compression{Method: ch.CompressionLZ4}
	}

	opts.ClientInfo = ch.ClientInfo{
		Products: []struct{ Name, Version string }{
			{
				Name:    "dexnetwork",
				Version: "0.1.0",
			},
		},
	}

	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed Open ch, error=%w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err = conn.Ping(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed ping ch, error=%w", err)
	}

	return &Conn{Native: conn}, nil
}

// EnsureSchema creates the result tables when missing
func (c *Conn) EnsureSchema(ctx context.Context) error {
	for _, ddl := range []string{tokenDailyMeasuresDDL, dailyHerfindahlDDL} {
		if err := c.Native.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed create ch table, error=%w", err)
		}
	}
	return nil
}

func (c *Conn) Close() error {
	return c.Native.Close()
}

// rewriting a day replaces its rows after merge
const tokenDailyMeasuresDDL = `
CREATE TABLE IF NOT EXISTS token_daily_measures (
	date                 Date,
	version              LowCardinality(String),
	token                String,
	volume_share         Float64,
	volume_in_share      Float64,
	volume_out_share     Float64,
	tvl_share            Float64,
	inflow_centrality    Float64,
	outflow_centrality   Float64,
	betweenness_count    Float64,
	betweenness_volume   Float64,
	clustering           Float64,
	vol_in_full_len      Float64,
	vol_out_full_len     Float64,
	vol_inter_full_len   Float64,
	run_id               String
) ENGINE = ReplacingMergeTree
ORDER BY (version, date, token)`

const dailyHerfindahlDDL = `
CREATE TABLE IF NOT EXISTS daily_herfindahl (
	date                          Date,
	version                       LowCardinality(String),
	herfindahl_volume             Float64,
	herfindahl_inflow_centrality  Float64,
	herfindahl_outflow_centrality Float64,
	herfindahl_betweenness_count  Float64,
	herfindahl_betweenness_volume Float64,
	herfindahl_tvl                Float64,
	avg_clustering                Float64,
	nodes                         UInt32,
	edges                         UInt32,
	simple_tx                     UInt32,
	loop_tx                       UInt32,
	spoon_tx                      UInt32,
	error_tx                      UInt32,
	run_id                        String
) ENGINE = ReplacingMergeTree
ORDER BY (version, date)`
