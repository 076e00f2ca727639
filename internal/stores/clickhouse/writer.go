package clickhouse

import (
	"context"
	"dexnetwork/internal/config"
	"dexnetwork/internal/domain"
	"errors"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"gitlab.com/nevasik7/alerting/logger"
)

var ErrWriterClosed = errors.New("clickhouse writer closed")

const (
	insertTokenMeasures = `
		INSERT INTO token_daily_measures (
			date,
			version,
			token,
			volume_share,
			volume_in_share,
			volume_out_share,
			tvl_share,
			inflow_centrality,
			outflow_centrality,
			betweenness_count,
			betweenness_volume,
			clustering,
			vol_in_full_len,
			vol_out_full_len,
			vol_inter_full_len,
			run_id
		)
	`
	insertHerfindahl = `
		INSERT INTO daily_herfindahl (
			date,
			version,
			herfindahl_volume,
			herfindahl_inflow_centrality,
			herfindahl_outflow_centrality,
			herfindahl_betweenness_count,
			herfindahl_betweenness_volume,
			herfindahl_tvl,
			avg_clustering,
			nodes,
			edges,
			simple_tx,
			loop_tx,
			spoon_tx,
			error_tx,
			run_id
		)
	`
)

// Writer batches finished days into token_daily_measures and daily_herfindahl
type Writer struct {
	log     logger.Logger
	onError func(err error)

	conn driver.Conn
	cfg  config.ClickHouseConfig

	mu     sync.RWMutex
	closed bool
	inCh   chan *domain.DayResult
	wg     sync.WaitGroup
}

func NewWriter(log logger.Logger, conn driver.Conn, cfg config.ClickHouseConfig, onError func(err error)) *Writer {
	// sane defaults
	if cfg.Writer.BatchMaxRows <= 0 {
		cfg.Writer.BatchMaxRows = 1000
	}
	if cfg.Writer.BatchMaxInterval <= 0 {
		cfg.Writer.BatchMaxInterval = time.Second
	}
	if cfg.Writer.MaxRetries < 0 {
		cfg.Writer.MaxRetries = 0
	}
	if cfg.Writer.RetryBackoff <= 0 {
		cfg.Writer.RetryBackoff = 200 * time.Millisecond
	}
	if onError == nil {
		onError = func(error) {}
	}

	w := &Writer{
		log:     log,
		onError: onError,
		conn:    conn,
		cfg:     cfg,
		inCh:    make(chan *domain.DayResult, 256),
	}

	w.wg.Add(1)
	go w.loop()

	return w
}

func (w *Writer) Name() string { return "clickhouse" }

// Publish enqueues a finished day; rows are sent by the batch loop
func (w *Writer) Publish(ctx context.Context, r *domain.DayResult) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrWriterClosed
	}

	select {
	case w.inCh <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes what is queued and waits for the loop
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.inCh)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) loop() {
	defer w.wg.Done()

	var (
		batch []*domain.DayResult
		rows  int
	)
	ticker := time.NewTicker(w.cfg.Writer.BatchMaxInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		if err := w.insertBatch(context.Background(), batch); err != nil {
			w.log.Errorf("Failed insert [%d] days by batch to clickhouse, error=%v", len(batch), err)
			w.onError(err)
		} else {
			w.log.Debugf("Inserted [%d] days, [%d] token rows to clickhouse", len(batch), rows)
		}
		batch = batch[:0]
		rows = 0
	}

	for {
		select {
		case r, ok := <-w.inCh:
			if !ok {
				flush()
				return
			}

			batch = append(batch, r)
			rows += len(r.Tokens) + 1
			if rows >= w.cfg.Writer.BatchMaxRows {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (w *Writer) insertBatch(ctx context.Context, days []*domain.DayResult) error {
	err := w.insert(ctx, insertTokenMeasures, func(b driver.Batch) error {
		for _, d := range days {
			for _, t := range d.Tokens {
				if err := b.Append(
					d.Date,
					string(d.Version),
					t.Token,
					t.VolumeShare,
					t.VolumeInShare,
					t.VolumeOutShare,
					t.TVLShare,
					t.InflowCentrality,
					t.OutflowCentrality,
					t.BetweennessCount,
					t.BetweennessVolume,
					t.Clustering,
					t.VolInFullLen,
					t.VolOutFullLen,
					t.VolInterFullLen,
					d.RunID,
				); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return w.insert(ctx, insertHerfindahl, func(b driver.Batch) error {
		for _, d := range days {
			a := d.Aggregate
			if err := b.Append(
				d.Date,
				string(d.Version),
				a.HerfVolume,
				a.HerfInflow,
				a.HerfOutflow,
				a.HerfBetweennessCount,
				a.HerfBetweennessVolume,
				a.HerfTVL,
				a.AvgClustering,
				uint32(a.Nodes),
				uint32(a.Edges),
				uint32(d.Labels.Simple),
				uint32(d.Labels.Loop),
				uint32(d.Labels.Spoon),
				uint32(d.Labels.Error),
				d.RunID,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// insert one statement, repeat with exponential delay
func (w *Writer) insert(ctx context.Context, query string, fill func(b driver.Batch) error) error {
	backoff := w.cfg.Writer.RetryBackoff

	var lastErr error

	for attempt := 0; attempt <= w.cfg.Writer.MaxRetries; attempt++ {
		batch, err := w.conn.PrepareBatch(ctx, query)
		if err != nil {
			lastErr = err
			goto retry
		}

		if err = fill(batch); err != nil {
			lastErr = err
			_ = batch.Abort()
			goto retry
		}

		if err = batch.Send(); err != nil {
			lastErr = err
			goto retry
		}
		// success
		return nil

	retry:
		if attempt == w.cfg.Writer.MaxRetries {
			break
		}
		w.log.Warnf("Retry clickhouse insert, attempt=%d, error=%v", attempt+1, lastErr)
		time.Sleep(backoff)
		backoff *= 2
	}

	return lastErr
}
