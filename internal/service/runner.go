package service

import (
	"context"
	"dexnetwork/internal/dedupe"
	"dexnetwork/internal/domain"
	"dexnetwork/internal/metrics"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"gitlab.com/nevasik7/alerting/logger"
)

// Sink receives every finished day; the CSV tree stays the source of truth
type Sink interface {
	Name() string
	Publish(ctx context.Context, r *domain.DayResult) error
}

type UnitProcessor interface {
	ProcessUnit(ctx context.Context, v domain.Version, date time.Time) (*domain.DayResult, error)
}

type RunSummary struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Processed []string          // unit ids
	Resumed   []string          // unit ids already in the ledger
	Skipped   map[string]string // unit id -> reason
	Failed    map[string]string // unit id -> error
	Labels    domain.LabelCounts // v2 and v3 units; merged days rebuild the same transactions
	Artifacts int
	Errors    *multierror.Error
}

// Err per-unit failures joined; nil when every unit succeeded or was skipped
func (s *RunSummary) Err() error {
	return s.Errors.ErrorOrNil()
}

type RunnerDeps struct {
	Processor UnitProcessor
	Ledger    dedupe.Ledger // optional
	Sinks     []Sink
	Metrics   *metrics.Metrics // optional
	Versions  []domain.Version
	Workers   int
	QueueSize int
	Resume    bool
}

// Runner fans (version, date) units out over a worker pool
type Runner struct {
	log       logger.Logger
	proc      UnitProcessor
	ledger    dedupe.Ledger
	sinks     []Sink
	metrics   *metrics.Metrics
	versions  []domain.Version
	workers   int
	queueSize int
	resume    bool
}

func NewRunner(log logger.Logger, deps RunnerDeps) *Runner {
	// sane defaults
	if deps.Workers <= 0 {
		deps.Workers = runtime.NumCPU()
	}
	if len(deps.Versions) == 0 {
		deps.Versions = []domain.Version{domain.V2, domain.V3, domain.Merged}
	}

	return &Runner{
		log:       log,
		proc:      deps.Processor,
		ledger:    deps.Ledger,
		sinks:     deps.Sinks,
		metrics:   deps.Metrics,
		versions:  deps.Versions,
		workers:   deps.Workers,
		queueSize: deps.QueueSize,
		resume:    deps.Resume,
	}
}

type unit struct {
	version domain.Version
	date    time.Time
}

// Run every unit of [from, to]. Per-unit failures land in the summary;
// the returned error is set only for a ConfigError or a cancelled context
func (r *Runner) Run(ctx context.Context, from, to time.Time) (*RunSummary, error) {
	sum := &RunSummary{
		RunID:   uuid.NewString(),
		Started: time.Now().UTC(),
		Skipped: make(map[string]string),
		Failed:  make(map[string]string),
	}

	var units []unit
	for _, d := range domain.DaysBetween(from, to) {
		for _, v := range r.versions {
			units = append(units, unit{version: v, date: d})
		}
	}

	r.log.Infof("Run %s started: %d units, %d days, workers=%d", sum.RunID, len(units), len(units)/max(len(r.versions), 1), r.workers)

	var opts []pond.Option
	if r.queueSize > 0 {
		opts = append(opts, pond.WithQueueSize(r.queueSize))
	}
	pool := pond.NewPool(r.workers, opts...)

	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	var mu sync.Mutex
	for _, u := range units {
		u := u
		group.SubmitErr(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			return r.runUnit(groupCtx, sum, &mu, u)
		})
	}

	waitErr := group.Wait()
	// a stopped group may still have running units
	pool.StopAndWait()
	sum.Finished = time.Now().UTC()
	sort.Strings(sum.Processed)
	sort.Strings(sum.Resumed)

	r.logSummary(sum)

	if waitErr != nil && !errors.Is(waitErr, pond.ErrGroupStopped) {
		return sum, waitErr
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}

func (r *Runner) runUnit(ctx context.Context, sum *RunSummary, mu *sync.Mutex, u unit) error {
	id := domain.MakeUnitID(u.version, u.date)

	if r.resume && r.ledger != nil {
		done, err := r.ledger.Done(ctx, id)
		if err != nil {
			r.log.Warnf("Ledger lookup of %s failed, processing anyway: %v", id, err)
		} else if done {
			mu.Lock()
			sum.Resumed = append(sum.Resumed, id)
			mu.Unlock()
			r.observe(u.version, metrics.OutcomeResumed, 0)
			return nil
		}
	}

	start := time.Now()
	res, err := r.proc.ProcessUnit(ctx, u.version, u.date)
	took := time.Since(start)

	switch {
	case err == nil:
	case domain.IsFatal(err):
		r.observe(u.version, metrics.OutcomeFailed, took)
		mu.Lock()
		sum.Failed[id] = err.Error()
		sum.Errors = multierror.Append(sum.Errors, fmt.Errorf("%s: %w", id, err))
		mu.Unlock()
		return err
	case errors.Is(err, domain.ErrRawMissing):
		r.log.Infof("Unit %s skipped: raw swaps missing", id)
		r.observe(u.version, metrics.OutcomeSkipped, took)
		mu.Lock()
		sum.Skipped[id] = "raw_missing"
		mu.Unlock()
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		r.log.Errorf("Unit %s failed: %v", id, err)
		r.observe(u.version, metrics.OutcomeFailed, took)
		mu.Lock()
		sum.Failed[id] = err.Error()
		sum.Errors = multierror.Append(sum.Errors, fmt.Errorf("%s: %w", id, err))
		mu.Unlock()
		return nil
	}

	res.RunID = sum.RunID
	r.observe(u.version, metrics.OutcomeOK, took)
	if r.metrics != nil {
		r.metrics.ObserveLabels(u.version, res.Labels)
	}

	for _, s := range r.sinks {
		if err = s.Publish(ctx, res); err != nil {
			r.log.Errorf("Sink %s rejected %s: %v", s.Name(), id, err)
			if r.metrics != nil {
				r.metrics.SinkError(s.Name())
			}
		}
	}

	if r.ledger != nil {
		if err = r.ledger.MarkDone(ctx, id); err != nil {
			r.log.Warnf("Failed mark %s done in ledger: %v", id, err)
		}
	}

	mu.Lock()
	sum.Processed = append(sum.Processed, id)
	if u.version != domain.Merged {
		sum.Labels.Merge(res.Labels)
	}
	sum.Artifacts += len(res.Artifacts)
	mu.Unlock()

	return nil
}

func (r *Runner) observe(v domain.Version, outcome string, took time.Duration) {
	if r.metrics != nil {
		r.metrics.ObserveUnit(v, outcome, took)
	}
}

func (r *Runner) logSummary(sum *RunSummary) {
	r.log.WithFields(map[string]interface{}{
		"run_id":    sum.RunID,
		"processed": len(sum.Processed),
		"resumed":   len(sum.Resumed),
		"skipped":   len(sum.Skipped),
		"failed":    len(sum.Failed),
		"artifacts": sum.Artifacts,
		"simple":    sum.Labels.Simple,
		"loop":      sum.Labels.Loop,
		"spoon":     sum.Labels.Spoon,
		"error":     sum.Labels.Error,
		"took":      sum.Finished.Sub(sum.Started).String(),
	}).Info("Run finished")

	for id, reason := range sum.Failed {
		r.log.Warnf("Failed unit %s: %s", id, reason)
	}
}
