package pubsub

import (
	"context"
	"dexnetwork/internal/domain"
	"time"
)

type Broadcaster interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Health(ctx context.Context) error
}

// DaySummary event sent when a (version, date) unit completes
type DaySummary struct {
	RunID     string             `json:"run_id"`
	UnitID    string             `json:"unit_id"`
	Version   string             `json:"version"`
	Date      string             `json:"date"`
	Tokens    int                `json:"tokens"`
	Labels    domain.LabelCounts `json:"labels"`
	Herf      HerfSummary        `json:"herfindahl"`
	Nodes     int                `json:"nodes"`
	Edges     int                `json:"edges"`
	Artifacts int                `json:"artifacts"`
	SentAt    time.Time          `json:"sent_at"`
}

type HerfSummary struct {
	Volume            float64 `json:"volume"`
	Inflow            float64 `json:"inflow_centrality"`
	Outflow           float64 `json:"outflow_centrality"`
	BetweennessCount  float64 `json:"betweenness_count"`
	BetweennessVolume float64 `json:"betweenness_volume"`
	TVL               float64 `json:"tvl"`
	AvgClustering     float64 `json:"avg_clustering"`
}

func NewDaySummary(r *domain.DayResult) DaySummary {
	a := r.Aggregate
	return DaySummary{
		RunID:   r.RunID,
		UnitID:  domain.MakeUnitID(r.Version, r.Date),
		Version: string(r.Version),
		Date:    r.Date.Format(time.DateOnly),
		Tokens:  len(r.Tokens),
		Labels:  r.Labels,
		Herf: HerfSummary{
			Volume:            a.HerfVolume,
			Inflow:            a.HerfInflow,
			Outflow:           a.HerfOutflow,
			BetweennessCount:  a.HerfBetweennessCount,
			BetweennessVolume: a.HerfBetweennessVolume,
			TVL:               a.HerfTVL,
			AvgClustering:     a.AvgClustering,
		},
		Nodes:     a.Nodes,
		Edges:     a.Edges,
		Artifacts: len(r.Artifacts),
		SentAt:    time.Now().UTC(),
	}
}

// DayPublisher broadcasts a DaySummary on "<prefix>.<version>"
type DayPublisher struct {
	b      Broadcaster
	prefix string
}

func NewDayPublisher(b Broadcaster, prefix string) *DayPublisher {
	// sane defaults
	if prefix == "" {
		prefix = "dexnetwork.day"
	}
	return &DayPublisher{b: b, prefix: prefix}
}

func (p *DayPublisher) Name() string { return "nats" }

func (p *DayPublisher) Subject(v domain.Version) string {
	return p.prefix + "." + string(v)
}

func (p *DayPublisher) Publish(ctx context.Context, r *domain.DayResult) error {
	return p.b.Publish(ctx, p.Subject(r.Version), NewDaySummary(r))
}
