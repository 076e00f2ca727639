package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Version string

const (
	V2     Version = "v2"     // constant-product
	V3     Version = "v3"     // concentrated-liquidity
	Merged Version = "merged" // per-day union of v2 and v3
)

func ParseVersion(s string) (Version, error) {
	switch Version(s) {
	case V2, V3, Merged:
		return Version(s), nil
	}
	return "", fmt.Errorf("unknown version %q", s)
}

// Protocol versions whose raw data make up v
func (v Version) Sources() []Version {
	if v == Merged {
		return []Version{V2, V3}
	}
	return []Version{v}
}

// One directional exchange inside one pool, after normalization
type SubSwap struct {
	TxID      string
	Pool      string // lowercase 0x hex
	Timestamp int64
	Token0    string
	Token1    string
	Source    string // token the user delivered to the pool
	Target    string // token the user received
	// signed pool delta of Source, > 0
	PoolInVolume decimal.Decimal
	// signed pool delta of Target, < 0
	PoolOutVolume decimal.Decimal
	AmountUSD     float64
	Version       Version
	Distance      int // sub-swaps sharing TxID after filtering
}

// Per-transaction output of the route builder
type Route struct {
	ID             string
	Version        Version
	Tokens         []string
	UltimateSource string
	UltimateTarget string
	Intermediary   []string
	VolumeUSD      float64
	ChainLength    int
	Label          Label
	NewList        TokenList
}

func (r *Route) Pair() []string {
	if r.Label == LabelError {
		return nil
	}
	return []string{r.UltimateSource, r.UltimateTarget}
}

func (r *Route) PairStr() string {
	if r.Label == LabelError {
		return ""
	}
	return r.UltimateSource + "-" + r.UltimateTarget
}

// Directional USD volume between two tokens (inout-flow row)
type FlowEdge struct {
	Source string
	Target string
	Volume float64
}

// Undirected aggregated volume; Token0 < Token1
type PairVolume struct {
	Token0 string
	Token1 string
	Volume float64
}

// Per-token scalar with its day-normalized share
type TokenValue struct {
	Token string
	Value float64
	Share float64
}

type CentralityRow struct {
	Token             string
	TotalTVL          float64
	Stable            bool
	Eigenvector       float64
	Betweenness       float64
	Degree            int
	InDegree          int
	OutDegree         int
	WeightedDegree    float64
	WeightedInDegree  float64
	WeightedOutDegree float64
}

type BetweennessRow struct {
	Node   string
	Count  float64
	Volume float64
}

// Per (date, token, version) row collected for sinks and the API
type TokenDay struct {
	Token             string
	VolumeShare       float64
	VolumeInShare     float64
	VolumeOutShare    float64
	TVLShare          float64
	InflowCentrality  float64
	OutflowCentrality float64
	BetweennessCount  float64
	BetweennessVolume float64
	Clustering        float64
	VolInFullLen      float64
	VolOutFullLen     float64
	VolInterFullLen   float64
}

// Per (date, version) concentration row
type DailyAggregate struct {
	Date                  time.Time
	Version               Version
	HerfVolume            float64
	HerfInflow            float64
	HerfOutflow           float64
	HerfBetweennessCount  float64
	HerfBetweennessVolume float64
	HerfTVL               float64
	AvgClustering         float64
	Nodes                 int
	Edges                 int
}

type LabelCounts struct {
	Simple int `json:"simple"`
	Loop   int `json:"loop"`
	Spoon  int `json:"spoon"`
	Error  int `json:"error"`
}

func (c *LabelCounts) Add(l Label) {
	switch l {
	case LabelSimple:
		c.Simple++
	case LabelLoop:
		c.Loop++
	case LabelSpoon:
		c.Spoon++
	case LabelError:
		c.Error++
	}
}

func (c *LabelCounts) Merge(o LabelCounts) {
	c.Simple += o.Simple
	c.Loop += o.Loop
	c.Spoon += o.Spoon
	c.Error += o.Error
}

func (c LabelCounts) Total() int {
	return c.Simple + c.Loop + c.Spoon + c.Error
}

// Everything one (date, version) unit produced
type DayResult struct {
	RunID     string
	Version   Version
	Date      time.Time
	Tokens    []TokenDay
	Aggregate DailyAggregate
	Labels    LabelCounts
	Artifacts []string
}
