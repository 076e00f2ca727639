package metrics

import (
	"dexnetwork/internal/config"
	"dexnetwork/internal/domain"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveUnit(t *testing.T) {
	m := New()

	m.ObserveUnit(domain.V2, OutcomeOK, 150*time.Millisecond)
	m.ObserveUnit(domain.V2, OutcomeOK, time.Second)
	m.ObserveUnit(domain.V3, OutcomeSkipped, 0)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.units.WithLabelValues("v2", OutcomeOK)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.units.WithLabelValues("v3", OutcomeSkipped)))
	assert.Equal(t, 1, promtest.CollectAndCount(m.unitDuration))
}

func TestMetrics_ObserveLabels(t *testing.T) {
	m := New()

	m.ObserveLabels(domain.Merged, domain.LabelCounts{Simple: 5, Loop: 2, Error: 1})

	assert.Equal(t, 5.0, promtest.ToFloat64(m.transactions.WithLabelValues("merged", "simple")))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.transactions.WithLabelValues("merged", "loop")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.transactions.WithLabelValues("merged", "error")))
	// zero counts are not materialized
	assert.Equal(t, 3, promtest.CollectAndCount(m.transactions))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SinkError("nats")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `dexnetwork_sink_errors_total{sink="nats"} 1`)
}

func TestInitPProf_Disabled(t *testing.T) {
	p, err := InitPProf(config.PyroscopeConfig{Enabled: false}, "test")
	assert.NoError(t, err)
	assert.Nil(t, p)
}
