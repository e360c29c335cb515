package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Upload(OutcomeOK, 3)
	m.Upload(OutcomeRejected, 0)
	m.Analysis("zero", OutcomeOK, time.Now())
	m.Analysis("zero", OutcomeRejected, time.Now())
	m.Analysis("cal", OutcomeOK, time.Now())
	m.Flagged("zero", 12)
	m.Flagged("cal", 0)
	m.PublishFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cleanedValues))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues("zero", OutcomeRejected)))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.flaggedRows.WithLabelValues("zero")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishFailures))
	assert.Equal(t, 2, testutil.CollectAndCount(m.analysisDuration))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Upload(OutcomeOK, 1)
		m.Analysis("mdl", OutcomeFailed, time.Now())
		m.Flagged("mdl", 1)
		m.PublishFailed()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Flagged("imet", 4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `airaudit_flagged_rows_total{flag="imet"} 4`))
}
