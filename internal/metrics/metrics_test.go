package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.SearchQuery("ok")
	m.SearchQuery("ok")
	m.SearchQuery("blocked")
	m.LeadScraped(true)
	m.LeadScraped(false)
	m.LeadProcessed("REVIEW_PENDING")
	m.LeadProcessed("ERROR")
	m.LeadProcessed("ERROR")
	m.CampaignStarted()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.searchQueries.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchQueries.WithLabelValues("blocked")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.leadsScraped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emailsFound))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.leadsProcessed.WithLabelValues("ERROR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeRuns))

	m.CampaignFinished()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeRuns))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveStage("brand_analysis", "ok", 1500*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `prospect_stage_duration_seconds_count{outcome="ok",stage="brand_analysis"} 1`)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.SearchQuery("ok")
	m.LeadScraped(true)
	m.LeadProcessed("ERROR")
	m.ObserveStage("email", "error", time.Second)
	m.CampaignStarted()
	m.CampaignFinished()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
