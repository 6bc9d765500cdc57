package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWorkflowRun(t *testing.T) {
	before := testutil.ToFloat64(workflowRuns.WithLabelValues("news", "succeeded"))
	RecordWorkflowRun("news", "succeeded", 3*time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(workflowRuns.WithLabelValues("news", "succeeded")))
}

func TestRecordLLMUsageSkipsZero(t *testing.T) {
	RecordLLMUsage("test-model", 10, 0, 0)
	assert.Equal(t, float64(10), testutil.ToFloat64(llmTokens.WithLabelValues("test-model", "prompt")))
	assert.Equal(t, float64(0), testutil.ToFloat64(llmTokens.WithLabelValues("test-model", "completion")))
}

func TestHandlerServesMetrics(t *testing.T) {
	RecordRevision("blog")
	RecordUpstreamError("search")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "content_studio_workflow_revisions_total")
	assert.Contains(t, rec.Body.String(), "content_studio_upstream_errors_total")
}
