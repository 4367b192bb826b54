package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorObserve(t *testing.T) {
	c := NewCollector("kmedoids")
	c.ObserveRestart(3, 2, 40)
	c.ObserveRestart(1, 0, 10)
	c.ObserveRun("completed", 20*time.Millisecond)
	c.ObserveRun("unconverged", time.Second)
	c.ObserveRun("completed", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues("unconverged")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Swaps))
	assert.Equal(t, 50.0, testutil.ToFloat64(c.Evaluations))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("kmedoids")
	b := NewCollector("kmedoids")
	a.ObserveRun("completed", time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Runs.WithLabelValues("completed")))
}

func TestHandler(t *testing.T) {
	c := NewCollector("kmedoids")
	c.ObserveRun("failed", time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `kmedoids_runs_total{outcome="failed"} 1`), body)
	assert.Contains(t, body, "kmedoids_run_duration_seconds")
}
