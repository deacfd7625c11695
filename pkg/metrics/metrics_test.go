package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New()
	m.Transitions.WithLabelValues("finalize", "ok").Inc()
	m.Transitions.WithLabelValues("finalize", "ok").Inc()
	m.DisplayCues.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("finalize", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DisplayCues))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "bematende_stage_transitions_total")
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
