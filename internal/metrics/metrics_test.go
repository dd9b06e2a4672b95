package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.ObserveRebuild("content", 20*time.Millisecond, true)
	pr.ObserveRebuild("template", 40*time.Millisecond, false)
	pr.AddRendered(3)
	pr.AddCopied(2)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"quire_build_duration_seconds",
		"quire_rebuild_duration_seconds",
		"quire_rebuilds_total",
		"quire_rendered_total",
		"quire_copied_files_total",
	} {
		assert.True(t, names[want], want)
	}

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "quire_rendered_total 3")
}

func TestNilAndNoopRecorders(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.ObserveBuildDuration(time.Second)
		pr.ObserveRebuild("static", time.Second, true)
		pr.AddRendered(1)
		pr.AddCopied(1)
	})

	var r Recorder = NoopRecorder{}
	assert.NotPanics(t, func() { r.AddRendered(1) })
}
