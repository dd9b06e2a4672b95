package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quire"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	buildDuration   prom.Histogram
	rebuildDuration *prom.HistogramVec
	rebuilds        *prom.CounterVec
	rendered        prom.Counter
	copied          prom.Counter
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of full site builds",
			Buckets:   prom.DefBuckets,
		}),
		rebuildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of incremental rebuilds by change kind",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
		rebuilds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rebuilds_total",
			Help:      "Incremental rebuilds by change kind and result",
		}, []string{"kind", "result"}),
		rendered: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rendered_total",
			Help:      "Pages and sections rendered to HTML",
		}),
		copied: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "copied_files_total",
			Help:      "Static files and assets written to the output",
		}),
	}
	reg.MustRegister(pr.buildDuration, pr.rebuildDuration, pr.rebuilds, pr.rendered, pr.copied)
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRebuild(kind string, d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.rebuildDuration.WithLabelValues(kind).Observe(d.Seconds())
	p.rebuilds.WithLabelValues(kind, res).Inc()
}

func (p *PrometheusRecorder) AddRendered(n int) {
	if p == nil {
		return
	}
	p.rendered.Add(float64(n))
}

func (p *PrometheusRecorder) AddCopied(n int) {
	if p == nil {
		return
	}
	p.copied.Add(float64(n))
}

// HTTPHandler returns an http.Handler that serves the metrics of reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
