// Package metrics records install counters for runner-side collection.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "setup_clojure"

// Recorder holds the install metrics of one run. A nil Recorder records
// nothing.
type Recorder struct {
	registry   *prometheus.Registry
	installs   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	downloaded *prometheus.CounterVec
	restores   *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		installs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installs_total",
			Help:      "Tool installs by outcome and where the tool came from.",
		}, []string{"tool", "result", "source"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "install_duration_seconds",
			Help:      "Wall time of one tool install including cache restore and save.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"tool"}),
		downloaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes downloaded for tool artifacts.",
		}, []string{"tool"}),
		restores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_restores_total",
			Help:      "Persistent cache restore attempts by outcome.",
		}, []string{"tool", "hit"}),
	}
	r.registry.MustRegister(r.installs, r.duration, r.downloaded, r.restores)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveInstall records the outcome of one install. An empty source is
// reported as "none".
func (r *Recorder) ObserveInstall(tool string, err error, source string, d time.Duration) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	if source == "" {
		source = "none"
	}
	r.installs.WithLabelValues(tool, result, source).Inc()
	r.duration.WithLabelValues(tool).Observe(d.Seconds())
}

// Downloaded satisfies tools.DownloadObserver.
func (r *Recorder) Downloaded(tool string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.downloaded.WithLabelValues(tool).Add(float64(n))
}

// CacheRestore records one persistent cache restore attempt.
func (r *Recorder) CacheRestore(tool string, hit bool) {
	if r == nil {
		return
	}
	label := "false"
	if hit {
		label = "true"
	}
	r.restores.WithLabelValues(tool, label).Inc()
}

// WriteFile writes every metric to path in the text exposition format.
func (r *Recorder) WriteFile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
