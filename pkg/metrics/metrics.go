// Package metrics exposes render loop and process metrics for Prometheus.
package metrics

import (
	"context"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/teslashibe/go-facemesh/internal/log"
)

// DefaultSampleInterval is how often process gauges are refreshed.
const DefaultSampleInterval = 500 * time.Millisecond

// Recorder owns a registry with the render loop metrics. It implements
// facemesh.Observer.
type Recorder struct {
	registry *prometheus.Registry

	framesRendered prometheus.Counter
	framesDropped  prometheus.Counter
	inference      prometheus.Histogram
	faces          prometheus.Gauge
	memUsage       prometheus.Gauge
	cpuUsage       prometheus.Gauge
}

// NewRecorder creates and registers every metric on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		framesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facemesh_frames_rendered_total",
			Help: "Total number of frames rendered",
		}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facemesh_frames_dropped_total",
			Help: "Display ticks skipped while inference was running or the camera had no frame",
		}),
		inference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "facemesh_inference_seconds",
			Help:    "Face landmark inference latency",
			Buckets: []float64{.005, .01, .02, .035, .05, .075, .1, .15, .25, .5, 1},
		}),
		faces: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "facemesh_faces_detected",
			Help: "Faces found in the last rendered frame",
		}),
		memUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memory_usage_megabytes",
			Help: "Memory usage in Megabytes",
		}),
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cpu_usage_percent",
			Help: "CPU usage in percent",
		}),
	}

	r.registry.MustRegister(
		r.framesRendered,
		r.framesDropped,
		r.inference,
		r.faces,
		r.memUsage,
		r.cpuUsage,
	)
	return r
}

// FrameRendered records one rendered frame.
func (r *Recorder) FrameRendered(faces int, inference time.Duration) {
	r.framesRendered.Inc()
	r.inference.Observe(inference.Seconds())
	r.faces.Set(float64(faces))
}

// FramesDropped records n skipped ticks.
func (r *Recorder) FramesDropped(n int) {
	if n > 0 {
		r.framesDropped.Add(float64(n))
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns the Prometheus exposition handler.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// SampleProcess refreshes the process gauges every interval until ctx is
// cancelled.
func (r *Recorder) SampleProcess(ctx context.Context, interval time.Duration) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("process metrics disabled", "error", err)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sample(proc)
		}
	}
}

func (r *Recorder) sample(proc *process.Process) {
	if mem, err := proc.MemoryInfo(); err == nil {
		r.memUsage.Set(float64(mem.RSS / 1024 / 1024))
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		r.cpuUsage.Set(math.Round(cpu*100) / 100)
	}
}
