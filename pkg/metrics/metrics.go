// Package metrics exposes the orchestrator's run counters over HTTP in
// Prometheus exposition format. It has no teacher-file analogue: the
// dependencies it wires (client_golang, gorilla/handlers) previously only
// served the teacher's dashboard/CI subsystems, which this repo drops.
package metrics

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/w2807/fuzz/pkg/hostlog"
)

// Recorder holds the counters/gauges the orchestrator updates as it runs.
type Recorder struct {
	Iterations  prometheus.Counter
	Crashes     prometheus.Counter
	Saved       prometheus.Counter
	CorpusSize  prometheus.Gauge
	ExecResults *prometheus.CounterVec
}

// NewRecorder registers a fresh set of metrics on its own registry (never
// the global default, so multiple fuzzer instances in one test binary
// don't collide).
func NewRecorder() (*Recorder, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		Iterations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fuzz_iterations_total",
			Help: "Total fuzzing iterations completed.",
		}),
		Crashes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fuzz_crashes_total",
			Help: "Total executions classified as crashes.",
		}),
		Saved: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fuzz_crashes_saved_total",
			Help: "Total crash reproducers persisted (post de-duplication).",
		}),
		CorpusSize: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fuzz_corpus_size",
			Help: "Current number of entries in the corpus.",
		}),
		ExecResults: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "fuzz_exec_results_total",
			Help: "Executions by triage reason (timeout, asan, signal:N, exit:N, ...).",
		}, []string{"reason"}),
	}
	return r, reg
}

// Serve starts an HTTP server exposing /metrics on addr, wrapped with
// logging and panic-recovery middleware in the same style the teacher's
// dashboard wraps its own HTTP handlers. It runs until the process exits;
// callers typically launch it in its own goroutine.
func Serve(addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	wrapped := handlers.RecoveryHandler()(handlers.CombinedLoggingHandler(logWriter{}, mux))
	hostlog.Logf(1, "metrics server listening on %s", addr)
	return http.ListenAndServe(addr, wrapped)
}

// logWriter adapts hostlog to the io.Writer CombinedLoggingHandler wants.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	hostlog.Logf(2, "%s", string(p))
	return len(p), nil
}
