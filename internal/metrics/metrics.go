// Package metrics records one launcher run as Prometheus gauges and can dump
// them in the node_exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"voxlaunch/pkg/types"
)

const namespace = "voxlaunch"

// Recorder owns a private registry so that runs and tests never share state.
type Recorder struct {
	reg *prometheus.Registry

	phaseSeconds   *prometheus.GaugeVec
	readyWait      prometheus.Gauge
	downloadBytes  prometheus.Counter
	verifyFailures prometheus.Gauge
	selection      *prometheus.GaugeVec
	exitCode       prometheus.Gauge
	runInfo        *prometheus.GaugeVec
}

func New(runID string) *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		phaseSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "phase_duration_seconds",
				Help:      "Wall time spent in each launcher phase",
			},
			[]string{"phase"},
		),
		readyWait: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "payload",
			Name:      "ready_wait_seconds",
			Help:      "Time between launching the server and its port accepting connections",
		}),
		downloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acquire",
			Name:      "download_bytes_total",
			Help:      "Bytes downloaded while provisioning the portable runtime",
		}),
		verifyFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "install",
			Name:      "verification_failures",
			Help:      "Core libraries that failed the post-install import check",
		}),
		selection: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "selection_info",
				Help:      "Selected install profile and environment kind",
			},
			[]string{"profile", "env"},
		),
		exitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "exit_code",
			Help:      "Launcher exit code",
		}),
		runInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "info",
				Help:      "Run identity",
			},
			[]string{"run_id"},
		),
	}
	r.reg.MustRegister(r.phaseSeconds, r.readyWait, r.downloadBytes, r.verifyFailures, r.selection, r.exitCode, r.runInfo)
	r.runInfo.WithLabelValues(runID).Set(1)
	return r
}

// Phase starts timing name; call the returned func when the phase ends.
func (r *Recorder) Phase(name string) func() {
	start := time.Now()
	return func() { r.ObservePhase(name, time.Since(start)) }
}

func (r *Recorder) ObservePhase(name string, d time.Duration) {
	r.phaseSeconds.WithLabelValues(name).Set(d.Seconds())
}

func (r *Recorder) ReadyWait(d time.Duration) { r.readyWait.Set(d.Seconds()) }

func (r *Recorder) AddDownloadBytes(n int64) {
	if n > 0 {
		r.downloadBytes.Add(float64(n))
	}
}

func (r *Recorder) VerificationFailures(n int) { r.verifyFailures.Set(float64(n)) }

// Selected records the profile and environment; only the latest pair is kept.
func (r *Recorder) Selected(p types.Profile, k types.EnvKind) {
	r.selection.Reset()
	r.selection.WithLabelValues(string(p), string(k)).Set(1)
}

func (r *Recorder) ExitCode(code int) { r.exitCode.Set(float64(code)) }

// Registry exposes the underlying registry for inspection.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// WriteFile writes every metric to path atomically. An empty path is a no-op.
func (r *Recorder) WriteFile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
