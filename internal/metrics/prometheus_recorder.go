package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	statusPolls *prom.CounterVec
	jobOutcomes *prom.CounterVec
	jobDuration prom.Histogram
	backfill    *prom.CounterVec
	deviceSync  *prom.CounterVec
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		statusPolls: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "larder",
			Name:      "status_polls_total",
			Help:      "Job status polls by returned status (or failed)",
		}, []string{"result"}),
		jobOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "larder",
			Name:      "job_outcomes_total",
			Help:      "Extraction jobs by terminal outcome",
		}, []string{"outcome"}),
		jobDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "larder",
			Name:      "job_duration_seconds",
			Help:      "Time from submit to terminal state",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 60, 90, 120, 180},
		}),
		backfill: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "larder",
			Name:      "image_backfill_total",
			Help:      "Image back-fill polls by result",
		}, []string{"result"}),
		deviceSync: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "larder",
			Name:      "device_sync_total",
			Help:      "Device registration and entitlement syncs by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.statusPolls, pr.jobOutcomes, pr.jobDuration, pr.backfill, pr.deviceSync)
	return pr
}

func (p *PrometheusRecorder) IncStatusPoll(result string) {
	p.statusPolls.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) IncJobOutcome(outcome string) {
	p.jobOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveJobDuration(d time.Duration) {
	p.jobDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBackfill(result string) {
	p.backfill.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) IncDeviceSync(result string) {
	p.deviceSync.WithLabelValues(result).Inc()
}
