package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
	"claimflow/internal/ports"
)

// Recorder implements ports.Metrics on a dedicated registry so tests and
// multiple app instances never collide on the global one.
type Recorder struct {
	registry      *prometheus.Registry
	transitions   *prometheus.CounterVec
	provisioning  *prometheus.CounterVec
	auditFailures *prometheus.CounterVec
}

var _ ports.Metrics = (*Recorder)(nil)

func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "claimflow_stage_transitions_total",
			Help: "Stage transition attempts by edge and result.",
		}, []string{"from", "to", "result"}),
		provisioning: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "claimflow_artifact_provisioning_total",
			Help: "Artifact provisioning steps by artifact and result.",
		}, []string{"artifact", "result"}),
		auditFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "claimflow_audit_failures_total",
			Help: "History entries that could not be written.",
		}, []string{"entity"}),
	}

	for _, c := range []prometheus.Collector{
		r.transitions,
		r.provisioning,
		r.auditFailures,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	} {
		if err := r.registry.Register(c); err != nil {
			return nil, errs.Wrap(err, "register collector")
		}
	}
	return r, nil
}

func (r *Recorder) ObserveTransition(from domain.Stage, to domain.Stage, result string) {
	r.transitions.WithLabelValues(string(from), string(to), result).Inc()
}

func (r *Recorder) ObserveProvisioning(artifact domain.ArtifactKind, result string) {
	r.provisioning.WithLabelValues(string(artifact), result).Inc()
}

func (r *Recorder) IncAuditFailure(entity domain.EntityType) {
	r.auditFailures.WithLabelValues(string(entity)).Inc()
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
