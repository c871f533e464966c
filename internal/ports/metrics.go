package ports

import domain "claimflow/internal/domain/assessment"

const (
	ResultSuccess = "success"
	ResultNoop    = "noop"
	ResultError   = "error"
)

type Metrics interface {
	ObserveTransition(from domain.Stage, to domain.Stage, result string)
	ObserveProvisioning(artifact domain.ArtifactKind, result string)
	IncAuditFailure(entity domain.EntityType)
}

type NoopMetrics struct{}

func (NoopMetrics) ObserveTransition(domain.Stage, domain.Stage, string) {}
func (NoopMetrics) ObserveProvisioning(domain.ArtifactKind, string) {}
func (NoopMetrics) IncAuditFailure(domain.EntityType) {}
