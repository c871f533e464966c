package ports

import (
	"context"

	domain "claimflow/internal/domain/assessment"
)

// StageEventPublisher delivers stage_changed to downstream services
// (documents, notifications). The engine never waits on delivery.
type StageEventPublisher interface {
	PublishStageChanged(ctx context.Context, event domain.StageChanged) error
}
