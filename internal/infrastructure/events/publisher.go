package events

import (
	"context"
	"errors"
	"log/slog"

	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/ports"
)

// LogPublisher records stage_changed in the structured log. It is the
// default when no broker is configured.
type LogPublisher struct{}

var _ ports.StageEventPublisher = LogPublisher{}

func (LogPublisher) PublishStageChanged(ctx context.Context, event domain.StageChanged) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	logging.Info(ctx, "stage changed",
		slog.String("component", "events.log"),
		slog.String("assessment_id", event.AssessmentID),
		slog.String("transition", domain.TransitionTag(event.From, event.To)),
		slog.String("actor_id", event.ActorID),
	)
	return nil
}

// Fanout delivers to every publisher and joins their errors.
type Fanout []ports.StageEventPublisher

func (f Fanout) PublishStageChanged(ctx context.Context, event domain.StageChanged) error {
	var joined error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.PublishStageChanged(ctx, event); err != nil {
			joined = errors.Join(joined, err)
		}
	}
	return joined
}
