package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
	"claimflow/internal/ports"
)

// LinkRelation sets one of the assessment's nullable relation columns. The
// referenced row must exist and belong to the same claim. Linking the id that
// is already set is a no-op.
func (s *Service) LinkRelation(ctx context.Context, input LinkRelationInput) (ports.Assessment, error) {
	if err := checkContext(ctx); err != nil {
		return ports.Assessment{}, err
	}
	if err := s.ready(); err != nil {
		return ports.Assessment{}, err
	}

	relation, err := domain.ParseRelation(input.Relation)
	if err != nil {
		return ports.Assessment{}, err
	}
	assessmentID := strings.TrimSpace(input.AssessmentID)
	if assessmentID == "" {
		return ports.Assessment{}, errAssessmentIDRequired
	}
	relationID := strings.TrimSpace(input.RelationID)
	if relationID == "" {
		return ports.Assessment{}, fmt.Errorf("%w: %s id is required", ErrInvalidInput, relation)
	}

	current, err := s.repo.GetAssessment(ctx, assessmentID)
	if err != nil {
		return ports.Assessment{}, err
	}
	if err := s.authorize(ctx, input.Actor, domain.ActionWrite, assessmentID); err != nil {
		return ports.Assessment{}, err
	}
	if current.Stage.Terminal() {
		return ports.Assessment{}, fmt.Errorf("%w: assessment %s is %s", domain.ErrTerminalState, assessmentID, current.Stage)
	}
	if err := s.checkRelationOwner(ctx, current, relation, relationID); err != nil {
		return ports.Assessment{}, err
	}

	previous := current.Links().Get(relation)
	if previous != nil && *previous == relationID {
		return current, nil
	}

	logCtx := s.logContext(ctx, "link_relation", input.Actor,
		slog.String("assessment_id", assessmentID),
		slog.String("relation", string(relation)),
		slog.String("relation_id", relationID),
	)

	var updated ports.Assessment
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.SetRelation(txCtx, assessmentID, relation, relationID, s.nowString()); err != nil {
			return err
		}
		after, err := s.repo.GetAssessment(txCtx, assessmentID)
		if err != nil {
			return errs.Wrap(err, "re-read assessment")
		}
		if got := derefString(after.Links().Get(relation)); got != relationID {
			return &domain.VerificationError{
				AssessmentID: assessmentID,
				Field:        string(relation) + "_id",
				Want:         relationID,
				Got:          got,
			}
		}
		updated = after
		return nil
	}); err != nil {
		if errors.Is(err, domain.ErrVerificationFailed) {
			logging.Critical(logCtx, "relation write did not read back",
				slog.String("before", derefString(previous)),
				slog.Any("err", errs.Loggable(err)),
			)
		}
		return ports.Assessment{}, err
	}

	s.recordHistory(logCtx, ports.HistoryEntryCreate{
		EntityType:   domain.EntityAssessment,
		EntityID:     assessmentID,
		AssessmentID: assessmentID,
		Action:       domain.ActionRelationLinked,
		FieldName:    strPtr(string(relation) + "_id"),
		OldValue:     previous,
		NewValue:     strPtr(relationID),
		ActorID:      input.Actor.ID,
	})

	logging.Info(logCtx, "relation linked")
	return updated, nil
}

func (s *Service) checkRelationOwner(ctx context.Context, assessment ports.Assessment, relation domain.Relation, relationID string) error {
	mismatch := func(owner string) error {
		return fmt.Errorf("%w: %s %s belongs to %s", domain.ErrRelationMismatch, relation, relationID, owner)
	}

	switch relation {
	case domain.RelationAppointment:
		appointment, err := s.repo.GetAppointment(ctx, relationID)
		if err != nil {
			return err
		}
		if appointment.RequestID != assessment.RequestID {
			return mismatch("request " + appointment.RequestID)
		}
	case domain.RelationInspection:
		inspection, err := s.repo.GetInspection(ctx, relationID)
		if err != nil {
			return err
		}
		if inspection.RequestID != assessment.RequestID {
			return mismatch("request " + inspection.RequestID)
		}
	case domain.RelationEstimate:
		estimate, err := s.artifacts.GetEstimate(ctx, relationID)
		if err != nil {
			return err
		}
		if estimate.AssessmentID != assessment.AssessmentID {
			return mismatch("assessment " + estimate.AssessmentID)
		}
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownRelation, relation)
	}
	return nil
}
