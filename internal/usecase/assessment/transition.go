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

// Transition moves an assessment to TargetStage.
//
// Checks run in a fixed order: known stage, existing assessment, write
// access, already-at-target (success, nothing written), terminal source,
// relational prerequisites, allow-list. Entering assessment_in_progress
// provisions the artifact set before the stage is written; a partial
// provisioning leaves the stage untouched. The stage write is a
// compare-and-set re-read and verified in the same transaction.
func (s *Service) Transition(ctx context.Context, input TransitionInput) (ports.Assessment, error) {
	if err := checkContext(ctx); err != nil {
		return ports.Assessment{}, err
	}
	if err := s.ready(); err != nil {
		return ports.Assessment{}, err
	}

	target, err := domain.ParseStage(input.TargetStage)
	if err != nil {
		return ports.Assessment{}, err
	}
	assessmentID := strings.TrimSpace(input.AssessmentID)
	if assessmentID == "" {
		return ports.Assessment{}, errAssessmentIDRequired
	}

	current, err := s.repo.GetAssessment(ctx, assessmentID)
	if err != nil {
		return ports.Assessment{}, err
	}
	if err := s.authorize(ctx, input.Actor, domain.ActionWrite, assessmentID); err != nil {
		return ports.Assessment{}, err
	}

	from := current.Stage
	logCtx := s.logContext(ctx, "transition", input.Actor,
		slog.String("assessment_id", assessmentID),
		slog.String("transition", domain.TransitionTag(from, target)),
	)

	if from == target {
		s.metrics.ObserveTransition(from, target, ports.ResultNoop)
		logging.Debug(logCtx, "already at target stage")
		return current, nil
	}

	if err := checkTransition(current, target); err != nil {
		s.metrics.ObserveTransition(from, target, ports.ResultError)
		logging.Info(logCtx, "transition rejected", slog.Any("err", errs.Loggable(err)))
		return ports.Assessment{}, err
	}

	if domain.ProvisionsArtifacts(target) {
		if _, err := s.ensureArtifacts(logCtx, assessmentID, input.Actor); err != nil {
			s.metrics.ObserveTransition(from, target, ports.ResultError)
			logging.Error(logCtx, "artifact provisioning incomplete, stage not written", slog.Any("err", errs.Loggable(err)))
			return ports.Assessment{}, err
		}
	}

	updated, applied, err := s.writeStage(logCtx, current, target)
	if err != nil {
		s.metrics.ObserveTransition(from, target, ports.ResultError)
		return ports.Assessment{}, err
	}
	if !applied {
		s.metrics.ObserveTransition(from, target, ports.ResultNoop)
		logging.Info(logCtx, "concurrent writer reached target first")
		return updated, nil
	}

	s.metrics.ObserveTransition(from, target, ports.ResultSuccess)
	s.recordTransition(logCtx, current, updated, input.Actor)
	s.publishStageChanged(logCtx, domain.StageChanged{
		AssessmentID: assessmentID,
		From:         from,
		To:           target,
		ActorID:      input.Actor.ID,
		OccurredAt:   s.now().UTC(),
	})

	logging.Info(logCtx, "stage changed")
	return updated, nil
}

// Cancel moves an open assessment to cancelled, writing stage and status
// together.
func (s *Service) Cancel(ctx context.Context, assessmentID string, actor domain.Actor) (ports.Assessment, error) {
	return s.Transition(ctx, TransitionInput{
		AssessmentID: assessmentID,
		TargetStage:  string(domain.StageCancelled),
		Actor:        actor,
	})
}

func checkTransition(current ports.Assessment, target domain.Stage) error {
	if current.Stage.Terminal() {
		return fmt.Errorf("%w: assessment %s is %s", domain.ErrTerminalState, current.AssessmentID, current.Stage)
	}
	if err := domain.CheckPrerequisites(target, current.Links()); err != nil {
		return err
	}
	if !domain.CanTransition(current.Stage, target) {
		return fmt.Errorf("%w: %s", domain.ErrInvalidTransition, domain.TransitionTag(current.Stage, target))
	}
	return nil
}

// writeStage reports applied=false when a concurrent writer already moved
// the assessment to target; that is success for the caller.
func (s *Service) writeStage(ctx context.Context, current ports.Assessment, target domain.Stage) (ports.Assessment, bool, error) {
	write := ports.StageWrite{
		AssessmentID: current.AssessmentID,
		From:         current.Stage,
		To:           target,
		UpdatedAt:    s.nowString(),
	}
	if target == domain.StageCancelled {
		cancelled := domain.StatusCancelled
		write.Status = &cancelled
	}

	var (
		updated ports.Assessment
		applied bool
	)
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		ok, err := s.repo.CompareAndSetStage(txCtx, write)
		if err != nil {
			return err
		}
		after, err := s.repo.GetAssessment(txCtx, current.AssessmentID)
		if err != nil {
			return errs.Wrap(err, "re-read assessment")
		}

		if !ok {
			switch {
			case after.Stage == target:
				updated = after
				return nil
			case after.Stage.Terminal():
				return fmt.Errorf("%w: assessment %s became %s", domain.ErrTerminalState, current.AssessmentID, after.Stage)
			default:
				return fmt.Errorf("%w: %s (assessment moved to %s)", domain.ErrInvalidTransition, domain.TransitionTag(current.Stage, target), after.Stage)
			}
		}

		if err := verifyStageWrite(write, after); err != nil {
			return err
		}
		updated = after
		applied = true
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrVerificationFailed) {
			logging.Critical(ctx, "stage write did not read back",
				slog.String("before_stage", string(current.Stage)),
				slog.String("before_status", string(current.Status)),
				slog.String("want_stage", string(write.To)),
				slog.Any("err", errs.Loggable(err)),
			)
		}
		return ports.Assessment{}, false, err
	}
	return updated, applied, nil
}

func verifyStageWrite(write ports.StageWrite, after ports.Assessment) error {
	var failures []error
	if after.Stage != write.To {
		failures = append(failures, &domain.VerificationError{
			AssessmentID: write.AssessmentID,
			Field:        "stage",
			Want:         string(write.To),
			Got:          string(after.Stage),
		})
	}
	if write.Status != nil && after.Status != *write.Status {
		failures = append(failures, &domain.VerificationError{
			AssessmentID: write.AssessmentID,
			Field:        "status",
			Want:         string(*write.Status),
			Got:          string(after.Status),
		})
	}
	return errors.Join(failures...)
}

func (s *Service) recordTransition(ctx context.Context, before ports.Assessment, after ports.Assessment, actor domain.Actor) {
	metadata := map[string]any{
		"from": string(before.Stage),
		"to":   string(after.Stage),
	}
	if domain.IsRework(before.Stage, after.Stage) {
		metadata["rework"] = true
	}
	if before.Status != after.Status {
		metadata["status"] = map[string]any{"old": string(before.Status), "new": string(after.Status)}
	}

	s.recordHistory(ctx, ports.HistoryEntryCreate{
		EntityType:   domain.EntityAssessment,
		EntityID:     after.AssessmentID,
		AssessmentID: after.AssessmentID,
		Action:       domain.TransitionTag(before.Stage, after.Stage),
		FieldName:    strPtr("stage"),
		OldValue:     strPtr(string(before.Stage)),
		NewValue:     strPtr(string(after.Stage)),
		ActorID:      actor.ID,
		Metadata:     metadata,
	})
}
