package assessment

import (
	"context"
	"log/slog"
	"strings"

	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/ports"
)

// AssignEngineer sets the request-level pending assignment that grants an
// engineer access before an appointment is linked. An empty engineer id
// clears it.
func (s *Service) AssignEngineer(ctx context.Context, input AssignEngineerInput) (ports.Request, error) {
	if err := checkContext(ctx); err != nil {
		return ports.Request{}, err
	}
	if err := s.ready(); err != nil {
		return ports.Request{}, err
	}
	if err := requireAdmin(input.Actor, "engineer assignment"); err != nil {
		return ports.Request{}, err
	}

	requestID := strings.TrimSpace(input.RequestID)
	if requestID == "" {
		return ports.Request{}, errRequestIDRequired
	}
	engineerID := optionalID(input.EngineerID)

	logCtx := s.logContext(ctx, "assign_engineer", input.Actor, slog.String("request_id", requestID))

	var before, after ports.Request
	var assessmentID string
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		before, err = s.repo.GetRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		if err := s.repo.SetPendingEngineer(txCtx, requestID, engineerID, s.nowString()); err != nil {
			return err
		}
		after, err = s.repo.GetRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		asm, err := s.repo.GetAssessmentByRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		assessmentID = asm.AssessmentID
		return nil
	}); err != nil {
		return ports.Request{}, err
	}

	if derefString(before.PendingEngineerID) != derefString(after.PendingEngineerID) {
		s.recordHistory(logCtx, ports.HistoryEntryCreate{
			EntityType:   domain.EntityRequest,
			EntityID:     requestID,
			AssessmentID: assessmentID,
			Action:       domain.ActionAssigned,
			FieldName:    strPtr("pending_engineer_id"),
			OldValue:     before.PendingEngineerID,
			NewValue:     after.PendingEngineerID,
			ActorID:      input.Actor.ID,
		})
	}

	logging.Info(logCtx, "engineer assigned", slog.String("engineer_id", derefString(after.PendingEngineerID)))
	return after, nil
}
