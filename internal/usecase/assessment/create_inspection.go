package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/ports"
)

// CreateInspection creates an inspection under the assessment's linked
// appointment. The appointment must be linked first.
func (s *Service) CreateInspection(ctx context.Context, input CreateInspectionInput) (ports.Inspection, error) {
	if err := checkContext(ctx); err != nil {
		return ports.Inspection{}, err
	}
	if err := s.ready(); err != nil {
		return ports.Inspection{}, err
	}

	assessmentID := strings.TrimSpace(input.AssessmentID)
	if assessmentID == "" {
		return ports.Inspection{}, errAssessmentIDRequired
	}

	assessment, err := s.repo.GetAssessment(ctx, assessmentID)
	if err != nil {
		return ports.Inspection{}, err
	}
	if err := s.authorize(ctx, input.Actor, domain.ActionWrite, assessmentID); err != nil {
		return ports.Inspection{}, err
	}
	if assessment.Stage.Terminal() {
		return ports.Inspection{}, fmt.Errorf("%w: assessment %s is %s", domain.ErrTerminalState, assessmentID, assessment.Stage)
	}
	if !assessment.Links().Has(domain.RelationAppointment) {
		return ports.Inspection{}, &domain.MissingPrerequisiteError{
			Stage:     domain.StageInspectionScheduled,
			Relations: []domain.Relation{domain.RelationAppointment},
		}
	}

	now := s.nowString()
	inspection, err := s.repo.CreateInspection(ctx, ports.Inspection{
		InspectionID:  uuid.NewString(),
		RequestID:     assessment.RequestID,
		AppointmentID: *assessment.AppointmentID,
		CreatedAt:     now,
	})
	if err != nil {
		return ports.Inspection{}, err
	}

	logCtx := s.logContext(ctx, "create_inspection", input.Actor,
		slog.String("assessment_id", assessmentID),
		slog.String("inspection_id", inspection.InspectionID),
	)
	s.recordHistory(logCtx, ports.HistoryEntryCreate{
		EntityType:   domain.EntityInspection,
		EntityID:     inspection.InspectionID,
		AssessmentID: assessmentID,
		Action:       domain.ActionCreated,
		ActorID:      input.Actor.ID,
		Metadata:     map[string]any{"appointment_id": inspection.AppointmentID},
		CreatedAt:    now,
	})

	logging.Info(logCtx, "inspection created")
	return inspection, nil
}
