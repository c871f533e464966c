package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/ports"
)

// ScheduleAppointment creates the appointment row for the assessment's
// request. It does not link it; that is LinkRelation's job.
func (s *Service) ScheduleAppointment(ctx context.Context, input ScheduleAppointmentInput) (ports.Appointment, error) {
	if err := checkContext(ctx); err != nil {
		return ports.Appointment{}, err
	}
	if err := s.ready(); err != nil {
		return ports.Appointment{}, err
	}

	assessmentID := strings.TrimSpace(input.AssessmentID)
	if assessmentID == "" {
		return ports.Appointment{}, errAssessmentIDRequired
	}
	engineerID := strings.TrimSpace(input.EngineerID)
	if engineerID == "" {
		return ports.Appointment{}, errEngineerIDRequired
	}
	if input.ScheduledFor.IsZero() {
		return ports.Appointment{}, fmt.Errorf("%w: scheduled time is required", ErrInvalidInput)
	}

	assessment, err := s.repo.GetAssessment(ctx, assessmentID)
	if err != nil {
		return ports.Appointment{}, err
	}
	if err := s.authorize(ctx, input.Actor, domain.ActionWrite, assessmentID); err != nil {
		return ports.Appointment{}, err
	}
	if assessment.Stage.Terminal() {
		return ports.Appointment{}, fmt.Errorf("%w: assessment %s is %s", domain.ErrTerminalState, assessmentID, assessment.Stage)
	}

	now := s.nowString()
	appointment, err := s.repo.CreateAppointment(ctx, ports.Appointment{
		AppointmentID: uuid.NewString(),
		RequestID:     assessment.RequestID,
		EngineerID:    engineerID,
		ScheduledFor:  input.ScheduledFor.UTC().Format(time.RFC3339),
		CreatedAt:     now,
	})
	if err != nil {
		return ports.Appointment{}, err
	}

	logCtx := s.logContext(ctx, "schedule_appointment", input.Actor,
		slog.String("assessment_id", assessmentID),
		slog.String("appointment_id", appointment.AppointmentID),
	)
	s.recordHistory(logCtx, ports.HistoryEntryCreate{
		EntityType:   domain.EntityAppointment,
		EntityID:     appointment.AppointmentID,
		AssessmentID: assessmentID,
		Action:       domain.ActionCreated,
		ActorID:      input.Actor.ID,
		Metadata: map[string]any{
			"engineer_id":   engineerID,
			"scheduled_for": appointment.ScheduledFor,
		},
		CreatedAt: now,
	})

	logging.Info(logCtx, "appointment scheduled", slog.String("engineer_id", engineerID))
	return appointment, nil
}
