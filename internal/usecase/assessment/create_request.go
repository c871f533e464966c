package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
	"claimflow/internal/ports"
)

// CreateRequest opens a claim: the request and its assessment are written in
// one transaction, so an assessment never exists without its request.
func (s *Service) CreateRequest(ctx context.Context, input CreateRequestInput) (CreateRequestResult, error) {
	if err := checkContext(ctx); err != nil {
		return CreateRequestResult{}, err
	}
	if err := s.ready(); err != nil {
		return CreateRequestResult{}, err
	}
	if err := requireAdmin(input.Actor, "request intake"); err != nil {
		return CreateRequestResult{}, err
	}

	owner := strings.TrimSpace(input.OwnerName)
	registration := strings.ToUpper(strings.TrimSpace(input.VehicleRegistration))
	if owner == "" {
		return CreateRequestResult{}, fmt.Errorf("%w: owner name is required", ErrInvalidInput)
	}
	if registration == "" {
		return CreateRequestResult{}, fmt.Errorf("%w: vehicle registration is required", ErrInvalidInput)
	}

	now := s.nowString()
	request := ports.Request{
		RequestID:           uuid.NewString(),
		Number:              s.newNumber("REQ"),
		OwnerName:           owner,
		VehicleMake:         strings.TrimSpace(input.VehicleMake),
		VehicleModel:        strings.TrimSpace(input.VehicleModel),
		VehicleRegistration: registration,
		PendingEngineerID:   optionalID(input.PendingEngineerID),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	assessment := ports.Assessment{
		AssessmentID: uuid.NewString(),
		Number:       s.newNumber("ASM"),
		RequestID:    request.RequestID,
		Stage:        domain.StageRequestSubmitted,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	logCtx := s.logContext(ctx, "create_request", input.Actor, slog.String("request_id", request.RequestID))

	var out CreateRequestResult
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		req, asm, err := s.repo.CreateRequestWithAssessment(txCtx, request, assessment)
		if err != nil {
			return err
		}
		out = CreateRequestResult{Request: req, Assessment: asm}
		return nil
	}); err != nil {
		logging.Error(logCtx, "create request failed", slog.Any("err", errs.Loggable(err)))
		return CreateRequestResult{}, errs.Wrap(err, "create request")
	}

	s.recordHistory(logCtx, ports.HistoryEntryCreate{
		EntityType:   domain.EntityRequest,
		EntityID:     out.Request.RequestID,
		AssessmentID: out.Assessment.AssessmentID,
		Action:       domain.ActionCreated,
		ActorID:      input.Actor.ID,
		Metadata:     map[string]any{"number": out.Request.Number},
		CreatedAt:    now,
	})
	s.recordHistory(logCtx, ports.HistoryEntryCreate{
		EntityType:   domain.EntityAssessment,
		EntityID:     out.Assessment.AssessmentID,
		AssessmentID: out.Assessment.AssessmentID,
		Action:       domain.ActionCreated,
		FieldName:    strPtr("stage"),
		NewValue:     strPtr(string(out.Assessment.Stage)),
		ActorID:      input.Actor.ID,
		Metadata:     map[string]any{"number": out.Assessment.Number},
		CreatedAt:    now,
	})

	logging.Info(logCtx, "request created",
		slog.String("request_number", out.Request.Number),
		slog.String("assessment_id", out.Assessment.AssessmentID),
	)
	return out, nil
}
