package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
	"claimflow/internal/ports"
)

const publishTimeout = 10 * time.Second

// ErrInvalidInput marks caller mistakes that no retry will fix.
var ErrInvalidInput = errors.New("invalid input")

var (
	errAssessmentIDRequired = fmt.Errorf("%w: assessment id is required", ErrInvalidInput)
	errRequestIDRequired    = fmt.Errorf("%w: request id is required", ErrInvalidInput)
	errEngineerIDRequired   = fmt.Errorf("%w: engineer id is required", ErrInvalidInput)
)

// Deps are the ports the engine runs on. Publisher and Metrics are optional.
type Deps struct {
	Assessments ports.AssessmentRepository
	Artifacts   ports.ArtifactRepository
	History     ports.HistoryRepository
	UnitOfWork  ports.UnitOfWork
	Publisher   ports.StageEventPublisher
	Metrics     ports.Metrics
}

type Service struct {
	repo      ports.AssessmentRepository
	artifacts ports.ArtifactRepository
	history   ports.HistoryRepository
	uow       ports.UnitOfWork
	publisher ports.StageEventPublisher
	metrics   ports.Metrics

	now       func() time.Time
	newNumber func(prefix string) string
	inflight  sync.WaitGroup
}

func NewService(deps Deps) *Service {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &Service{
		repo:      deps.Assessments,
		artifacts: deps.Artifacts,
		history:   deps.History,
		uow:       deps.UnitOfWork,
		publisher: deps.Publisher,
		metrics:   metrics,
		now:       time.Now,
		newNumber: func(prefix string) string {
			return prefix + "-" + ulid.Make().String()
		},
	}
}

type CreateRequestInput struct {
	OwnerName           string
	VehicleMake         string
	VehicleModel        string
	VehicleRegistration string
	PendingEngineerID   string
	Actor               domain.Actor
}

type CreateRequestResult struct {
	Request    ports.Request
	Assessment ports.Assessment
}

type AssignEngineerInput struct {
	RequestID  string
	EngineerID string
	Actor      domain.Actor
}

type ScheduleAppointmentInput struct {
	AssessmentID string
	EngineerID   string
	ScheduledFor time.Time
	Actor        domain.Actor
}

type CreateInspectionInput struct {
	AssessmentID string
	Actor        domain.Actor
}

type LinkRelationInput struct {
	AssessmentID string
	Relation     string
	RelationID   string
	Actor        domain.Actor
}

type TransitionInput struct {
	AssessmentID string
	TargetStage  string
	Actor        domain.Actor
}

type EnsureArtifactsInput struct {
	AssessmentID string
	Actor        domain.Actor
}

type HistoryPageInput struct {
	EntityType domain.EntityType
	EntityID   string
	AfterID    uint64
	Limit      int
	Actor      domain.Actor
}

// HistoryPage is one slice of a ledger read. NextAfterID is zero when the
// read is exhausted.
type HistoryPage struct {
	Entries     []ports.HistoryEntry
	NextAfterID uint64
}

type ListByStageInput struct {
	Stages []string
	Actor  domain.Actor
}

type StageCount struct {
	Stage domain.Stage
	Count int
}

// WaitForEvents blocks until every stage_changed publish started so far has
// returned.
func (s *Service) WaitForEvents() {
	s.inflight.Wait()
}

func (s *Service) ready() error {
	if s.repo == nil {
		return errors.New("assessment repository is required")
	}
	if s.artifacts == nil {
		return errors.New("artifact repository is required")
	}
	if s.history == nil {
		return errors.New("history repository is required")
	}
	if s.uow == nil {
		return errors.New("unit of work is required")
	}
	return nil
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	return nil
}

func (s *Service) nowString() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (s *Service) logContext(ctx context.Context, op string, actor domain.Actor, attrs ...slog.Attr) context.Context {
	base := []slog.Attr{
		slog.String("component", "usecase.assessment"),
		slog.String("op", op),
		slog.String("actor_id", actor.ID),
	}
	return logging.WithAttrs(ctx, append(base, attrs...)...)
}

// recordHistory appends one ledger entry. The ledger is a side channel:
// failures are logged and counted, never returned.
func (s *Service) recordHistory(ctx context.Context, entry ports.HistoryEntryCreate) {
	if entry.CreatedAt == "" {
		entry.CreatedAt = s.nowString()
	}
	if _, err := s.history.AppendHistory(ctx, entry); err != nil {
		s.metrics.IncAuditFailure(entry.EntityType)
		logging.Error(ctx, "append history failed",
			slog.String("entity_type", string(entry.EntityType)),
			slog.String("entity_id", entry.EntityID),
			slog.String("action", entry.Action),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}

// publishStageChanged hands the event to the publisher without waiting.
func (s *Service) publishStageChanged(ctx context.Context, event domain.StageChanged) {
	if s.publisher == nil {
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := s.publisher.PublishStageChanged(pubCtx, event); err != nil {
			logging.Warn(pubCtx, "publish stage_changed failed", slog.Any("err", errs.Loggable(err)))
		}
	}()
}

func strPtr(s string) *string {
	return &s
}

func optionalID(raw string) *string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	return &v
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
