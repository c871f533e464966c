package ports

import (
	"context"
	"errors"

	domain "claimflow/internal/domain/assessment"
)

var (
	ErrRequestNotFound     = errors.New("request not found")
	ErrAssessmentNotFound  = errors.New("assessment not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInspectionNotFound  = errors.New("inspection not found")
	ErrEstimateNotFound    = errors.New("estimate not found")
	ErrDuplicateAssessment = errors.New("request already has an assessment")
)

type Request struct {
	RequestID           string
	Number              string
	OwnerName           string
	VehicleMake         string
	VehicleModel        string
	VehicleRegistration string
	PendingEngineerID   *string
	CreatedAt           string
	UpdatedAt           string
}

type Assessment struct {
	AssessmentID  string
	Number        string
	RequestID     string
	Stage         domain.Stage
	Status        domain.Status
	AppointmentID *string
	InspectionID  *string
	EstimateID    *string
	CreatedAt     string
	UpdatedAt     string
}

func (a Assessment) Links() domain.Links {
	return domain.Links{
		AppointmentID: a.AppointmentID,
		InspectionID:  a.InspectionID,
		EstimateID:    a.EstimateID,
	}
}

type Appointment struct {
	AppointmentID string
	RequestID     string
	EngineerID    string
	ScheduledFor  string
	CreatedAt     string
}

type Inspection struct {
	InspectionID  string
	RequestID     string
	AppointmentID string
	CreatedAt     string
}

// StageWrite is a compare-and-set of the stage column. Status, when set, is
// written in the same statement.
type StageWrite struct {
	AssessmentID string
	From         domain.Stage
	To           domain.Stage
	Status       *domain.Status
	UpdatedAt    string
}

type AssessmentListFilter struct {
	Stages []domain.Stage
}

// AssessmentListRow is one assessment joined with the request and appointment
// columns a list view and the access evaluator need.
type AssessmentListRow struct {
	Assessment
	RequestNumber           string
	OwnerName               string
	VehicleRegistration     string
	PendingEngineerID       *string
	AppointmentEngineerID   *string
	AppointmentScheduledFor *string
}

func (r AssessmentListRow) AccessFacts() domain.AccessFacts {
	return domain.AccessFacts{
		AssessmentID:          r.AssessmentID,
		AppointmentID:         r.AppointmentID,
		AppointmentEngineerID: r.AppointmentEngineerID,
		PendingEngineerID:     r.PendingEngineerID,
	}
}

type AssessmentReadRepository interface {
	GetRequest(ctx context.Context, requestID string) (Request, error)
	GetAssessment(ctx context.Context, assessmentID string) (Assessment, error)
	GetAssessmentByRequest(ctx context.Context, requestID string) (Assessment, error)
	GetAppointment(ctx context.Context, appointmentID string) (Appointment, error)
	GetInspection(ctx context.Context, inspectionID string) (Inspection, error)
	GetAccessFacts(ctx context.Context, assessmentID string) (domain.AccessFacts, error)
	ListAssessments(ctx context.Context, filter AssessmentListFilter) ([]AssessmentListRow, error)
}

type AssessmentRepository interface {
	AssessmentReadRepository
	CreateRequestWithAssessment(ctx context.Context, request Request, assessment Assessment) (Request, Assessment, error)
	SetPendingEngineer(ctx context.Context, requestID string, engineerID *string, updatedAt string) error
	// CompareAndSetStage reports false when the row was not at write.From.
	CompareAndSetStage(ctx context.Context, write StageWrite) (bool, error)
	SetRelation(ctx context.Context, assessmentID string, relation domain.Relation, relationID string, updatedAt string) error
	CreateAppointment(ctx context.Context, appointment Appointment) (Appointment, error)
	CreateInspection(ctx context.Context, inspection Inspection) (Inspection, error)
}
