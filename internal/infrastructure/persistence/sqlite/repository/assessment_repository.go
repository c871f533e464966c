package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
	"claimflow/internal/infrastructure/persistence/sqlite/model"
	"claimflow/internal/ports"
)

type AssessmentRepository struct {
	db *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

var _ ports.AssessmentRepository = (*AssessmentRepository)(nil)

func (r *AssessmentRepository) GetRequest(ctx context.Context, requestID string) (ports.Request, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return ports.Request{}, err
	}

	var row model.Request
	if err := db.Where("request_id = ?", requestID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Request{}, ports.ErrRequestNotFound
		}
		return ports.Request{}, errs.Wrap(err, "query request")
	}
	return mapRequest(row), nil
}

func (r *AssessmentRepository) GetAssessment(ctx context.Context, assessmentID string) (ports.Assessment, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return ports.Assessment{}, err
	}
	return takeAssessment(db.Where("assessment_id = ?", assessmentID))
}

func (r *AssessmentRepository) GetAssessmentByRequest(ctx context.Context, requestID string) (ports.Assessment, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return ports.Assessment{}, err
	}
	return takeAssessment(db.Where("request_id = ?", requestID))
}

func (r *AssessmentRepository) GetAppointment(ctx context.Context, appointmentID string) (ports.Appointment, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return ports.Appointment{}, err
	}

	var row model.Appointment
	if err := db.Where("appointment_id = ?", appointmentID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Appointment{}, ports.ErrAppointmentNotFound
		}
		return ports.Appointment{}, errs.Wrap(err, "query appointment")
	}
	return mapAppointment(row), nil
}

func (r *AssessmentRepository) GetInspection(ctx context.Context, inspectionID string) (ports.Inspection, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return ports.Inspection{}, err
	}

	var row model.Inspection
	if err := db.Where("inspection_id = ?", inspectionID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Inspection{}, ports.ErrInspectionNotFound
		}
		return ports.Inspection{}, errs.Wrap(err, "query inspection")
	}
	return mapInspection(row), nil
}

// GetAccessFacts loads everything the access evaluator needs in one joined read.
func (r *AssessmentRepository) GetAccessFacts(ctx context.Context, assessmentID string) (domain.AccessFacts, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return domain.AccessFacts{}, err
	}

	var rows []listRow
	if err := joinedAssessments(db).
		Where("a.assessment_id = ?", assessmentID).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return domain.AccessFacts{}, errs.Wrap(err, "query access facts")
	}
	if len(rows) == 0 {
		return domain.AccessFacts{}, ports.ErrAssessmentNotFound
	}
	return rows[0].toPort().AccessFacts(), nil
}

func (r *AssessmentRepository) ListAssessments(ctx context.Context, filter ports.AssessmentListFilter) ([]ports.AssessmentListRow, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return nil, err
	}

	query := joinedAssessments(db)
	if len(filter.Stages) > 0 {
		stages := make([]string, 0, len(filter.Stages))
		for _, s := range filter.Stages {
			stages = append(stages, string(s))
		}
		query = query.Where("a.stage IN ?", stages)
	}

	var rows []listRow
	if err := query.Order("a.created_at asc, a.assessment_id asc").Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query assessments")
	}

	items := make([]ports.AssessmentListRow, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *AssessmentRepository) CreateRequestWithAssessment(ctx context.Context, request ports.Request, assessment ports.Assessment) (ports.Request, ports.Assessment, error) {
	requestRow := model.Request{
		RequestID:           request.RequestID,
		Number:              request.Number,
		OwnerName:           request.OwnerName,
		VehicleMake:         request.VehicleMake,
		VehicleModel:        request.VehicleModel,
		VehicleRegistration: request.VehicleRegistration,
		PendingEngineerID:   request.PendingEngineerID,
		CreatedAt:           request.CreatedAt,
		UpdatedAt:           request.UpdatedAt,
	}
	assessmentRow := model.Assessment{
		AssessmentID:  assessment.AssessmentID,
		Number:        assessment.Number,
		RequestID:     request.RequestID,
		Stage:         string(assessment.Stage),
		Status:        string(assessment.Status),
		AppointmentID: assessment.AppointmentID,
		InspectionID:  assessment.InspectionID,
		EstimateID:    assessment.EstimateID,
		CreatedAt:     assessment.CreatedAt,
		UpdatedAt:     assessment.UpdatedAt,
	}

	err := inTx(r.db, ctx, func(_ context.Context, db *gorm.DB) error {
		if err := db.Create(&requestRow).Error; err != nil {
			return errs.Wrap(err, "insert request")
		}
		if err := db.Create(&assessmentRow).Error; err != nil {
			if isDuplicate(err) {
				return ports.ErrDuplicateAssessment
			}
			return errs.Wrap(err, "insert assessment")
		}
		return nil
	})
	if err != nil {
		return ports.Request{}, ports.Assessment{}, err
	}
	return mapRequest(requestRow), mapAssessment(assessmentRow), nil
}

func (r *AssessmentRepository) SetPendingEngineer(ctx context.Context, requestID string, engineerID *string, updatedAt string) error {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Request{}).
		Where("request_id = ?", requestID).
		Updates(map[string]any{
			"pending_engineer_id": engineerID,
			"updated_at":          updatedAt,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update pending engineer")
	}
	if result.RowsAffected == 0 {
		return ports.ErrRequestNotFound
	}
	return nil
}

func (r *AssessmentRepository) CompareAndSetStage(ctx context.Context, write ports.StageWrite) (bool, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return false, err
	}

	updates := map[string]any{
		"stage":      string(write.To),
		"updated_at": write.UpdatedAt,
	}
	if write.Status != nil {
		updates["status"] = string(*write.Status)
	}

	result := db.Model(&model.Assessment{}).
		Where("assessment_id = ? AND stage = ?", write.AssessmentID, string(write.From)).
		Updates(updates)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "update assessment stage")
	}
	return result.RowsAffected > 0, nil
}

func (r *AssessmentRepository) SetRelation(ctx context.Context, assessmentID string, relation domain.Relation, relationID string, updatedAt string) error {
	column, ok := relationColumns[relation]
	if !ok {
		return domain.ErrUnknownRelation
	}

	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Assessment{}).
		Where("assessment_id = ?", assessmentID).
		Updates(map[string]any{
			column:       relationID,
			"updated_at": updatedAt,
		})
	if result.Error != nil {
		return errs.Wrapf(result.Error, "update assessment %s", column)
	}
	if result.RowsAffected == 0 {
		return ports.ErrAssessmentNotFound
	}
	return nil
}

func (r *AssessmentRepository) CreateAppointment(ctx context.Context, appointment ports.Appointment) (ports.Appointment, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return ports.Appointment{}, err
	}

	row := model.Appointment{
		AppointmentID: appointment.AppointmentID,
		RequestID:     appointment.RequestID,
		EngineerID:    appointment.EngineerID,
		ScheduledFor:  appointment.ScheduledFor,
		CreatedAt:     appointment.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.Appointment{}, errs.Wrap(err, "insert appointment")
	}
	return mapAppointment(row), nil
}

func (r *AssessmentRepository) CreateInspection(ctx context.Context, inspection ports.Inspection) (ports.Inspection, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return ports.Inspection{}, err
	}

	row := model.Inspection{
		InspectionID:  inspection.InspectionID,
		RequestID:     inspection.RequestID,
		AppointmentID: inspection.AppointmentID,
		CreatedAt:     inspection.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.Inspection{}, errs.Wrap(err, "insert inspection")
	}
	return mapInspection(row), nil
}

var relationColumns = map[domain.Relation]string{
	domain.RelationAppointment: "appointment_id",
	domain.RelationInspection:  "inspection_id",
	domain.RelationEstimate:    "estimate_id",
}

type listRow struct {
	AssessmentID            string  `gorm:"column:assessment_id"`
	Number                  string  `gorm:"column:number"`
	RequestID               string  `gorm:"column:request_id"`
	Stage                   string  `gorm:"column:stage"`
	Status                  string  `gorm:"column:status"`
	AppointmentID           *string `gorm:"column:appointment_id"`
	InspectionID            *string `gorm:"column:inspection_id"`
	EstimateID              *string `gorm:"column:estimate_id"`
	CreatedAt               string  `gorm:"column:created_at"`
	UpdatedAt               string  `gorm:"column:updated_at"`
	RequestNumber           string  `gorm:"column:request_number"`
	OwnerName               string  `gorm:"column:owner_name"`
	VehicleRegistration     string  `gorm:"column:vehicle_registration"`
	PendingEngineerID       *string `gorm:"column:pending_engineer_id"`
	AppointmentEngineerID   *string `gorm:"column:appointment_engineer_id"`
	AppointmentScheduledFor *string `gorm:"column:appointment_scheduled_for"`
}

func joinedAssessments(db *gorm.DB) *gorm.DB {
	return db.Table("assessments AS a").
		Select(`a.assessment_id, a.number, a.request_id, a.stage, a.status,
			a.appointment_id, a.inspection_id, a.estimate_id, a.created_at, a.updated_at,
			r.number AS request_number, r.owner_name, r.vehicle_registration, r.pending_engineer_id,
			ap.engineer_id AS appointment_engineer_id, ap.scheduled_for AS appointment_scheduled_for`).
		Joins("JOIN requests AS r ON r.request_id = a.request_id").
		Joins("LEFT JOIN appointments AS ap ON ap.appointment_id = a.appointment_id")
}

func (row listRow) toPort() ports.AssessmentListRow {
	return ports.AssessmentListRow{
		Assessment: ports.Assessment{
			AssessmentID:  row.AssessmentID,
			Number:        row.Number,
			RequestID:     row.RequestID,
			Stage:         domain.Stage(row.Stage),
			Status:        domain.Status(row.Status),
			AppointmentID: row.AppointmentID,
			InspectionID:  row.InspectionID,
			EstimateID:    row.EstimateID,
			CreatedAt:     row.CreatedAt,
			UpdatedAt:     row.UpdatedAt,
		},
		RequestNumber:           row.RequestNumber,
		OwnerName:               row.OwnerName,
		VehicleRegistration:     row.VehicleRegistration,
		PendingEngineerID:       row.PendingEngineerID,
		AppointmentEngineerID:   row.AppointmentEngineerID,
		AppointmentScheduledFor: row.AppointmentScheduledFor,
	}
}

func takeAssessment(query *gorm.DB) (ports.Assessment, error) {
	var row model.Assessment
	if err := query.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Assessment{}, ports.ErrAssessmentNotFound
		}
		return ports.Assessment{}, errs.Wrap(err, "query assessment")
	}
	return mapAssessment(row), nil
}

func mapRequest(row model.Request) ports.Request {
	return ports.Request{
		RequestID:           row.RequestID,
		Number:              row.Number,
		OwnerName:           row.OwnerName,
		VehicleMake:         row.VehicleMake,
		VehicleModel:        row.VehicleModel,
		VehicleRegistration: row.VehicleRegistration,
		PendingEngineerID:   row.PendingEngineerID,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
}

func mapAssessment(row model.Assessment) ports.Assessment {
	return ports.Assessment{
		AssessmentID:  row.AssessmentID,
		Number:        row.Number,
		RequestID:     row.RequestID,
		Stage:         domain.Stage(row.Stage),
		Status:        domain.Status(row.Status),
		AppointmentID: row.AppointmentID,
		InspectionID:  row.InspectionID,
		EstimateID:    row.EstimateID,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func mapAppointment(row model.Appointment) ports.Appointment {
	return ports.Appointment{
		AppointmentID: row.AppointmentID,
		RequestID:     row.RequestID,
		EngineerID:    row.EngineerID,
		ScheduledFor:  row.ScheduledFor,
		CreatedAt:     row.CreatedAt,
	}
}

func mapInspection(row model.Inspection) ports.Inspection {
	return ports.Inspection{
		InspectionID:  row.InspectionID,
		RequestID:     row.RequestID,
		AppointmentID: row.AppointmentID,
		CreatedAt:     row.CreatedAt,
	}
}
