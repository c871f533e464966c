package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/infrastructure/persistence/sqlite/model"
	"claimflow/internal/ports"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "claimflow.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func nowText() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func seedAssessment(t *testing.T, repo *AssessmentRepository, suffix string) ports.Assessment {
	t.Helper()

	now := nowText()
	_, assessment, err := repo.CreateRequestWithAssessment(context.Background(), ports.Request{
		RequestID:           "req-" + suffix,
		Number:              "REQ-" + suffix,
		OwnerName:           "Owner " + suffix,
		VehicleMake:         "Toyota",
		VehicleModel:        "Corolla",
		VehicleRegistration: "CA-" + suffix,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, ports.Assessment{
		AssessmentID: "as-" + suffix,
		Number:       "ASM-" + suffix,
		Stage:        domain.StageRequestSubmitted,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateRequestWithAssessment() error = %v", err)
	}
	return assessment
}

func TestCreateRequestWithAssessmentRejectsSecondAssessment(t *testing.T) {
	db := setupDB(t)
	repo := NewAssessmentRepository(db)
	ctx := context.Background()
	first := seedAssessment(t, repo, "1")

	now := nowText()
	err := inTx(db, ctx, func(txCtx context.Context, tx *gorm.DB) error {
		row := model.Assessment{
			AssessmentID: "as-dup",
			Number:       "ASM-dup",
			RequestID:    first.RequestID,
			Stage:        string(domain.StageRequestSubmitted),
			Status:       string(domain.StatusActive),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.Create(&row).Error
	})
	if !isDuplicate(err) {
		t.Fatalf("second assessment for one request error = %v, want unique violation", err)
	}

	got, err := repo.GetAssessmentByRequest(ctx, first.RequestID)
	if err != nil {
		t.Fatalf("GetAssessmentByRequest() error = %v", err)
	}
	if got.AssessmentID != first.AssessmentID {
		t.Fatalf("assessment_id = %q", got.AssessmentID)
	}
}

func TestCompareAndSetStage(t *testing.T) {
	db := setupDB(t)
	repo := NewAssessmentRepository(db)
	ctx := context.Background()
	a := seedAssessment(t, repo, "1")

	ok, err := repo.CompareAndSetStage(ctx, ports.StageWrite{
		AssessmentID: a.AssessmentID,
		From:         domain.StageRequestSubmitted,
		To:           domain.StageRequestReviewed,
		UpdatedAt:    nowText(),
	})
	if err != nil || !ok {
		t.Fatalf("CompareAndSetStage() = %v, %v", ok, err)
	}

	ok, err = repo.CompareAndSetStage(ctx, ports.StageWrite{
		AssessmentID: a.AssessmentID,
		From:         domain.StageRequestSubmitted,
		To:           domain.StageCancelled,
		UpdatedAt:    nowText(),
	})
	if err != nil {
		t.Fatalf("CompareAndSetStage() error = %v", err)
	}
	if ok {
		t.Fatalf("stale compare-and-set should not apply")
	}

	cancelled := domain.StatusCancelled
	ok, err = repo.CompareAndSetStage(ctx, ports.StageWrite{
		AssessmentID: a.AssessmentID,
		From:         domain.StageRequestReviewed,
		To:           domain.StageCancelled,
		Status:       &cancelled,
		UpdatedAt:    nowText(),
	})
	if err != nil || !ok {
		t.Fatalf("cancel CompareAndSetStage() = %v, %v", ok, err)
	}

	got, err := repo.GetAssessment(ctx, a.AssessmentID)
	if err != nil {
		t.Fatalf("GetAssessment() error = %v", err)
	}
	if got.Stage != domain.StageCancelled || got.Status != domain.StatusCancelled {
		t.Fatalf("stage/status = %s/%s", got.Stage, got.Status)
	}
}

func TestStageCheckConstraintRejectsUnknownStage(t *testing.T) {
	db := setupDB(t)
	repo := NewAssessmentRepository(db)
	a := seedAssessment(t, repo, "1")

	err := db.Model(&model.Assessment{}).
		Where("assessment_id = ?", a.AssessmentID).
		Update("stage", "estimate_approved").Error
	if err == nil {
		t.Fatalf("unknown stage accepted by store")
	}
}

func TestListAssessmentsJoinsAndFilters(t *testing.T) {
	db := setupDB(t)
	repo := NewAssessmentRepository(db)
	ctx := context.Background()
	a1 := seedAssessment(t, repo, "1")
	a2 := seedAssessment(t, repo, "2")

	engineer := "u-eng"
	if err := repo.SetPendingEngineer(ctx, a1.RequestID, &engineer, nowText()); err != nil {
		t.Fatalf("SetPendingEngineer() error = %v", err)
	}
	appointment, err := repo.CreateAppointment(ctx, ports.Appointment{
		AppointmentID: "ap-1",
		RequestID:     a2.RequestID,
		EngineerID:    "u-other",
		ScheduledFor:  nowText(),
		CreatedAt:     nowText(),
	})
	if err != nil {
		t.Fatalf("CreateAppointment() error = %v", err)
	}
	if err := repo.SetRelation(ctx, a2.AssessmentID, domain.RelationAppointment, appointment.AppointmentID, nowText()); err != nil {
		t.Fatalf("SetRelation() error = %v", err)
	}
	if _, err := repo.CompareAndSetStage(ctx, ports.StageWrite{
		AssessmentID: a2.AssessmentID,
		From:         domain.StageRequestSubmitted,
		To:           domain.StageRequestReviewed,
		UpdatedAt:    nowText(),
	}); err != nil {
		t.Fatalf("CompareAndSetStage() error = %v", err)
	}

	all, err := repo.ListAssessments(ctx, ports.AssessmentListFilter{})
	if err != nil {
		t.Fatalf("ListAssessments() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListAssessments() len = %d", len(all))
	}

	reviewed, err := repo.ListAssessments(ctx, ports.AssessmentListFilter{Stages: []domain.Stage{domain.StageRequestReviewed}})
	if err != nil {
		t.Fatalf("ListAssessments(stage) error = %v", err)
	}
	if len(reviewed) != 1 || reviewed[0].AssessmentID != a2.AssessmentID {
		t.Fatalf("ListAssessments(stage) = %+v", reviewed)
	}
	if reviewed[0].AppointmentEngineerID == nil || *reviewed[0].AppointmentEngineerID != "u-other" {
		t.Fatalf("appointment engineer not joined: %+v", reviewed[0])
	}
	if reviewed[0].RequestNumber != "REQ-2" {
		t.Fatalf("request number = %q", reviewed[0].RequestNumber)
	}

	facts, err := repo.GetAccessFacts(ctx, a1.AssessmentID)
	if err != nil {
		t.Fatalf("GetAccessFacts() error = %v", err)
	}
	if facts.PendingEngineerID == nil || *facts.PendingEngineerID != engineer || facts.AppointmentID != nil {
		t.Fatalf("GetAccessFacts() = %+v", facts)
	}

	if _, err := repo.GetAccessFacts(ctx, "missing"); !errors.Is(err, ports.ErrAssessmentNotFound) {
		t.Fatalf("GetAccessFacts(missing) error = %v", err)
	}
}

func TestSetRelationUnknownAssessment(t *testing.T) {
	repo := NewAssessmentRepository(setupDB(t))
	err := repo.SetRelation(context.Background(), "missing", domain.RelationInspection, "in-1", nowText())
	if !errors.Is(err, ports.ErrAssessmentNotFound) {
		t.Fatalf("SetRelation() error = %v", err)
	}
}

func TestEnsureArtifactsIsIdempotent(t *testing.T) {
	db := setupDB(t)
	assessments := NewAssessmentRepository(db)
	artifacts := NewArtifactRepository(db)
	ctx := context.Background()
	a := seedAssessment(t, assessments, "1")

	firstID, fresh, err := artifacts.EnsureEstimate(ctx, a.AssessmentID, nowText())
	if err != nil || !fresh {
		t.Fatalf("EnsureEstimate() = %q, %v, %v", firstID, fresh, err)
	}
	secondID, fresh, err := artifacts.EnsureEstimate(ctx, a.AssessmentID, nowText())
	if err != nil || fresh {
		t.Fatalf("second EnsureEstimate() = %q, %v, %v", secondID, fresh, err)
	}
	if firstID != secondID {
		t.Fatalf("estimate id changed: %q != %q", firstID, secondID)
	}

	ids, created, err := artifacts.UpsertTyres(ctx, a.AssessmentID, domain.TyrePositions(), nowText())
	if err != nil || len(created) != len(domain.TyrePositions()) {
		t.Fatalf("UpsertTyres() created = %v, err = %v", created, err)
	}
	again, created, err := artifacts.UpsertTyres(ctx, a.AssessmentID, domain.TyrePositions(), nowText())
	if err != nil || len(created) != 0 {
		t.Fatalf("second UpsertTyres() created = %v, err = %v", created, err)
	}
	for _, p := range domain.TyrePositions() {
		if ids[p] == "" || ids[p] != again[p] {
			t.Fatalf("tyre %s id %q vs %q", p, ids[p], again[p])
		}
	}

	var count int64
	if err := db.Model(&model.Estimate{}).Where("assessment_id = ?", a.AssessmentID).Count(&count).Error; err != nil {
		t.Fatalf("count estimates: %v", err)
	}
	if count != 1 {
		t.Fatalf("estimate rows = %d", count)
	}

	estimate, err := artifacts.GetEstimate(ctx, firstID)
	if err != nil {
		t.Fatalf("GetEstimate() error = %v", err)
	}
	if estimate.AssessmentID != a.AssessmentID || estimate.Status != estimateStatusDraft || !estimate.Total.IsZero() {
		t.Fatalf("GetEstimate() = %+v", estimate)
	}

	set, err := artifacts.GetArtifacts(ctx, a.AssessmentID)
	if err != nil {
		t.Fatalf("GetArtifacts() error = %v", err)
	}
	if set.EstimateID != firstID || set.DamageID != "" || len(set.TyreIDs) != 5 || set.Complete() {
		t.Fatalf("GetArtifacts() = %+v", set)
	}
}

func TestHistoryPagesInInsertionOrder(t *testing.T) {
	repo := NewHistoryRepository(setupDB(t))
	ctx := context.Background()

	for i, to := range []domain.Stage{domain.StageRequestReviewed, domain.StageAppointmentScheduled, domain.StageInspectionScheduled} {
		field := "stage"
		newValue := string(to)
		if _, err := repo.AppendHistory(ctx, ports.HistoryEntryCreate{
			EntityType:   domain.EntityAssessment,
			EntityID:     "as-1",
			AssessmentID: "as-1",
			Action:       "transition",
			FieldName:    &field,
			NewValue:     &newValue,
			ActorID:      "u-admin",
			Metadata:     map[string]any{"step": i},
			CreatedAt:    nowText(),
		}); err != nil {
			t.Fatalf("AppendHistory() error = %v", err)
		}
	}
	if _, err := repo.AppendHistory(ctx, ports.HistoryEntryCreate{
		EntityType:   domain.EntityTyre,
		EntityID:     "ty-1",
		AssessmentID: "as-1",
		Action:       domain.ActionCreated,
		ActorID:      "u-admin",
		CreatedAt:    nowText(),
	}); err != nil {
		t.Fatalf("AppendHistory(tyre) error = %v", err)
	}

	first, err := repo.ListHistory(ctx, domain.EntityAssessment, "as-1", ports.HistoryPageQuery{Limit: 2})
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if len(first) != 2 || *first[0].NewValue != string(domain.StageRequestReviewed) {
		t.Fatalf("first page = %+v", first)
	}
	if step, ok := first[1].Metadata["step"].(float64); !ok || step != 1 {
		t.Fatalf("metadata = %#v", first[1].Metadata)
	}

	rest, err := repo.ListHistory(ctx, domain.EntityAssessment, "as-1", ports.HistoryPageQuery{AfterID: first[1].EntryID, Limit: 2})
	if err != nil {
		t.Fatalf("ListHistory(next) error = %v", err)
	}
	if len(rest) != 1 || *rest[0].NewValue != string(domain.StageInspectionScheduled) {
		t.Fatalf("second page = %+v", rest)
	}

	all, err := repo.ListAssessmentHistory(ctx, "as-1", ports.HistoryPageQuery{})
	if err != nil {
		t.Fatalf("ListAssessmentHistory() error = %v", err)
	}
	if len(all) != 4 || all[3].EntityType != domain.EntityTyre {
		t.Fatalf("ListAssessmentHistory() = %+v", all)
	}
}
