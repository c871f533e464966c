package assessment

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "claimflow/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "claimflow/internal/infrastructure/persistence/sqlite/uow"
	"claimflow/internal/ports"
)

var (
	admin    = domain.Actor{ID: "u-admin", Name: "Admin", Role: domain.RoleAdmin}
	admin2   = domain.Actor{ID: "u-admin-2", Name: "Second Admin", Role: domain.RoleAdmin}
	engineer = domain.Actor{ID: "u-eng", Name: "Engineer", Role: domain.RoleEngineer}
	finance  = domain.Actor{ID: "u-fin", Name: "Finance", Role: domain.RoleReadOnlyFinance}
)

type testEnv struct {
	svc       *Service
	db        *gorm.DB
	metrics   *countingMetrics
	publisher *recordingPublisher
}

func setupService(t *testing.T, wrap ...func(*Deps)) *testEnv {
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

	env := &testEnv{
		db:        db,
		metrics:   newCountingMetrics(),
		publisher: &recordingPublisher{},
	}
	deps := Deps{
		Assessments: sqliterepo.NewAssessmentRepository(db),
		Artifacts:   sqliterepo.NewArtifactRepository(db),
		History:     sqliterepo.NewHistoryRepository(db),
		UnitOfWork:  sqliteuow.NewUnitOfWork(db),
		Publisher:   env.publisher,
		Metrics:     env.metrics,
	}
	for _, w := range wrap {
		w(&deps)
	}
	env.svc = NewService(deps)
	t.Cleanup(env.svc.WaitForEvents)
	return env
}

func (e *testEnv) newClaim(t *testing.T, registration string) ports.Assessment {
	t.Helper()

	out, err := e.svc.CreateRequest(context.Background(), CreateRequestInput{
		OwnerName:           "Owner " + registration,
		VehicleMake:         "Toyota",
		VehicleModel:        "Hilux",
		VehicleRegistration: registration,
		Actor:               admin,
	})
	if err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}
	return out.Assessment
}

func (e *testEnv) transition(t *testing.T, assessmentID string, to domain.Stage) ports.Assessment {
	t.Helper()

	got, err := e.svc.Transition(context.Background(), TransitionInput{
		AssessmentID: assessmentID,
		TargetStage:  string(to),
		Actor:        admin,
	})
	if err != nil {
		t.Fatalf("Transition(%s) error = %v", to, err)
	}
	return got
}

// linkRequired creates and links whatever the target stage needs.
func (e *testEnv) linkRequired(t *testing.T, assessmentID string, target domain.Stage) {
	t.Helper()
	ctx := context.Background()

	current, err := e.svc.GetAssessment(ctx, assessmentID, admin)
	if err != nil {
		t.Fatalf("GetAssessment() error = %v", err)
	}
	links := current.Links()
	for _, rel := range domain.RequiredRelations(target) {
		if links.Has(rel) {
			continue
		}
		var id string
		switch rel {
		case domain.RelationAppointment:
			ap, err := e.svc.ScheduleAppointment(ctx, ScheduleAppointmentInput{
				AssessmentID: assessmentID,
				EngineerID:   engineer.ID,
				ScheduledFor: time.Now().Add(48 * time.Hour),
				Actor:        admin,
			})
			if err != nil {
				t.Fatalf("ScheduleAppointment() error = %v", err)
			}
			id = ap.AppointmentID
		case domain.RelationInspection:
			in, err := e.svc.CreateInspection(ctx, CreateInspectionInput{AssessmentID: assessmentID, Actor: admin})
			if err != nil {
				t.Fatalf("CreateInspection() error = %v", err)
			}
			id = in.InspectionID
		case domain.RelationEstimate:
			set, err := e.svc.Artifacts(ctx, assessmentID, admin)
			if err != nil {
				t.Fatalf("Artifacts() error = %v", err)
			}
			id = set.EstimateID
		}
		updated, err := e.svc.LinkRelation(ctx, LinkRelationInput{
			AssessmentID: assessmentID,
			Relation:     string(rel),
			RelationID:   id,
			Actor:        admin,
		})
		if err != nil {
			t.Fatalf("LinkRelation(%s) error = %v", rel, err)
		}
		links = updated.Links()
	}
}

var happyPath = []domain.Stage{
	domain.StageRequestSubmitted,
	domain.StageRequestReviewed,
	domain.StageAppointmentScheduled,
	domain.StageInspectionScheduled,
	domain.StageAssessmentInProgress,
	domain.StageEstimateReview,
	domain.StageEstimateSent,
	domain.StageEstimateFinalized,
	domain.StageFRCInProgress,
	domain.StageArchived,
}

// walkTo advances along the happy path, linking relations as each stage
// first needs them.
func (e *testEnv) walkTo(t *testing.T, assessmentID string, target domain.Stage) {
	t.Helper()

	current, err := e.svc.GetAssessment(context.Background(), assessmentID, admin)
	if err != nil {
		t.Fatalf("GetAssessment() error = %v", err)
	}
	if current.Stage == target {
		return
	}
	started := false
	for _, stage := range happyPath {
		if stage == current.Stage {
			started = true
			continue
		}
		if !started {
			continue
		}
		e.linkRequired(t, assessmentID, stage)
		e.transition(t, assessmentID, stage)
		if stage == target {
			return
		}
	}
	t.Fatalf("target %s not reachable from %s", target, current.Stage)
}

func (e *testEnv) count(t *testing.T, table any, assessmentID string) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(table).Where("assessment_id = ?", assessmentID).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", table, err)
	}
	return n
}

func (e *testEnv) historyWithAction(t *testing.T, assessmentID string, action string) int {
	t.Helper()
	n := 0
	for entry, err := range e.svc.History(context.Background(), admin, domain.EntityAssessment, assessmentID, 2) {
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if entry.Action == action {
			n++
		}
	}
	return n
}

type countingMetrics struct {
	mu            sync.Mutex
	transitions   map[string]int
	provisioning  map[string]int
	auditFailures int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{transitions: map[string]int{}, provisioning: map[string]int{}}
}

func (m *countingMetrics) ObserveTransition(from domain.Stage, to domain.Stage, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[domain.TransitionTag(from, to)+"/"+result]++
}

func (m *countingMetrics) ObserveProvisioning(artifact domain.ArtifactKind, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provisioning[string(artifact)+"/"+result]++
}

func (m *countingMetrics) IncAuditFailure(domain.EntityType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditFailures++
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.StageChanged
}

func (p *recordingPublisher) PublishStageChanged(_ context.Context, event domain.StageChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) snapshot() []domain.StageChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.StageChanged(nil), p.events...)
}

// flakyArtifacts fails tyre provisioning a fixed number of times.
type flakyArtifacts struct {
	ports.ArtifactRepository
	tyreFailures int
}

func (f *flakyArtifacts) UpsertTyres(ctx context.Context, assessmentID string, positions []domain.TyrePosition, now string) (map[domain.TyrePosition]string, []domain.TyrePosition, error) {
	if f.tyreFailures > 0 {
		f.tyreFailures--
		return nil, nil, errors.New("tyre table locked")
	}
	return f.ArtifactRepository.UpsertTyres(ctx, assessmentID, positions, now)
}

// swallowedStageWrites reports every compare-and-set as applied without
// touching the row.
type swallowedStageWrites struct {
	ports.AssessmentRepository
}

func (swallowedStageWrites) CompareAndSetStage(context.Context, ports.StageWrite) (bool, error) {
	return true, nil
}

type unavailableLedger struct {
	ports.HistoryRepository
}

func (unavailableLedger) AppendHistory(context.Context, ports.HistoryEntryCreate) (ports.HistoryEntry, error) {
	return ports.HistoryEntry{}, errors.New("ledger unavailable")
}
