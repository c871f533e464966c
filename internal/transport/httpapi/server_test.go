package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/infrastructure/actors"
	"claimflow/internal/infrastructure/metrics"
	"claimflow/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "claimflow/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "claimflow/internal/infrastructure/persistence/sqlite/uow"
	"claimflow/internal/usecase/assessment"
)

func setupServer(t *testing.T) *httptest.Server {
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

	recorder, err := metrics.NewRecorder()
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	svc := assessment.NewService(assessment.Deps{
		Assessments: sqliterepo.NewAssessmentRepository(db),
		Artifacts:   sqliterepo.NewArtifactRepository(db),
		History:     sqliterepo.NewHistoryRepository(db),
		UnitOfWork:  sqliteuow.NewUnitOfWork(db),
		Metrics:     recorder,
	})
	directory, err := actors.NewDirectory(
		domain.Actor{ID: "u-admin", Name: "Admin", Role: domain.RoleAdmin},
		domain.Actor{ID: "u-eng", Name: "Engineer", Role: domain.RoleEngineer},
		domain.Actor{ID: "u-fin", Name: "Finance", Role: domain.RoleReadOnlyFinance},
	)
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}

	server := httptest.NewServer(NewRouter(context.Background(), svc, directory, Options{Metrics: recorder.Handler()}))
	t.Cleanup(server.Close)
	return server
}

func call(t *testing.T, server *httptest.Server, method string, path string, actorID string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if actorID != "" {
		req.Header.Set(ActorHeader, actorID)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw)
		}
	}
	return resp.StatusCode, out
}

func createClaim(t *testing.T, server *httptest.Server) string {
	t.Helper()

	status, body := call(t, server, http.MethodPost, "/v1/requests", "u-admin", map[string]any{
		"owner_name":           "Thandi",
		"vehicle_registration": "ca 123-456",
		"pending_engineer_id":  "u-eng",
	})
	if status != http.StatusCreated {
		t.Fatalf("create request status = %d body=%v", status, body)
	}
	asm := body["assessment"].(map[string]any)
	if asm["stage"] != "request_submitted" {
		t.Fatalf("new assessment stage = %v", asm["stage"])
	}
	return asm["assessment_id"].(string)
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestActorIsRequired(t *testing.T) {
	server := setupServer(t)

	if status, _ := call(t, server, http.MethodGet, "/v1/assessments", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("missing actor status = %d", status)
	}
	if status, _ := call(t, server, http.MethodGet, "/v1/assessments", "u-ghost", nil); status != http.StatusUnauthorized {
		t.Fatalf("unknown actor status = %d", status)
	}
}

func TestIntakeIsAdminOnly(t *testing.T) {
	server := setupServer(t)

	status, body := call(t, server, http.MethodPost, "/v1/requests", "u-eng", map[string]any{
		"owner_name":           "Thandi",
		"vehicle_registration": "CA1",
	})
	if status != http.StatusForbidden || errorCode(body) != "FORBIDDEN" {
		t.Fatalf("engineer intake = %d %v", status, body)
	}

	status, body = call(t, server, http.MethodPost, "/v1/requests", "u-admin", map[string]any{"owner_name": "Thandi"})
	if status != http.StatusBadRequest {
		t.Fatalf("missing registration = %d %v", status, body)
	}
}

func TestTransitionErrorsMapToStatuses(t *testing.T) {
	server := setupServer(t)
	id := createClaim(t, server)
	path := "/v1/assessments/" + id + "/transitions"

	status, body := call(t, server, http.MethodPost, path, "u-admin", map[string]any{"target_stage": "request_reviewed"})
	if status != http.StatusOK || body["stage"] != "request_reviewed" {
		t.Fatalf("transition = %d %v", status, body)
	}

	status, body = call(t, server, http.MethodPost, path, "u-admin", map[string]any{"target_stage": "request_submitted"})
	if status != http.StatusConflict || errorCode(body) != "INVALID_TRANSITION" {
		t.Fatalf("backward transition = %d %v", status, body)
	}

	status, body = call(t, server, http.MethodPost, path, "u-admin", map[string]any{"target_stage": "appointment_scheduled"})
	if status != http.StatusUnprocessableEntity || errorCode(body) != "MISSING_PREREQUISITE" {
		t.Fatalf("missing appointment = %d %v", status, body)
	}
	details := body["error"].(map[string]any)["details"].(map[string]any)
	relations := details["relations"].([]any)
	if len(relations) != 1 || relations[0] != "appointment" {
		t.Fatalf("relations = %v", relations)
	}

	status, body = call(t, server, http.MethodPost, path, "u-admin", map[string]any{"target_stage": "estimate_approved"})
	if status != http.StatusBadRequest {
		t.Fatalf("unknown stage = %d %v", status, body)
	}

	status, body = call(t, server, http.MethodPost, path, "u-fin", map[string]any{"target_stage": "request_reviewed"})
	if status != http.StatusForbidden {
		t.Fatalf("finance transition = %d %v", status, body)
	}

	status, body = call(t, server, http.MethodPost, "/v1/assessments/"+id+"/cancel", "u-admin", nil)
	if status != http.StatusOK || body["stage"] != "cancelled" || body["status"] != "cancelled" {
		t.Fatalf("cancel = %d %v", status, body)
	}
	status, body = call(t, server, http.MethodPost, path, "u-admin", map[string]any{"target_stage": "request_reviewed"})
	if status != http.StatusConflict || errorCode(body) != "TERMINAL_STATE" {
		t.Fatalf("transition after cancel = %d %v", status, body)
	}
}

func TestReadEndpoints(t *testing.T) {
	server := setupServer(t)
	id := createClaim(t, server)
	createClaim(t, server)

	status, body := call(t, server, http.MethodGet, "/v1/assessments?stage=request_submitted", "u-fin", nil)
	if status != http.StatusOK || len(body["assessments"].([]any)) != 2 {
		t.Fatalf("list = %d %v", status, body)
	}
	if status, _ := call(t, server, http.MethodGet, "/v1/assessments?stage=bogus", "u-admin", nil); status != http.StatusBadRequest {
		t.Fatalf("unknown stage filter status = %d", status)
	}

	status, body = call(t, server, http.MethodGet, "/v1/assessments/stage-counts", "u-admin", nil)
	if status != http.StatusOK {
		t.Fatalf("counts = %d %v", status, body)
	}
	first := body["stages"].([]any)[0].(map[string]any)
	if first["stage"] != "request_submitted" || first["count"] != float64(2) {
		t.Fatalf("first count = %v", first)
	}

	status, body = call(t, server, http.MethodGet, "/v1/assessments/"+id, "u-eng", nil)
	if status != http.StatusOK || body["assessment_id"] != id {
		t.Fatalf("pending engineer read = %d %v", status, body)
	}
	if status, _ := call(t, server, http.MethodGet, "/v1/assessments/missing", "u-admin", nil); status != http.StatusNotFound {
		t.Fatalf("missing assessment status = %d", status)
	}

	status, body = call(t, server, http.MethodGet, "/v1/assessments/"+id+"/history?limit=10", "u-admin", nil)
	if status != http.StatusOK || len(body["entries"].([]any)) == 0 {
		t.Fatalf("history = %d %v", status, body)
	}
	status, body = call(t, server, http.MethodGet, "/v1/history/assessment/"+id, "u-admin", nil)
	if status != http.StatusOK || len(body["entries"].([]any)) == 0 {
		t.Fatalf("entity history = %d %v", status, body)
	}
	if status, _ := call(t, server, http.MethodGet, "/v1/history/invoice/"+id, "u-admin", nil); status != http.StatusBadRequest {
		t.Fatalf("unknown entity type status = %d", status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := setupServer(t)
	id := createClaim(t, server)
	call(t, server, http.MethodPost, "/v1/assessments/"+id+"/transitions", "u-admin", map[string]any{"target_stage": "request_reviewed"})

	resp, err := server.Client().Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(raw), "claimflow_stage_transitions_total") {
		t.Fatalf("metrics = %d %s", resp.StatusCode, raw)
	}
}
