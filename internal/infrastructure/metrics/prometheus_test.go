package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/ports"
)

func TestRecorderCounts(t *testing.T) {
	r, err := NewRecorder()
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	r.ObserveTransition(domain.StageInspectionScheduled, domain.StageAssessmentInProgress, ports.ResultSuccess)
	r.ObserveTransition(domain.StageInspectionScheduled, domain.StageAssessmentInProgress, ports.ResultSuccess)
	r.ObserveProvisioning(domain.ArtifactTyres, ports.ResultError)
	r.IncAuditFailure(domain.EntityAssessment)

	if got := testutil.ToFloat64(r.transitions.WithLabelValues("inspection_scheduled", "assessment_in_progress", "success")); got != 2 {
		t.Fatalf("transitions = %v", got)
	}
	if got := testutil.ToFloat64(r.provisioning.WithLabelValues("tyres", "error")); got != 1 {
		t.Fatalf("provisioning = %v", got)
	}
	if got := testutil.ToFloat64(r.auditFailures.WithLabelValues("assessment")); got != 1 {
		t.Fatalf("audit failures = %v", got)
	}
}

func TestRecorderHandlerExposesMetrics(t *testing.T) {
	r, err := NewRecorder()
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	r.IncAuditFailure(domain.EntityTyre)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `claimflow_audit_failures_total{entity="tyre"} 1`) {
		t.Fatalf("metrics body missing audit counter:\n%s", body)
	}
}
