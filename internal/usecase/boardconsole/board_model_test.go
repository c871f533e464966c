package boardconsole

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/ports"
	"claimflow/internal/usecase/assessment"
)

type fakeBoardService struct {
	transitions []assessment.TransitionInput
	cancelled   []string
	err         error
}

func (f *fakeBoardService) StageCounts(context.Context, domain.Actor) ([]assessment.StageCount, error) {
	return []assessment.StageCount{{Stage: domain.StageRequestSubmitted, Count: 2}}, nil
}

func (f *fakeBoardService) ListByStage(_ context.Context, input assessment.ListByStageInput) ([]ports.AssessmentListRow, error) {
	return nil, nil
}

func (f *fakeBoardService) AssessmentHistory(context.Context, domain.Actor, string, uint64, int) (assessment.HistoryPage, error) {
	return assessment.HistoryPage{}, nil
}

func (f *fakeBoardService) Transition(_ context.Context, input assessment.TransitionInput) (ports.Assessment, error) {
	f.transitions = append(f.transitions, input)
	return ports.Assessment{Stage: domain.Stage(input.TargetStage)}, f.err
}

func (f *fakeBoardService) Cancel(_ context.Context, assessmentID string, _ domain.Actor) (ports.Assessment, error) {
	f.cancelled = append(f.cancelled, assessmentID)
	return ports.Assessment{Status: domain.StatusCancelled}, f.err
}

func (f *fakeBoardService) EnsureArtifacts(context.Context, assessment.EnsureArtifactsInput) (domain.ArtifactSet, error) {
	return domain.ArtifactSet{}, f.err
}

func loadedModel(t *testing.T, svc *fakeBoardService, stage domain.Stage) *boardModel {
	t.Helper()

	model := NewBoardModel(context.Background(), svc, BoardOptions{
		Actor: domain.Actor{ID: "u-admin", Role: domain.RoleAdmin},
		Stage: string(stage),
	}).(*boardModel)

	next, _ := model.Update(boardLoadedMsg{
		stage:  stage,
		counts: []assessment.StageCount{{Stage: stage, Count: 1}},
		rows: []ports.AssessmentListRow{{
			Assessment:    ports.Assessment{AssessmentID: "as-1", Number: "ASM-1", Stage: stage},
			RequestNumber: "REQ-1",
			OwnerName:     "Thandi",
		}},
	})
	return next.(*boardModel)
}

func TestAdvanceUsesForwardEdge(t *testing.T) {
	svc := &fakeBoardService{}
	model := loadedModel(t, svc, domain.StageEstimateSent)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if cmd == nil {
		t.Fatalf("advance returned no command")
	}
	msg := cmd()
	done, ok := msg.(actionDoneMsg)
	if !ok {
		t.Fatalf("advance message = %T", msg)
	}
	if done.err != nil || done.result != string(domain.StageEstimateFinalized) {
		t.Fatalf("advance result = %+v", done)
	}
	if len(svc.transitions) != 1 || svc.transitions[0].TargetStage != string(domain.StageEstimateFinalized) {
		t.Fatalf("transitions = %+v", svc.transitions)
	}
}

func TestAdvanceOnTerminalStageDoesNothing(t *testing.T) {
	svc := &fakeBoardService{}
	model := loadedModel(t, svc, domain.StageArchived)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if cmd != nil {
		t.Fatalf("terminal stage should not produce a command")
	}
	if !strings.Contains(model.status, "no forward stage") {
		t.Fatalf("status = %q", model.status)
	}
}

func TestFailedActionIsAudited(t *testing.T) {
	svc := &fakeBoardService{err: errors.New("unauthorized")}
	model := loadedModel(t, svc, domain.StageRequestSubmitted)

	next, _ := model.Update(actionDoneMsg{action: "cancel", assessmentID: "as-1", err: svc.err})
	updated := next.(*boardModel)
	if len(updated.auditLogs) != 1 || !strings.Contains(updated.auditLogs[0], "error: unauthorized") {
		t.Fatalf("audit logs = %v", updated.auditLogs)
	}

	view := updated.View()
	for _, want := range []string{"Assessment Board", "ASM-1", "REQ-1", "cancel failed"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestStaleBoardLoadIsIgnored(t *testing.T) {
	svc := &fakeBoardService{}
	model := loadedModel(t, svc, domain.StageRequestSubmitted)

	next, _ := model.Update(boardLoadedMsg{stage: domain.StageArchived})
	if got := next.(*boardModel); len(got.rows) != 1 {
		t.Fatalf("stale load replaced rows: %+v", got.rows)
	}
}

func TestForwardStage(t *testing.T) {
	cases := map[domain.Stage]domain.Stage{
		domain.StageRequestSubmitted:  domain.StageRequestReviewed,
		domain.StageEstimateReview:    domain.StageEstimateSent,
		domain.StageEstimateFinalized: domain.StageFRCInProgress,
	}
	for from, want := range cases {
		if got, ok := forwardStage(from); !ok || got != want {
			t.Fatalf("forwardStage(%s) = %s, %v", from, got, ok)
		}
	}
	if _, ok := forwardStage(domain.StageCancelled); ok {
		t.Fatalf("cancelled has no forward stage")
	}
}
