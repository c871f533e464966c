package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "claimflow/internal/domain/assessment"
)

func TestEngineerReachesEarlyAssessmentThroughPendingAssignment(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	mine := env.newClaim(t, "CA-20")
	if _, err := env.svc.AssignEngineer(ctx, AssignEngineerInput{RequestID: mine.RequestID, EngineerID: engineer.ID, Actor: admin}); err != nil {
		t.Fatalf("AssignEngineer() error = %v", err)
	}
	if !env.svc.CanAccess(ctx, engineer, domain.ActionRead, mine.AssessmentID) {
		t.Fatalf("engineer denied through pending assignment")
	}

	// Another assessment whose linked appointment belongs to someone else.
	theirs := env.newClaim(t, "CA-21")
	ap, err := env.svc.ScheduleAppointment(ctx, ScheduleAppointmentInput{
		AssessmentID: theirs.AssessmentID,
		EngineerID:   "u-other",
		ScheduledFor: time.Now().Add(time.Hour),
		Actor:        admin,
	})
	if err != nil {
		t.Fatalf("ScheduleAppointment() error = %v", err)
	}
	if _, err := env.svc.AssignEngineer(ctx, AssignEngineerInput{RequestID: theirs.RequestID, EngineerID: engineer.ID, Actor: admin}); err != nil {
		t.Fatalf("AssignEngineer() error = %v", err)
	}
	if _, err := env.svc.LinkRelation(ctx, LinkRelationInput{
		AssessmentID: theirs.AssessmentID,
		Relation:     "appointment",
		RelationID:   ap.AppointmentID,
		Actor:        admin,
	}); err != nil {
		t.Fatalf("LinkRelation() error = %v", err)
	}
	if env.svc.CanAccess(ctx, engineer, domain.ActionRead, theirs.AssessmentID) {
		t.Fatalf("linked appointment of another engineer must win over the pending assignment")
	}

	rows, err := env.svc.ListByStage(ctx, ListByStageInput{Actor: engineer})
	if err != nil {
		t.Fatalf("ListByStage() error = %v", err)
	}
	if len(rows) != 1 || rows[0].AssessmentID != mine.AssessmentID {
		t.Fatalf("ListByStage() = %+v", rows)
	}

	if env.svc.CanAccess(ctx, engineer, domain.ActionRead, "missing") {
		t.Fatalf("lookup failure must deny")
	}
}

func TestListByStageAndCounts(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	a := env.newClaim(t, "CA-30")
	env.newClaim(t, "CA-31")
	env.transition(t, a.AssessmentID, domain.StageRequestReviewed)

	rows, err := env.svc.ListByStage(ctx, ListByStageInput{Stages: []string{"request_reviewed"}, Actor: finance})
	if err != nil {
		t.Fatalf("ListByStage() error = %v", err)
	}
	if len(rows) != 1 || rows[0].AssessmentID != a.AssessmentID || rows[0].RequestNumber == "" {
		t.Fatalf("ListByStage() = %+v", rows)
	}

	if _, err := env.svc.ListByStage(ctx, ListByStageInput{Stages: []string{"limbo"}, Actor: admin}); !errors.Is(err, domain.ErrUnknownStage) {
		t.Fatalf("ListByStage(unknown) error = %v", err)
	}

	counts, err := env.svc.StageCounts(ctx, admin)
	if err != nil {
		t.Fatalf("StageCounts() error = %v", err)
	}
	if len(counts) != len(domain.Stages()) {
		t.Fatalf("StageCounts() len = %d", len(counts))
	}
	got := map[domain.Stage]int{}
	for _, c := range counts {
		got[c.Stage] = c.Count
	}
	if got[domain.StageRequestSubmitted] != 1 || got[domain.StageRequestReviewed] != 1 || got[domain.StageArchived] != 0 {
		t.Fatalf("StageCounts() = %+v", counts)
	}

	unknown, err := env.svc.StageCounts(ctx, domain.Actor{ID: "u-x", Role: domain.Role("auditor")})
	if err != nil {
		t.Fatalf("StageCounts(unknown role) error = %v", err)
	}
	for _, c := range unknown {
		if c.Count != 0 {
			t.Fatalf("unknown role sees %d in %s", c.Count, c.Stage)
		}
	}
}

func TestIntakeAndAssignmentRequireAdmin(t *testing.T) {
	env := setupService(t)
	_, err := env.svc.CreateRequest(context.Background(), CreateRequestInput{
		OwnerName:           "Owner",
		VehicleRegistration: "CA-40",
		Actor:               engineer,
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("CreateRequest(engineer) error = %v", err)
	}

	a := env.newClaim(t, "CA-41")
	_, err = env.svc.AssignEngineer(context.Background(), AssignEngineerInput{RequestID: a.RequestID, EngineerID: engineer.ID, Actor: finance})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("AssignEngineer(finance) error = %v", err)
	}
}
