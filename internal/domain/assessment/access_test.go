package assessment

import "testing"

func TestEvaluateAdminAlwaysAllowed(t *testing.T) {
	admin := Actor{ID: "u-admin", Role: RoleAdmin}
	for _, action := range []Action{ActionRead, ActionWrite} {
		if !Evaluate(admin, action, AccessFacts{}) {
			t.Fatalf("admin denied %s", action)
		}
	}
}

func TestEvaluateFailsClosed(t *testing.T) {
	facts := AccessFacts{PendingEngineerID: strPtr("u-1")}
	cases := []struct {
		name   string
		actor  Actor
		action Action
	}{
		{name: "unknown role", actor: Actor{ID: "u-1", Role: Role("claims_handler")}, action: ActionRead},
		{name: "empty actor id", actor: Actor{Role: RoleAdmin}, action: ActionRead},
		{name: "unknown action", actor: Actor{ID: "u-1", Role: RoleAdmin}, action: Action("delete")},
		{name: "finance write", actor: Actor{ID: "u-1", Role: RoleReadOnlyFinance}, action: ActionWrite},
	}
	for _, tc := range cases {
		if Evaluate(tc.actor, tc.action, facts) {
			t.Fatalf("%s: access granted", tc.name)
		}
	}
	if !Evaluate(Actor{ID: "u-9", Role: RoleReadOnlyFinance}, ActionRead, facts) {
		t.Fatalf("finance read denied")
	}
}

// Enumerates every null/non-null combination of the appointment link, the
// appointment engineer and the pending assignment.
func TestEvaluateEngineerDualCheck(t *testing.T) {
	const me = "u-eng"
	const other = "u-other"

	options := []*string{nil, strPtr(me), strPtr(other)}
	appointmentOptions := []*string{nil, strPtr("ap-1")}

	for _, appointmentID := range appointmentOptions {
		for _, appointmentEngineer := range options {
			for _, pending := range options {
				facts := AccessFacts{
					AssessmentID:          "as-1",
					AppointmentID:         appointmentID,
					AppointmentEngineerID: appointmentEngineer,
					PendingEngineerID:     pending,
				}

				var want bool
				if appointmentID != nil {
					want = appointmentEngineer != nil && *appointmentEngineer == me
				} else {
					want = pending != nil && *pending == me
				}

				actor := Actor{ID: me, Role: RoleEngineer}
				for _, action := range []Action{ActionRead, ActionWrite} {
					if got := Evaluate(actor, action, facts); got != want {
						t.Fatalf("Evaluate(%s, %+v) = %v, want %v (appointment=%v engineer=%v pending=%v)",
							action, facts, got, want, deref(appointmentID), deref(appointmentEngineer), deref(pending))
					}
				}
			}
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole("read-only-finance"); !ok || r != RoleReadOnlyFinance {
		t.Fatalf("ParseRole() = %q, %v", r, ok)
	}
	if _, ok := ParseRole("root"); ok {
		t.Fatalf("ParseRole(root) should fail")
	}
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
