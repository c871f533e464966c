package assessment

import "strings"

type Role string

const (
	RoleAdmin           Role = "admin"
	RoleEngineer        Role = "engineer"
	RoleReadOnlyFinance Role = "read_only_finance"
)

func ParseRole(raw string) (Role, bool) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	switch r := Role(normalized); r {
	case RoleAdmin, RoleEngineer, RoleReadOnlyFinance:
		return r, true
	default:
		return "", false
	}
}

// Actor is the authenticated caller as supplied by the session provider.
type Actor struct {
	ID   string
	Name string
	Role Role
}

func (a Actor) Label() string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	return a.ID
}

type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// AccessFacts are the relationship values the evaluator needs. They are
// loaded in one joined read; a nil pointer means the relation is unset.
type AccessFacts struct {
	AssessmentID          string
	AppointmentID         *string
	AppointmentEngineerID *string
	PendingEngineerID     *string
}

// Evaluate decides access without touching storage. Unknown roles and
// unknown actions deny.
//
// Engineers are checked through the appointment when the assessment has one,
// and through the request's pending assignment while the appointment is
// still unset.
func Evaluate(actor Actor, action Action, facts AccessFacts) bool {
	if strings.TrimSpace(actor.ID) == "" {
		return false
	}
	if action != ActionRead && action != ActionWrite {
		return false
	}

	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleEngineer:
		if isSet(facts.AppointmentID) {
			return equalID(facts.AppointmentEngineerID, actor.ID)
		}
		return equalID(facts.PendingEngineerID, actor.ID)
	case RoleReadOnlyFinance:
		return action == ActionRead
	default:
		return false
	}
}

func isSet(id *string) bool {
	return id != nil && strings.TrimSpace(*id) != ""
}

func equalID(id *string, want string) bool {
	return isSet(id) && *id == want
}
