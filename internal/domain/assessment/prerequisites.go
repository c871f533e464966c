package assessment

import (
	"fmt"
	"strings"
)

// Relation names a nullable link on the assessment row.
type Relation string

const (
	RelationAppointment Relation = "appointment"
	RelationInspection  Relation = "inspection"
	RelationEstimate    Relation = "estimate"
)

func ParseRelation(raw string) (Relation, error) {
	switch r := Relation(strings.ToLower(strings.TrimSpace(raw))); r {
	case RelationAppointment, RelationInspection, RelationEstimate:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRelation, raw)
	}
}

// Links is the set of relation ids currently set on an assessment.
type Links struct {
	AppointmentID *string
	InspectionID  *string
	EstimateID    *string
}

func (l Links) Get(r Relation) *string {
	switch r {
	case RelationAppointment:
		return l.AppointmentID
	case RelationInspection:
		return l.InspectionID
	case RelationEstimate:
		return l.EstimateID
	default:
		return nil
	}
}

func (l Links) Has(r Relation) bool {
	id := l.Get(r)
	return id != nil && strings.TrimSpace(*id) != ""
}

var (
	needsAppointment = []Relation{RelationAppointment}
	needsInspection  = []Relation{RelationAppointment, RelationInspection}
	needsEstimate    = []Relation{RelationAppointment, RelationInspection, RelationEstimate}
)

// requiredRelations maps a stage to the relations that must be set before the
// assessment may sit in it. Requirements accumulate along the lifecycle.
var requiredRelations = map[Stage][]Relation{
	StageAppointmentScheduled: needsAppointment,
	StageInspectionScheduled:  needsInspection,
	StageAssessmentInProgress: needsInspection,
	StageEstimateReview:       needsEstimate,
	StageEstimateSent:         needsEstimate,
	StageEstimateFinalized:    needsEstimate,
	StageFRCInProgress:        needsEstimate,
	StageArchived:             needsEstimate,
}

func RequiredRelations(s Stage) []Relation {
	req := requiredRelations[s]
	out := make([]Relation, len(req))
	copy(out, req)
	return out
}

// CheckPrerequisites returns a *MissingPrerequisiteError listing every unset
// relation the target stage requires, or nil.
func CheckPrerequisites(target Stage, links Links) error {
	var missing []Relation
	for _, r := range requiredRelations[target] {
		if !links.Has(r) {
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingPrerequisiteError{Stage: target, Relations: missing}
}
