package assessment

import (
	"fmt"
	"strings"
)

// Stage is the lifecycle position of an assessment. The set is closed: any
// value not declared below is rejected by ParseStage.
type Stage string

const (
	StageRequestSubmitted     Stage = "request_submitted"
	StageRequestReviewed      Stage = "request_reviewed"
	StageAppointmentScheduled Stage = "appointment_scheduled"
	StageInspectionScheduled  Stage = "inspection_scheduled"
	StageAssessmentInProgress Stage = "assessment_in_progress"
	StageEstimateReview       Stage = "estimate_review"
	StageEstimateSent         Stage = "estimate_sent"
	StageEstimateFinalized    Stage = "estimate_finalized"
	StageFRCInProgress        Stage = "frc_in_progress"
	StageArchived             Stage = "archived"
	StageCancelled            Stage = "cancelled"
)

// Status is the auxiliary classification kept next to the stage.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

var orderedStages = []Stage{
	StageRequestSubmitted,
	StageRequestReviewed,
	StageAppointmentScheduled,
	StageInspectionScheduled,
	StageAssessmentInProgress,
	StageEstimateReview,
	StageEstimateSent,
	StageEstimateFinalized,
	StageFRCInProgress,
	StageArchived,
}

var stageRank = func() map[Stage]int {
	out := make(map[Stage]int, len(orderedStages)+1)
	for i, s := range orderedStages {
		out[s] = i
	}
	out[StageCancelled] = len(orderedStages)
	return out
}()

// allowedTransitions is the single source of transition truth.
var allowedTransitions = map[Stage][]Stage{
	StageRequestSubmitted:     {StageRequestReviewed, StageCancelled},
	StageRequestReviewed:      {StageAppointmentScheduled, StageCancelled},
	StageAppointmentScheduled: {StageInspectionScheduled, StageCancelled},
	StageInspectionScheduled:  {StageAssessmentInProgress, StageCancelled},
	StageAssessmentInProgress: {StageEstimateReview, StageCancelled},
	StageEstimateReview:       {StageEstimateSent, StageAssessmentInProgress, StageCancelled},
	StageEstimateSent:         {StageEstimateFinalized, StageEstimateReview, StageCancelled},
	StageEstimateFinalized:    {StageFRCInProgress, StageArchived},
	StageFRCInProgress:        {StageArchived},
	StageArchived:             nil,
	StageCancelled:            nil,
}

// Stages returns the ordered lifecycle followed by cancelled.
func Stages() []Stage {
	out := make([]Stage, 0, len(orderedStages)+1)
	out = append(out, orderedStages...)
	return append(out, StageCancelled)
}

func ParseStage(raw string) (Stage, error) {
	s := Stage(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := stageRank[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, raw)
	}
	return s, nil
}

func (s Stage) Valid() bool {
	_, ok := stageRank[s]
	return ok
}

func (s Stage) String() string { return string(s) }

// Rank is the position in the lifecycle order; cancelled ranks last.
func (s Stage) Rank() int {
	if r, ok := stageRank[s]; ok {
		return r
	}
	return -1
}

func (s Stage) Terminal() bool {
	return s == StageArchived || s == StageCancelled
}

// Next returns the allow-list for s.
func (s Stage) Next() []Stage {
	next := allowedTransitions[s]
	out := make([]Stage, len(next))
	copy(out, next)
	return out
}

func CanTransition(from Stage, to Stage) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsRework reports the named backwards edges of the allow-list.
func IsRework(from Stage, to Stage) bool {
	return CanTransition(from, to) && to != StageCancelled && to.Rank() < from.Rank()
}

// TransitionTag is the history action recorded for a stage change.
func TransitionTag(from Stage, to Stage) string {
	return string(from) + "→" + string(to)
}

// ProvisionsArtifacts marks stages whose entry requires the full child
// artifact set.
func ProvisionsArtifacts(s Stage) bool {
	return s == StageAssessmentInProgress
}
