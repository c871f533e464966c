package assessment

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownStage        = errors.New("unknown stage")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrMissingPrerequisite = errors.New("missing prerequisite")
	ErrPartialProvisioning = errors.New("partial provisioning")
	ErrVerificationFailed  = errors.New("verification failed")
	ErrTerminalState       = errors.New("assessment is in a terminal state")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnknownRelation     = errors.New("unknown relation")
	ErrRelationMismatch    = errors.New("relation does not belong to assessment")
)

// MissingPrerequisiteError names the relations a target stage needs.
type MissingPrerequisiteError struct {
	Stage     Stage
	Relations []Relation
}

func (e *MissingPrerequisiteError) Error() string {
	names := make([]string, 0, len(e.Relations))
	for _, r := range e.Relations {
		names = append(names, string(r))
	}
	return fmt.Sprintf("%s: stage %s requires %s", ErrMissingPrerequisite, e.Stage, strings.Join(names, ", "))
}

func (e *MissingPrerequisiteError) Unwrap() error { return ErrMissingPrerequisite }

// ArtifactOutcome is the per-artifact result of one provisioning pass.
type ArtifactOutcome struct {
	Artifact ArtifactKind
	Created  bool
	Err      error
}

func (o ArtifactOutcome) OK() bool { return o.Err == nil }

// PartialProvisioningError lists every artifact outcome so callers can see
// what already exists before retrying.
type PartialProvisioningError struct {
	AssessmentID string
	Outcomes     []ArtifactOutcome
}

func (e *PartialProvisioningError) Error() string {
	failed := make([]string, 0, len(e.Outcomes))
	succeeded := make([]string, 0, len(e.Outcomes))
	for _, o := range e.Outcomes {
		if o.OK() {
			succeeded = append(succeeded, string(o.Artifact))
			continue
		}
		failed = append(failed, fmt.Sprintf("%s (%v)", o.Artifact, o.Err))
	}
	return fmt.Sprintf(
		"%s: assessment %s failed=[%s] succeeded=[%s]",
		ErrPartialProvisioning,
		e.AssessmentID,
		strings.Join(failed, "; "),
		strings.Join(succeeded, ", "),
	)
}

func (e *PartialProvisioningError) Unwrap() error { return ErrPartialProvisioning }

func (e *PartialProvisioningError) Retryable() bool { return true }

// Failed returns the artifacts that did not provision.
func (e *PartialProvisioningError) Failed() []ArtifactKind {
	out := make([]ArtifactKind, 0, len(e.Outcomes))
	for _, o := range e.Outcomes {
		if !o.OK() {
			out = append(out, o.Artifact)
		}
	}
	return out
}

// VerificationError carries the intended and observed values of a write that
// did not read back.
type VerificationError struct {
	AssessmentID string
	Field        string
	Want         string
	Got          string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s: assessment %s field %s want %q got %q", ErrVerificationFailed, e.AssessmentID, e.Field, e.Want, e.Got)
}

func (e *VerificationError) Unwrap() error { return ErrVerificationFailed }
