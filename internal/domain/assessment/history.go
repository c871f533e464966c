package assessment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EntityType scopes a history entry.
type EntityType string

const (
	EntityRequest             EntityType = "request"
	EntityAssessment          EntityType = "assessment"
	EntityAppointment         EntityType = "appointment"
	EntityInspection          EntityType = "inspection"
	EntityVehicleValues       EntityType = "vehicle_values"
	EntityDamage              EntityType = "damage"
	EntityEstimate            EntityType = "estimate"
	EntityPreIncidentEstimate EntityType = "pre_incident_estimate"
	EntityTyre                EntityType = "tyre"
	EntityPhotoAlbum          EntityType = "photo_album"
)

var ErrUnknownEntityType = errors.New("unknown entity type")

func EntityTypes() []EntityType {
	return []EntityType{
		EntityRequest,
		EntityAssessment,
		EntityAppointment,
		EntityInspection,
		EntityVehicleValues,
		EntityDamage,
		EntityEstimate,
		EntityPreIncidentEstimate,
		EntityTyre,
		EntityPhotoAlbum,
	}
}

func ParseEntityType(raw string) (EntityType, error) {
	normalized := EntityType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_"))
	for _, t := range EntityTypes() {
		if t == normalized {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, raw)
}

const (
	ActionCreated        = "created"
	ActionRelationLinked = "relation_linked"
	ActionAssigned       = "engineer_assigned"
)

// StageChanged is emitted after a transition commits.
type StageChanged struct {
	AssessmentID string    `json:"assessment_id"`
	From         Stage     `json:"from"`
	To           Stage     `json:"to"`
	ActorID      string    `json:"actor_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}
