package assessment

type ArtifactKind string

const (
	ArtifactVehicleValues       ArtifactKind = "vehicle_values"
	ArtifactDamage              ArtifactKind = "damage"
	ArtifactEstimate            ArtifactKind = "estimate"
	ArtifactPreIncidentEstimate ArtifactKind = "pre_incident_estimate"
	ArtifactTyres               ArtifactKind = "tyres"
	ArtifactPhotoAlbums         ArtifactKind = "photo_albums"
)

// ArtifactKinds is the full set provisioned on entry to assessment_in_progress,
// in provisioning order.
func ArtifactKinds() []ArtifactKind {
	return []ArtifactKind{
		ArtifactVehicleValues,
		ArtifactDamage,
		ArtifactEstimate,
		ArtifactPreIncidentEstimate,
		ArtifactTyres,
		ArtifactPhotoAlbums,
	}
}

type TyrePosition string

const (
	TyreFrontLeft  TyrePosition = "front_left"
	TyreFrontRight TyrePosition = "front_right"
	TyreRearLeft   TyrePosition = "rear_left"
	TyreRearRight  TyrePosition = "rear_right"
	TyreSpare      TyrePosition = "spare"
)

func TyrePositions() []TyrePosition {
	return []TyrePosition{TyreFrontLeft, TyreFrontRight, TyreRearLeft, TyreRearRight, TyreSpare}
}

type PhotoCategory string

const (
	PhotoEstimate    PhotoCategory = "estimate"
	PhotoPreIncident PhotoCategory = "pre_incident"
	PhotoAdditional  PhotoCategory = "additional"
)

func PhotoCategories() []PhotoCategory {
	return []PhotoCategory{PhotoEstimate, PhotoPreIncident, PhotoAdditional}
}

// ArtifactSet identifies the child records of one assessment.
type ArtifactSet struct {
	AssessmentID          string
	VehicleValuesID       string
	DamageID              string
	EstimateID            string
	PreIncidentEstimateID string
	TyreIDs               map[TyrePosition]string
	PhotoAlbumIDs         map[PhotoCategory]string
}

// Complete reports whether every artifact of the set exists.
func (s ArtifactSet) Complete() bool {
	if s.VehicleValuesID == "" || s.DamageID == "" || s.EstimateID == "" || s.PreIncidentEstimateID == "" {
		return false
	}
	for _, p := range TyrePositions() {
		if s.TyreIDs[p] == "" {
			return false
		}
	}
	for _, c := range PhotoCategories() {
		if s.PhotoAlbumIDs[c] == "" {
			return false
		}
	}
	return true
}
