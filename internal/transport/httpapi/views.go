package httpapi

import (
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/ports"
	"claimflow/internal/usecase/assessment"
)

type requestView struct {
	RequestID           string  `json:"request_id"`
	Number              string  `json:"number"`
	OwnerName           string  `json:"owner_name"`
	VehicleMake         string  `json:"vehicle_make"`
	VehicleModel        string  `json:"vehicle_model"`
	VehicleRegistration string  `json:"vehicle_registration"`
	PendingEngineerID   *string `json:"pending_engineer_id"`
	CreatedAt           string  `json:"created_at"`
	UpdatedAt           string  `json:"updated_at"`
}

type assessmentView struct {
	AssessmentID  string  `json:"assessment_id"`
	Number        string  `json:"number"`
	RequestID     string  `json:"request_id"`
	Stage         string  `json:"stage"`
	Status        string  `json:"status"`
	AppointmentID *string `json:"appointment_id"`
	InspectionID  *string `json:"inspection_id"`
	EstimateID    *string `json:"estimate_id"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

type listRowView struct {
	assessmentView
	RequestNumber           string  `json:"request_number"`
	OwnerName               string  `json:"owner_name"`
	VehicleRegistration     string  `json:"vehicle_registration"`
	PendingEngineerID       *string `json:"pending_engineer_id"`
	AppointmentEngineerID   *string `json:"appointment_engineer_id"`
	AppointmentScheduledFor *string `json:"appointment_scheduled_for"`
}

type appointmentView struct {
	AppointmentID string `json:"appointment_id"`
	RequestID     string `json:"request_id"`
	EngineerID    string `json:"engineer_id"`
	ScheduledFor  string `json:"scheduled_for"`
	CreatedAt     string `json:"created_at"`
}

type inspectionView struct {
	InspectionID  string `json:"inspection_id"`
	RequestID     string `json:"request_id"`
	AppointmentID string `json:"appointment_id"`
	CreatedAt     string `json:"created_at"`
}

type artifactSetView struct {
	AssessmentID          string            `json:"assessment_id"`
	Complete              bool              `json:"complete"`
	VehicleValuesID       string            `json:"vehicle_values_id,omitempty"`
	DamageID              string            `json:"damage_id,omitempty"`
	EstimateID            string            `json:"estimate_id,omitempty"`
	PreIncidentEstimateID string            `json:"pre_incident_estimate_id,omitempty"`
	Tyres                 map[string]string `json:"tyres"`
	PhotoAlbums           map[string]string `json:"photo_albums"`
}

type historyEntryView struct {
	EntryID      uint64         `json:"entry_id"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	AssessmentID string         `json:"assessment_id,omitempty"`
	Action       string         `json:"action"`
	FieldName    *string        `json:"field_name,omitempty"`
	OldValue     *string        `json:"old_value,omitempty"`
	NewValue     *string        `json:"new_value,omitempty"`
	ActorID      string         `json:"actor_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    string         `json:"created_at"`
}

type historyPageView struct {
	Entries     []historyEntryView `json:"entries"`
	NextAfterID uint64             `json:"next_after_id,omitempty"`
}

type stageCountView struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

func toRequestView(r ports.Request) requestView {
	return requestView{
		RequestID:           r.RequestID,
		Number:              r.Number,
		OwnerName:           r.OwnerName,
		VehicleMake:         r.VehicleMake,
		VehicleModel:        r.VehicleModel,
		VehicleRegistration: r.VehicleRegistration,
		PendingEngineerID:   r.PendingEngineerID,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func toAssessmentView(a ports.Assessment) assessmentView {
	return assessmentView{
		AssessmentID:  a.AssessmentID,
		Number:        a.Number,
		RequestID:     a.RequestID,
		Stage:         string(a.Stage),
		Status:        string(a.Status),
		AppointmentID: a.AppointmentID,
		InspectionID:  a.InspectionID,
		EstimateID:    a.EstimateID,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func toListRowViews(rows []ports.AssessmentListRow) []listRowView {
	out := make([]listRowView, 0, len(rows))
	for _, row := range rows {
		out = append(out, listRowView{
			assessmentView:          toAssessmentView(row.Assessment),
			RequestNumber:           row.RequestNumber,
			OwnerName:               row.OwnerName,
			VehicleRegistration:     row.VehicleRegistration,
			PendingEngineerID:       row.PendingEngineerID,
			AppointmentEngineerID:   row.AppointmentEngineerID,
			AppointmentScheduledFor: row.AppointmentScheduledFor,
		})
	}
	return out
}

func toAppointmentView(a ports.Appointment) appointmentView {
	return appointmentView{
		AppointmentID: a.AppointmentID,
		RequestID:     a.RequestID,
		EngineerID:    a.EngineerID,
		ScheduledFor:  a.ScheduledFor,
		CreatedAt:     a.CreatedAt,
	}
}

func toInspectionView(i ports.Inspection) inspectionView {
	return inspectionView{
		InspectionID:  i.InspectionID,
		RequestID:     i.RequestID,
		AppointmentID: i.AppointmentID,
		CreatedAt:     i.CreatedAt,
	}
}

func toArtifactSetView(set domain.ArtifactSet) artifactSetView {
	view := artifactSetView{
		AssessmentID:          set.AssessmentID,
		Complete:              set.Complete(),
		VehicleValuesID:       set.VehicleValuesID,
		DamageID:              set.DamageID,
		EstimateID:            set.EstimateID,
		PreIncidentEstimateID: set.PreIncidentEstimateID,
		Tyres:                 make(map[string]string, len(set.TyreIDs)),
		PhotoAlbums:           make(map[string]string, len(set.PhotoAlbumIDs)),
	}
	for position, id := range set.TyreIDs {
		view.Tyres[string(position)] = id
	}
	for category, id := range set.PhotoAlbumIDs {
		view.PhotoAlbums[string(category)] = id
	}
	return view
}

func toHistoryPageView(page assessment.HistoryPage) historyPageView {
	entries := make([]historyEntryView, 0, len(page.Entries))
	for _, e := range page.Entries {
		entries = append(entries, historyEntryView{
			EntryID:      e.EntryID,
			EntityType:   string(e.EntityType),
			EntityID:     e.EntityID,
			AssessmentID: e.AssessmentID,
			Action:       e.Action,
			FieldName:    e.FieldName,
			OldValue:     e.OldValue,
			NewValue:     e.NewValue,
			ActorID:      e.ActorID,
			Metadata:     e.Metadata,
			CreatedAt:    e.CreatedAt,
		})
	}
	return historyPageView{Entries: entries, NextAfterID: page.NextAfterID}
}

func toStageCountViews(counts []assessment.StageCount) []stageCountView {
	out := make([]stageCountView, 0, len(counts))
	for _, c := range counts {
		out = append(out, stageCountView{Stage: string(c.Stage), Count: c.Count})
	}
	return out
}
