package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/usecase/assessment"
)

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerName           string `json:"owner_name"`
		VehicleMake         string `json:"vehicle_make"`
		VehicleModel        string `json:"vehicle_model"`
		VehicleRegistration string `json:"vehicle_registration"`
		PendingEngineerID   string `json:"pending_engineer_id"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}

	out, err := h.service.CreateRequest(r.Context(), assessment.CreateRequestInput{
		OwnerName:           req.OwnerName,
		VehicleMake:         req.VehicleMake,
		VehicleModel:        req.VehicleModel,
		VehicleRegistration: req.VehicleRegistration,
		PendingEngineerID:   req.PendingEngineerID,
		Actor:               actorFrom(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"request":    toRequestView(out.Request),
		"assessment": toAssessmentView(out.Assessment),
	})
}

func (h *Handler) assignEngineer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EngineerID string `json:"engineer_id"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}

	out, err := h.service.AssignEngineer(r.Context(), assessment.AssignEngineerInput{
		RequestID:  chi.URLParam(r, "request_id"),
		EngineerID: req.EngineerID,
		Actor:      actorFrom(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestView(out))
}

func (h *Handler) getAssessment(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.GetAssessment(r.Context(), chi.URLParam(r, "assessment_id"), actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssessmentView(out))
}

// listAssessments accepts ?stage= repeated or comma separated; no stage
// lists every stage.
func (h *Handler) listAssessments(w http.ResponseWriter, r *http.Request) {
	var stages []string
	for _, raw := range r.URL.Query()["stage"] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				stages = append(stages, part)
			}
		}
	}

	rows, err := h.service.ListByStage(r.Context(), assessment.ListByStageInput{Stages: stages, Actor: actorFrom(r)})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": toListRowViews(rows)})
}

func (h *Handler) stageCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.StageCounts(r.Context(), actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stages": toStageCountViews(counts)})
}

func (h *Handler) scheduleAppointment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EngineerID   string    `json:"engineer_id"`
		ScheduledFor time.Time `json:"scheduled_for"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}

	out, err := h.service.ScheduleAppointment(r.Context(), assessment.ScheduleAppointmentInput{
		AssessmentID: chi.URLParam(r, "assessment_id"),
		EngineerID:   req.EngineerID,
		ScheduledFor: req.ScheduledFor,
		Actor:        actorFrom(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentView(out))
}

func (h *Handler) createInspection(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.CreateInspection(r.Context(), assessment.CreateInspectionInput{
		AssessmentID: chi.URLParam(r, "assessment_id"),
		Actor:        actorFrom(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInspectionView(out))
}

func (h *Handler) linkRelation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}

	out, err := h.service.LinkRelation(r.Context(), assessment.LinkRelationInput{
		AssessmentID: chi.URLParam(r, "assessment_id"),
		Relation:     chi.URLParam(r, "relation"),
		RelationID:   req.ID,
		Actor:        actorFrom(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssessmentView(out))
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetStage string `json:"target_stage"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}

	out, err := h.service.Transition(r.Context(), assessment.TransitionInput{
		AssessmentID: chi.URLParam(r, "assessment_id"),
		TargetStage:  req.TargetStage,
		Actor:        actorFrom(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssessmentView(out))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Cancel(r.Context(), chi.URLParam(r, "assessment_id"), actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssessmentView(out))
}

func (h *Handler) artifacts(w http.ResponseWriter, r *http.Request) {
	set, err := h.service.Artifacts(r.Context(), chi.URLParam(r, "assessment_id"), actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toArtifactSetView(set))
}

func (h *Handler) ensureArtifacts(w http.ResponseWriter, r *http.Request) {
	set, err := h.service.EnsureArtifacts(r.Context(), assessment.EnsureArtifactsInput{
		AssessmentID: chi.URLParam(r, "assessment_id"),
		Actor:        actorFrom(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toArtifactSetView(set))
}

func (h *Handler) assessmentHistory(w http.ResponseWriter, r *http.Request) {
	afterID, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	page, err := h.service.AssessmentHistory(r.Context(), actorFrom(r), chi.URLParam(r, "assessment_id"), afterID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryPageView(page))
}

func (h *Handler) entityHistory(w http.ResponseWriter, r *http.Request) {
	entityType, err := domain.ParseEntityType(chi.URLParam(r, "entity_type"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	afterID, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	page, err := h.service.HistoryPage(r.Context(), assessment.HistoryPageInput{
		EntityType: entityType,
		EntityID:   chi.URLParam(r, "entity_id"),
		AfterID:    afterID,
		Limit:      limit,
		Actor:      actorFrom(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryPageView(page))
}

func pageParams(w http.ResponseWriter, r *http.Request) (uint64, int, bool) {
	query := r.URL.Query()

	var afterID uint64
	if raw := query.Get("after_id"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "after_id must be a non-negative integer", nil)
			return 0, 0, false
		}
		afterID = v
	}

	var limit int
	if raw := query.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > 500 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be between 0 and 500", nil)
			return 0, 0, false
		}
		limit = v
	}
	return afterID, limit, true
}
