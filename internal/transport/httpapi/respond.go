package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
	"claimflow/internal/ports"
	"claimflow/internal/usecase/assessment"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string, message string, details map[string]any) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message, Details: details}})
}

func readJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errs.Wrap(err, "decode request body")
	}
	return nil
}

// writeServiceError maps engine errors onto HTTP statuses. Anything it does
// not recognise is a 500 and gets logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var missing *domain.MissingPrerequisiteError
	var partial *domain.PartialProvisioningError

	switch {
	case errors.As(err, &missing):
		relations := make([]string, 0, len(missing.Relations))
		for _, rel := range missing.Relations {
			relations = append(relations, string(rel))
		}
		writeError(w, http.StatusUnprocessableEntity, "MISSING_PREREQUISITE", err.Error(), map[string]any{
			"stage":     string(missing.Stage),
			"relations": relations,
		})
	case errors.As(err, &partial):
		failed := make([]string, 0, len(partial.Outcomes))
		for _, a := range partial.Failed() {
			failed = append(failed, string(a))
		}
		writeError(w, http.StatusServiceUnavailable, "PARTIAL_PROVISIONING", err.Error(), map[string]any{
			"failed":    failed,
			"retryable": true,
		})
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, domain.ErrTerminalState):
		writeError(w, http.StatusConflict, "TERMINAL_STATE", err.Error(), nil)
	case errors.Is(err, ports.ErrDuplicateAssessment):
		writeError(w, http.StatusConflict, "DUPLICATE", err.Error(), nil)
	case errors.Is(err, domain.ErrRelationMismatch):
		writeError(w, http.StatusUnprocessableEntity, "RELATION_MISMATCH", err.Error(), nil)
	case errors.Is(err, domain.ErrUnknownStage),
		errors.Is(err, domain.ErrUnknownRelation),
		errors.Is(err, domain.ErrUnknownEntityType),
		errors.Is(err, assessment.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ports.ErrRequestNotFound),
		errors.Is(err, ports.ErrAssessmentNotFound),
		errors.Is(err, ports.ErrAppointmentNotFound),
		errors.Is(err, ports.ErrInspectionNotFound),
		errors.Is(err, ports.ErrEstimateNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, domain.ErrVerificationFailed):
		writeError(w, http.StatusInternalServerError, "VERIFICATION_FAILED", err.Error(), nil)
	default:
		logging.Error(r.Context(), "request failed", slog.Any("err", errs.Loggable(err)))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
