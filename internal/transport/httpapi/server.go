package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
	"claimflow/internal/ports"
	"claimflow/internal/usecase/assessment"
)

// ActorHeader carries the caller id; the session layer in front of this API
// is responsible for setting it.
const ActorHeader = "X-Actor-ID"

type actorKey struct{}

type Handler struct {
	service *assessment.Service
	actors  ports.ActorProvider
	metrics http.Handler
}

// Options configures the router. Metrics, when set, is mounted at /metrics
// without actor resolution.
type Options struct {
	Metrics http.Handler
}

func NewRouter(ctx context.Context, service *assessment.Service, actors ports.ActorProvider, options Options) http.Handler {
	h := &Handler{service: service, actors: actors, metrics: options.Metrics}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "transport.httpapi"))

	r := chi.NewRouter()
	r.Use(requestLogger(logCtx))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/v1", func(api chi.Router) {
		api.Use(h.resolveActor)

		api.Post("/requests", h.createRequest)
		api.Post("/requests/{request_id}/engineer", h.assignEngineer)

		api.Get("/assessments", h.listAssessments)
		api.Get("/assessments/stage-counts", h.stageCounts)
		api.Get("/assessments/{assessment_id}", h.getAssessment)
		api.Post("/assessments/{assessment_id}/appointments", h.scheduleAppointment)
		api.Post("/assessments/{assessment_id}/inspections", h.createInspection)
		api.Put("/assessments/{assessment_id}/relations/{relation}", h.linkRelation)
		api.Post("/assessments/{assessment_id}/transitions", h.transition)
		api.Post("/assessments/{assessment_id}/cancel", h.cancel)
		api.Get("/assessments/{assessment_id}/artifacts", h.artifacts)
		api.Post("/assessments/{assessment_id}/artifacts", h.ensureArtifacts)
		api.Get("/assessments/{assessment_id}/history", h.assessmentHistory)

		api.Get("/history/{entity_type}/{entity_id}", h.entityHistory)
	})
	return r
}

func (h *Handler) resolveActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actorID == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", ActorHeader+" header is required", nil)
			return
		}
		actor, err := h.actors.Actor(r.Context(), actorID)
		if err != nil {
			if errors.Is(err, ports.ErrActorNotFound) {
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "unknown actor", nil)
				return
			}
			logging.Error(r.Context(), "resolve actor failed", slog.Any("err", errs.Loggable(err)))
			writeError(w, http.StatusInternalServerError, "INTERNAL", "resolve actor failed", nil)
			return
		}

		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		ctx = logging.WithAttrs(ctx, slog.String("actor_id", actor.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(r *http.Request) domain.Actor {
	actor, _ := r.Context().Value(actorKey{}).(domain.Actor)
	return actor
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(base context.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			ctx := logging.WithLogger(r.Context(), logging.Logger(base))
			ctx = logging.WithAttrs(ctx, logging.Attrs(base)...)
			ctx = logging.WithAttrs(ctx, slog.String("method", r.Method), slog.String("path", r.URL.Path))
			next.ServeHTTP(rec, r.WithContext(ctx))

			logging.Debug(ctx, "http request",
				slog.Int("status", rec.status),
				slog.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
