package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
	"claimflow/internal/ports"
)

// EnsureArtifacts provisions the full artifact set. Safe to call any number
// of times; existing rows are returned unchanged.
func (s *Service) EnsureArtifacts(ctx context.Context, input EnsureArtifactsInput) (domain.ArtifactSet, error) {
	if err := checkContext(ctx); err != nil {
		return domain.ArtifactSet{}, err
	}
	if err := s.ready(); err != nil {
		return domain.ArtifactSet{}, err
	}

	assessmentID := strings.TrimSpace(input.AssessmentID)
	if assessmentID == "" {
		return domain.ArtifactSet{}, errAssessmentIDRequired
	}

	current, err := s.repo.GetAssessment(ctx, assessmentID)
	if err != nil {
		return domain.ArtifactSet{}, err
	}
	if err := s.authorize(ctx, input.Actor, domain.ActionWrite, assessmentID); err != nil {
		return domain.ArtifactSet{}, err
	}
	if current.Stage.Terminal() {
		return domain.ArtifactSet{}, fmt.Errorf("%w: assessment %s is %s", domain.ErrTerminalState, assessmentID, current.Stage)
	}

	logCtx := s.logContext(ctx, "ensure_artifacts", input.Actor, slog.String("assessment_id", assessmentID))
	return s.ensureArtifacts(logCtx, assessmentID, input.Actor)
}

// Artifacts returns the artifact set as it exists now, complete or not.
func (s *Service) Artifacts(ctx context.Context, assessmentID string, actor domain.Actor) (domain.ArtifactSet, error) {
	if err := checkContext(ctx); err != nil {
		return domain.ArtifactSet{}, err
	}
	if err := s.ready(); err != nil {
		return domain.ArtifactSet{}, err
	}
	if _, err := s.repo.GetAssessment(ctx, assessmentID); err != nil {
		return domain.ArtifactSet{}, err
	}
	if err := s.authorize(ctx, actor, domain.ActionRead, assessmentID); err != nil {
		return domain.ArtifactSet{}, err
	}
	return s.artifacts.GetArtifacts(ctx, assessmentID)
}

// ensureArtifacts runs every factory step independently. A failed step does
// not undo earlier ones; the outcome of each is reported in a
// PartialProvisioningError.
func (s *Service) ensureArtifacts(ctx context.Context, assessmentID string, actor domain.Actor) (domain.ArtifactSet, error) {
	set := domain.ArtifactSet{
		AssessmentID:  assessmentID,
		TyreIDs:       map[domain.TyrePosition]string{},
		PhotoAlbumIDs: map[domain.PhotoCategory]string{},
	}

	kinds := domain.ArtifactKinds()
	outcomes := make([]domain.ArtifactOutcome, 0, len(kinds))
	failed := false
	for _, kind := range kinds {
		created, err := s.provision(ctx, &set, kind, actor)
		outcome := domain.ArtifactOutcome{Artifact: kind, Created: created, Err: err}
		outcomes = append(outcomes, outcome)

		switch {
		case err != nil:
			failed = true
			s.metrics.ObserveProvisioning(kind, ports.ResultError)
			logging.Error(ctx, "provision artifact failed",
				slog.String("artifact", string(kind)),
				slog.Any("err", errs.Loggable(err)),
			)
		case created:
			s.metrics.ObserveProvisioning(kind, ports.ResultSuccess)
		default:
			s.metrics.ObserveProvisioning(kind, ports.ResultNoop)
		}
	}

	if failed {
		return set, &domain.PartialProvisioningError{AssessmentID: assessmentID, Outcomes: outcomes}
	}
	return set, nil
}

func (s *Service) provision(ctx context.Context, set *domain.ArtifactSet, kind domain.ArtifactKind, actor domain.Actor) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errs.Wrap(err, "check context")
	}

	now := s.nowString()
	one := func(entity domain.EntityType, ensure func(context.Context, string, string) (string, bool, error), dst *string) (bool, error) {
		id, created, err := ensure(ctx, set.AssessmentID, now)
		if err != nil {
			return false, err
		}
		*dst = id
		if created {
			s.recordArtifactCreated(ctx, entity, id, set.AssessmentID, actor, nil)
		}
		return created, nil
	}

	switch kind {
	case domain.ArtifactVehicleValues:
		return one(domain.EntityVehicleValues, s.artifacts.EnsureVehicleValues, &set.VehicleValuesID)
	case domain.ArtifactDamage:
		return one(domain.EntityDamage, s.artifacts.EnsureDamage, &set.DamageID)
	case domain.ArtifactEstimate:
		return one(domain.EntityEstimate, s.artifacts.EnsureEstimate, &set.EstimateID)
	case domain.ArtifactPreIncidentEstimate:
		return one(domain.EntityPreIncidentEstimate, s.artifacts.EnsurePreIncidentEstimate, &set.PreIncidentEstimateID)
	case domain.ArtifactTyres:
		ids, created, err := s.artifacts.UpsertTyres(ctx, set.AssessmentID, domain.TyrePositions(), now)
		if err != nil {
			return false, err
		}
		set.TyreIDs = ids
		for _, p := range created {
			s.recordArtifactCreated(ctx, domain.EntityTyre, ids[p], set.AssessmentID, actor, map[string]any{"position": string(p)})
		}
		if missing := missingKeys(domain.TyrePositions(), ids); len(missing) > 0 {
			return len(created) > 0, fmt.Errorf("tyre positions missing after upsert: %v", missing)
		}
		return len(created) > 0, nil
	case domain.ArtifactPhotoAlbums:
		ids, created, err := s.artifacts.UpsertPhotoAlbums(ctx, set.AssessmentID, domain.PhotoCategories(), now)
		if err != nil {
			return false, err
		}
		set.PhotoAlbumIDs = ids
		for _, c := range created {
			s.recordArtifactCreated(ctx, domain.EntityPhotoAlbum, ids[c], set.AssessmentID, actor, map[string]any{"category": string(c)})
		}
		if missing := missingKeys(domain.PhotoCategories(), ids); len(missing) > 0 {
			return len(created) > 0, fmt.Errorf("photo album categories missing after upsert: %v", missing)
		}
		return len(created) > 0, nil
	default:
		return false, fmt.Errorf("unknown artifact %q", kind)
	}
}

func (s *Service) recordArtifactCreated(ctx context.Context, entity domain.EntityType, id string, assessmentID string, actor domain.Actor, metadata map[string]any) {
	s.recordHistory(ctx, ports.HistoryEntryCreate{
		EntityType:   entity,
		EntityID:     id,
		AssessmentID: assessmentID,
		Action:       domain.ActionCreated,
		ActorID:      actor.ID,
		Metadata:     metadata,
	})
}

func missingKeys[K comparable](want []K, got map[K]string) []K {
	var out []K
	for _, k := range want {
		if got[k] == "" {
			out = append(out, k)
		}
	}
	return out
}
