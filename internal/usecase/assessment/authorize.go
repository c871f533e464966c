package assessment

import (
	"context"
	"fmt"
	"log/slog"

	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
)

// CanAccess answers the evaluator question for one assessment. Any lookup
// failure denies.
func (s *Service) CanAccess(ctx context.Context, actor domain.Actor, action domain.Action, assessmentID string) bool {
	if err := checkContext(ctx); err != nil {
		return false
	}
	if s.repo == nil {
		return false
	}

	facts, err := s.repo.GetAccessFacts(ctx, assessmentID)
	if err != nil {
		logging.Warn(ctx, "access facts lookup failed, denying",
			slog.String("assessment_id", assessmentID),
			slog.String("actor_id", actor.ID),
			slog.Any("err", errs.Loggable(err)),
		)
		return false
	}
	return domain.Evaluate(actor, action, facts)
}

func (s *Service) authorize(ctx context.Context, actor domain.Actor, action domain.Action, assessmentID string) error {
	if s.CanAccess(ctx, actor, action, assessmentID) {
		return nil
	}
	return fmt.Errorf("%w: actor %q may not %s assessment %s", domain.ErrUnauthorized, actor.ID, action, assessmentID)
}

// requireAdmin guards operations that act before an assessment relationship
// exists (intake and assignment).
func requireAdmin(actor domain.Actor, what string) error {
	if actor.ID == "" || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: %s requires the admin role", domain.ErrUnauthorized, what)
	}
	return nil
}
