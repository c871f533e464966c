package ports

import (
	"context"
	"errors"

	domain "claimflow/internal/domain/assessment"
)

var ErrActorNotFound = errors.New("actor not found")

// ActorProvider resolves the authenticated caller for a session.
type ActorProvider interface {
	Actor(ctx context.Context, actorID string) (domain.Actor, error)
}
