package ports

import (
	"context"

	domain "claimflow/internal/domain/assessment"
)

type HistoryEntry struct {
	EntryID      uint64
	EntityType   domain.EntityType
	EntityID     string
	AssessmentID string
	Action       string
	FieldName    *string
	OldValue     *string
	NewValue     *string
	ActorID      string
	Metadata     map[string]any
	CreatedAt    string
}

type HistoryEntryCreate struct {
	EntityType   domain.EntityType
	EntityID     string
	AssessmentID string
	Action       string
	FieldName    *string
	OldValue     *string
	NewValue     *string
	ActorID      string
	Metadata     map[string]any
	CreatedAt    string
}

// HistoryPageQuery pages by entry id; ids grow in insertion order.
type HistoryPageQuery struct {
	AfterID uint64
	Limit   int
}

// HistoryRepository is append-only: there is no update or delete.
type HistoryRepository interface {
	AppendHistory(ctx context.Context, input HistoryEntryCreate) (HistoryEntry, error)
	ListHistory(ctx context.Context, entityType domain.EntityType, entityID string, page HistoryPageQuery) ([]HistoryEntry, error)
	ListAssessmentHistory(ctx context.Context, assessmentID string, page HistoryPageQuery) ([]HistoryEntry, error)
}
