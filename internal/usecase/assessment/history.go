package assessment

import (
	"context"
	"iter"
	"strings"

	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/ports"
)

const defaultHistoryPageSize = 50

// HistoryPage reads one page of an entity's ledger in insertion order. Every
// assessment the page touches must be readable by the actor.
func (s *Service) HistoryPage(ctx context.Context, input HistoryPageInput) (HistoryPage, error) {
	if err := checkContext(ctx); err != nil {
		return HistoryPage{}, err
	}
	if err := s.ready(); err != nil {
		return HistoryPage{}, err
	}

	entityID := strings.TrimSpace(input.EntityID)
	if input.EntityType == domain.EntityAssessment {
		if err := s.authorize(ctx, input.Actor, domain.ActionRead, entityID); err != nil {
			return HistoryPage{}, err
		}
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultHistoryPageSize
	}
	entries, err := s.history.ListHistory(ctx, input.EntityType, entityID, ports.HistoryPageQuery{
		AfterID: input.AfterID,
		Limit:   limit,
	})
	if err != nil {
		return HistoryPage{}, err
	}
	if err := s.authorizeEntries(ctx, input.Actor, entries); err != nil {
		return HistoryPage{}, err
	}
	return newHistoryPage(entries, limit), nil
}

// History walks an entity's ledger lazily, one page per fetch. Each range
// over the returned sequence starts again from the first entry.
func (s *Service) History(ctx context.Context, actor domain.Actor, entityType domain.EntityType, entityID string, pageSize int) iter.Seq2[ports.HistoryEntry, error] {
	return func(yield func(ports.HistoryEntry, error) bool) {
		var after uint64
		for {
			page, err := s.HistoryPage(ctx, HistoryPageInput{
				EntityType: entityType,
				EntityID:   entityID,
				AfterID:    after,
				Limit:      pageSize,
				Actor:      actor,
			})
			if err != nil {
				yield(ports.HistoryEntry{}, err)
				return
			}
			for _, entry := range page.Entries {
				if !yield(entry, nil) {
					return
				}
			}
			if page.NextAfterID == 0 {
				return
			}
			after = page.NextAfterID
		}
	}
}

// AssessmentHistory is the cross-entity view: every entry recorded against
// the assessment or any of its related rows.
func (s *Service) AssessmentHistory(ctx context.Context, actor domain.Actor, assessmentID string, afterID uint64, limit int) (HistoryPage, error) {
	if err := checkContext(ctx); err != nil {
		return HistoryPage{}, err
	}
	if err := s.ready(); err != nil {
		return HistoryPage{}, err
	}
	if err := s.authorize(ctx, actor, domain.ActionRead, assessmentID); err != nil {
		return HistoryPage{}, err
	}

	if limit <= 0 {
		limit = defaultHistoryPageSize
	}
	entries, err := s.history.ListAssessmentHistory(ctx, assessmentID, ports.HistoryPageQuery{AfterID: afterID, Limit: limit})
	if err != nil {
		return HistoryPage{}, err
	}
	return newHistoryPage(entries, limit), nil
}

func (s *Service) authorizeEntries(ctx context.Context, actor domain.Actor, entries []ports.HistoryEntry) error {
	checked := map[string]bool{}
	for _, e := range entries {
		if checked[e.AssessmentID] {
			continue
		}
		if err := s.authorize(ctx, actor, domain.ActionRead, e.AssessmentID); err != nil {
			return err
		}
		checked[e.AssessmentID] = true
	}
	return nil
}

func newHistoryPage(entries []ports.HistoryEntry, limit int) HistoryPage {
	page := HistoryPage{Entries: entries}
	if len(entries) == limit && limit > 0 {
		page.NextAfterID = entries[len(entries)-1].EntryID
	}
	return page
}
