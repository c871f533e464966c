package repository

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
	"claimflow/internal/infrastructure/persistence/sqlite/model"
	"claimflow/internal/ports"
)

const defaultHistoryPageSize = 100

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

var _ ports.HistoryRepository = (*HistoryRepository)(nil)

func (r *HistoryRepository) AppendHistory(ctx context.Context, input ports.HistoryEntryCreate) (ports.HistoryEntry, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return ports.HistoryEntry{}, err
	}

	var metadata datatypes.JSON
	if len(input.Metadata) > 0 {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return ports.HistoryEntry{}, errs.Wrap(err, "encode history metadata")
		}
		metadata = datatypes.JSON(raw)
	}

	row := model.HistoryEntry{
		EntityType:   string(input.EntityType),
		EntityID:     input.EntityID,
		AssessmentID: input.AssessmentID,
		Action:       input.Action,
		FieldName:    input.FieldName,
		OldValue:     input.OldValue,
		NewValue:     input.NewValue,
		ActorID:      input.ActorID,
		Metadata:     metadata,
		CreatedAt:    input.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.HistoryEntry{}, errs.Wrap(err, "insert history entry")
	}
	return mapHistoryEntry(row)
}

func (r *HistoryRepository) ListHistory(ctx context.Context, entityType domain.EntityType, entityID string, page ports.HistoryPageQuery) ([]ports.HistoryEntry, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.HistoryEntry{}).
		Where("entity_type = ? AND entity_id = ?", string(entityType), entityID)
	return listHistoryPage(query, page)
}

func (r *HistoryRepository) ListAssessmentHistory(ctx context.Context, assessmentID string, page ports.HistoryPageQuery) ([]ports.HistoryEntry, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.HistoryEntry{}).Where("assessment_id = ?", assessmentID)
	return listHistoryPage(query, page)
}

func listHistoryPage(query *gorm.DB, page ports.HistoryPageQuery) ([]ports.HistoryEntry, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = defaultHistoryPageSize
	}
	if page.AfterID > 0 {
		query = query.Where("entry_id > ?", page.AfterID)
	}

	var rows []model.HistoryEntry
	if err := query.Order("entry_id asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query history entries")
	}

	items := make([]ports.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		item, err := mapHistoryEntry(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func mapHistoryEntry(row model.HistoryEntry) (ports.HistoryEntry, error) {
	entry := ports.HistoryEntry{
		EntryID:      row.EntryID,
		EntityType:   domain.EntityType(row.EntityType),
		EntityID:     row.EntityID,
		AssessmentID: row.AssessmentID,
		Action:       row.Action,
		FieldName:    row.FieldName,
		OldValue:     row.OldValue,
		NewValue:     row.NewValue,
		ActorID:      row.ActorID,
		CreatedAt:    row.CreatedAt,
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &entry.Metadata); err != nil {
			return ports.HistoryEntry{}, errs.Wrapf(err, "decode metadata of history entry %d", row.EntryID)
		}
	}
	return entry, nil
}
