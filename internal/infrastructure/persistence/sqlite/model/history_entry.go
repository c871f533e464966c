package model

import "gorm.io/datatypes"

// HistoryEntry is append-only. assessment_id is denormalized onto every row so
// the cross-entity view is one indexed range scan.
type HistoryEntry struct {
	EntryID      uint64         `gorm:"column:entry_id;primaryKey;autoIncrement"`
	EntityType   string         `gorm:"column:entity_type;type:text;not null;index:idx_history_entity,priority:1"`
	EntityID     string         `gorm:"column:entity_id;type:text;not null;index:idx_history_entity,priority:2"`
	AssessmentID string         `gorm:"column:assessment_id;type:text;not null;index:idx_history_assessment"`
	Action       string         `gorm:"column:action;type:text;not null"`
	FieldName    *string        `gorm:"column:field_name;type:text"`
	OldValue     *string        `gorm:"column:old_value;type:text"`
	NewValue     *string        `gorm:"column:new_value;type:text"`
	ActorID      string         `gorm:"column:actor_id;type:text;not null"`
	Metadata     datatypes.JSON `gorm:"column:metadata"`
	CreatedAt    string         `gorm:"column:created_at;type:text;not null"`
}

func (HistoryEntry) TableName() string {
	return "history_entries"
}
