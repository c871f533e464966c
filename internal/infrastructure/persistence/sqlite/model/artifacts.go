package model

import "github.com/shopspring/decimal"

type VehicleValues struct {
	VehicleValuesID string          `gorm:"column:vehicle_values_id;type:text;primaryKey"`
	AssessmentID    string          `gorm:"column:assessment_id;type:text;not null;uniqueIndex"`
	TradeValue      decimal.Decimal `gorm:"column:trade_value;type:numeric;not null"`
	MarketValue     decimal.Decimal `gorm:"column:market_value;type:numeric;not null"`
	RetailValue     decimal.Decimal `gorm:"column:retail_value;type:numeric;not null"`
	ValuationSource string          `gorm:"column:valuation_source;type:text;not null"`
	CreatedAt       string          `gorm:"column:created_at;type:text;not null"`
	UpdatedAt       string          `gorm:"column:updated_at;type:text;not null"`
}

func (VehicleValues) TableName() string   { return "assessment_vehicle_values" }
func (v VehicleValues) PrimaryID() string { return v.VehicleValuesID }

type Damage struct {
	DamageID           string `gorm:"column:damage_id;type:text;primaryKey"`
	AssessmentID       string `gorm:"column:assessment_id;type:text;not null;uniqueIndex"`
	MatchesDescription *bool  `gorm:"column:matches_description"`
	Severity           string `gorm:"column:severity;type:text;not null"`
	Notes              string `gorm:"column:notes;type:text;not null"`
	CreatedAt          string `gorm:"column:created_at;type:text;not null"`
	UpdatedAt          string `gorm:"column:updated_at;type:text;not null"`
}

func (Damage) TableName() string   { return "assessment_damage" }
func (d Damage) PrimaryID() string { return d.DamageID }

type Estimate struct {
	EstimateID   string          `gorm:"column:estimate_id;type:text;primaryKey"`
	AssessmentID string          `gorm:"column:assessment_id;type:text;not null;uniqueIndex"`
	Status       string          `gorm:"column:status;type:text;not null"`
	LabourRate   decimal.Decimal `gorm:"column:labour_rate;type:numeric;not null"`
	PaintRate    decimal.Decimal `gorm:"column:paint_rate;type:numeric;not null"`
	VATRate      decimal.Decimal `gorm:"column:vat_rate;type:numeric;not null"`
	Subtotal     decimal.Decimal `gorm:"column:subtotal;type:numeric;not null"`
	Total        decimal.Decimal `gorm:"column:total;type:numeric;not null"`
	CreatedAt    string          `gorm:"column:created_at;type:text;not null"`
	UpdatedAt    string          `gorm:"column:updated_at;type:text;not null"`
}

func (Estimate) TableName() string   { return "assessment_estimates" }
func (e Estimate) PrimaryID() string { return e.EstimateID }

type PreIncidentEstimate struct {
	PreIncidentEstimateID string          `gorm:"column:pre_incident_estimate_id;type:text;primaryKey"`
	AssessmentID          string          `gorm:"column:assessment_id;type:text;not null;uniqueIndex"`
	Status                string          `gorm:"column:status;type:text;not null"`
	Total                 decimal.Decimal `gorm:"column:total;type:numeric;not null"`
	CreatedAt             string          `gorm:"column:created_at;type:text;not null"`
	UpdatedAt             string          `gorm:"column:updated_at;type:text;not null"`
}

func (PreIncidentEstimate) TableName() string   { return "pre_incident_estimates" }
func (p PreIncidentEstimate) PrimaryID() string { return p.PreIncidentEstimateID }

// Tyre rows form a fixed set per assessment, one per position.
type Tyre struct {
	TyreID       string           `gorm:"column:tyre_id;type:text;primaryKey"`
	AssessmentID string           `gorm:"column:assessment_id;type:text;not null;uniqueIndex:idx_tyres_assessment_position,priority:1"`
	Position     string           `gorm:"column:position;type:text;not null;uniqueIndex:idx_tyres_assessment_position,priority:2"`
	Make         string           `gorm:"column:make;type:text;not null"`
	Size         string           `gorm:"column:size;type:text;not null"`
	TreadDepthMM *decimal.Decimal `gorm:"column:tread_depth_mm;type:numeric"`
	Condition    string           `gorm:"column:condition;type:text;not null"`
	CreatedAt    string           `gorm:"column:created_at;type:text;not null"`
	UpdatedAt    string           `gorm:"column:updated_at;type:text;not null"`
}

func (Tyre) TableName() string { return "assessment_tyres" }

type PhotoAlbum struct {
	AlbumID      string `gorm:"column:album_id;type:text;primaryKey"`
	AssessmentID string `gorm:"column:assessment_id;type:text;not null;uniqueIndex:idx_photo_albums_assessment_category,priority:1"`
	Category     string `gorm:"column:category;type:text;not null;uniqueIndex:idx_photo_albums_assessment_category,priority:2"`
	PhotoCount   int    `gorm:"column:photo_count;not null;default:0"`
	CreatedAt    string `gorm:"column:created_at;type:text;not null"`
	UpdatedAt    string `gorm:"column:updated_at;type:text;not null"`
}

func (PhotoAlbum) TableName() string { return "assessment_photo_albums" }
