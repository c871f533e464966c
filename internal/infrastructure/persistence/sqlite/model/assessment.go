package model

// Assessment is one per request; request_id is unique at the store level.
type Assessment struct {
	AssessmentID  string  `gorm:"column:assessment_id;type:text;primaryKey"`
	Number        string  `gorm:"column:number;type:text;not null;uniqueIndex"`
	RequestID     string  `gorm:"column:request_id;type:text;not null;uniqueIndex"`
	Stage         string  `gorm:"column:stage;type:text;not null;index;check:chk_assessments_stage,stage IN ('request_submitted','request_reviewed','appointment_scheduled','inspection_scheduled','assessment_in_progress','estimate_review','estimate_sent','estimate_finalized','frc_in_progress','archived','cancelled')"`
	Status        string  `gorm:"column:status;type:text;not null;default:active;check:chk_assessments_status,status IN ('active','cancelled')"`
	AppointmentID *string `gorm:"column:appointment_id;type:text;index"`
	InspectionID  *string `gorm:"column:inspection_id;type:text"`
	EstimateID    *string `gorm:"column:estimate_id;type:text"`
	CreatedAt     string  `gorm:"column:created_at;type:text;not null;index"`
	UpdatedAt     string  `gorm:"column:updated_at;type:text;not null"`
}

func (Assessment) TableName() string {
	return "assessments"
}
