package model

type Appointment struct {
	AppointmentID string `gorm:"column:appointment_id;type:text;primaryKey"`
	RequestID     string `gorm:"column:request_id;type:text;not null;index"`
	EngineerID    string `gorm:"column:engineer_id;type:text;not null;index"`
	ScheduledFor  string `gorm:"column:scheduled_for;type:text;not null"`
	CreatedAt     string `gorm:"column:created_at;type:text;not null"`
}

func (Appointment) TableName() string {
	return "appointments"
}

type Inspection struct {
	InspectionID  string `gorm:"column:inspection_id;type:text;primaryKey"`
	RequestID     string `gorm:"column:request_id;type:text;not null;index"`
	AppointmentID string `gorm:"column:appointment_id;type:text;not null;index"`
	CreatedAt     string `gorm:"column:created_at;type:text;not null"`
}

func (Inspection) TableName() string {
	return "inspections"
}
