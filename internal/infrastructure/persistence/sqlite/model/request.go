package model

type Request struct {
	RequestID           string  `gorm:"column:request_id;type:text;primaryKey"`
	Number              string  `gorm:"column:number;type:text;not null;uniqueIndex"`
	OwnerName           string  `gorm:"column:owner_name;type:text;not null"`
	VehicleMake         string  `gorm:"column:vehicle_make;type:text;not null"`
	VehicleModel        string  `gorm:"column:vehicle_model;type:text;not null"`
	VehicleRegistration string  `gorm:"column:vehicle_registration;type:text;not null;index"`
	PendingEngineerID   *string `gorm:"column:pending_engineer_id;type:text;index"`
	CreatedAt           string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt           string  `gorm:"column:updated_at;type:text;not null"`
}

func (Request) TableName() string {
	return "requests"
}
