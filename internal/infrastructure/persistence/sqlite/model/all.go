package model

// All lists every table for schema migration, parents first.
func All() []any {
	return []any{
		&Request{},
		&Assessment{},
		&Appointment{},
		&Inspection{},
		&VehicleValues{},
		&Damage{},
		&Estimate{},
		&PreIncidentEstimate{},
		&Tyre{},
		&PhotoAlbum{},
		&HistoryEntry{},
	}
}
