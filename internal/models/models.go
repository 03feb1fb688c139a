package models

// All returns every model migrated by the API.
func All() []interface{} {
	return []interface{}{
		&Standard{},
		&Batch{},
		&User{},
		&StudentProfile{},
		&StaffProfile{},
		&FeePayment{},
		&ActivityLog{},
	}
}
