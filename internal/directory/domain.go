package directory

import "time"

// User is a directory account: staff, clinicians, and portal patients all
// live in the same table, differentiated only by their role assignments.
type User struct {
	ID         int64
	Email      string
	FullName   string
	Department string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CareLink records an active care relationship between a clinician and a
// patient, e.g. through an appointment or an open medical record.
type CareLink struct {
	ClinicianID int64
	PatientID   int64
	Active      bool
	CreatedAt   time.Time
}
