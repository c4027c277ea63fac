package patients

import "time"

// Patient is a registered patient row. The owning portal account is the
// record's subject for scope purposes.
type Patient struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	FullName    string    `json:"full_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	BloodGroup  string    `json:"blood_group,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubjectID identifies the patient's own account as the record subject.
func (p Patient) SubjectID() int64 { return p.UserID }

// Appointment is a scheduled visit between a patient and a clinician.
type Appointment struct {
	ID            int64     `json:"id"`
	PatientUserID int64     `json:"patient_user_id"`
	ClinicianID   int64     `json:"clinician_id"`
	DepartmentRef string    `json:"department"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Status        string    `json:"status"`
}

// SubjectID identifies the patient the appointment belongs to.
func (a Appointment) SubjectID() int64 { return a.PatientUserID }

// Department returns the hosting department code.
func (a Appointment) Department() string { return a.DepartmentRef }
