package patients

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-his/meridian-his/internal/shared"
)

// Repository defines read access to patient and appointment rows. Writes
// stay with the upstream clinical systems; this service only authorizes
// and serves reads.
type Repository interface {
	ListPatients(ctx context.Context) ([]Patient, error)
	GetPatient(ctx context.Context, id int64) (*Patient, error)
	ListAppointments(ctx context.Context) ([]Appointment, error)
	GetAppointment(ctx context.Context, id int64) (*Appointment, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListPatients returns all patients ordered by ID.
func (r *PGRepository) ListPatients(ctx context.Context) ([]Patient, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, full_name, date_of_birth, COALESCE(blood_group, ''), created_at FROM patients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.UserID, &p.FullName, &p.DateOfBirth, &p.BloodGroup, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPatient fetches one patient row.
func (r *PGRepository) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	var p Patient
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, full_name, date_of_birth, COALESCE(blood_group, ''), created_at FROM patients WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.UserID, &p.FullName, &p.DateOfBirth, &p.BloodGroup, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListAppointments returns all appointments ordered by schedule.
func (r *PGRepository) ListAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, patient_user_id, clinician_id, COALESCE(department, ''), scheduled_at, status FROM appointments ORDER BY scheduled_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PatientUserID, &a.ClinicianID, &a.DepartmentRef, &a.ScheduledAt, &a.Status); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAppointment fetches one appointment row.
func (r *PGRepository) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	var a Appointment
	err := r.pool.QueryRow(ctx,
		`SELECT id, patient_user_id, clinician_id, COALESCE(department, ''), scheduled_at, status FROM appointments WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.PatientUserID, &a.ClinicianID, &a.DepartmentRef, &a.ScheduledAt, &a.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

var _ Repository = (*PGRepository)(nil)
