package patients

import "context"

// Service exposes read operations over the clinical directory.
type Service struct {
	repo Repository
}

// NewService constructs a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListPatients returns every patient row. Visibility filtering happens at
// the enforcement point, not here.
func (s *Service) ListPatients(ctx context.Context) ([]Patient, error) {
	return s.repo.ListPatients(ctx)
}

// GetPatient returns one patient by ID.
func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.repo.GetPatient(ctx, id)
}

// ListAppointments returns every appointment row.
func (s *Service) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return s.repo.ListAppointments(ctx)
}

// GetAppointment returns one appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}
