package audit

import "context"

// Service coordinates reads over the decision trail.
type Service struct {
	repo Repository
}

// NewService constructs a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Decisions lists trail rows matching the filters, newest first.
func (s *Service) Decisions(ctx context.Context, filters Filters) ([]DecisionRecord, error) {
	return s.repo.List(ctx, filters)
}
