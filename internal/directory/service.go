package directory

import (
	"context"
	"fmt"

	"github.com/meridian-his/meridian-his/internal/rbac"
	"github.com/meridian-his/meridian-his/internal/shared"
)

// Service assembles read-only principal views. Loading happens once per
// request, before any decision; the engine itself never touches storage.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// PrincipalView loads the identity attributes scope rules depend on:
// department membership and active care links. Inactive accounts resolve
// to ErrNotFound so stale sessions stop authorizing immediately.
func (s *Service) PrincipalView(ctx context.Context, userID int64) (rbac.Principal, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("directory: load user %d: %w", userID, err)
	}
	if !user.IsActive {
		return rbac.Principal{}, shared.ErrNotFound
	}
	principal := rbac.Principal{
		ID:         user.ID,
		Department: user.Department,
	}
	patients, err := s.repo.CarePatients(ctx, userID)
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("directory: load care links for %d: %w", userID, err)
	}
	if len(patients) > 0 {
		principal.Patients = make(map[int64]struct{}, len(patients))
		for _, id := range patients {
			principal.Patients[id] = struct{}{}
		}
	}
	return principal, nil
}
