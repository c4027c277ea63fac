package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-his/meridian-his/internal/shared"
)

type mockRepository struct {
	users map[int64]*User
	links map[int64][]int64
}

func (m *mockRepository) GetUser(ctx context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepository) CarePatients(ctx context.Context, clinicianID int64) ([]int64, error) {
	return m.links[clinicianID], nil
}

func TestPrincipalView(t *testing.T) {
	repo := &mockRepository{
		users: map[int64]*User{
			7: {ID: 7, Email: "dr@meridian.local", Department: "cardiology", IsActive: true},
			8: {ID: 8, Email: "old@meridian.local", IsActive: false},
		},
		links: map[int64][]int64{7: {41, 42}},
	}
	svc := NewService(repo)

	p, err := svc.PrincipalView(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "cardiology", p.Department)
	assert.True(t, p.InCareOf(41))
	assert.True(t, p.InCareOf(42))
	assert.False(t, p.InCareOf(43))
}

func TestPrincipalViewInactiveUser(t *testing.T) {
	repo := &mockRepository{users: map[int64]*User{8: {ID: 8, IsActive: false}}}
	svc := NewService(repo)

	_, err := svc.PrincipalView(context.Background(), 8)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPrincipalViewUnknownUser(t *testing.T) {
	svc := NewService(&mockRepository{users: map[int64]*User{}})
	_, err := svc.PrincipalView(context.Background(), 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
