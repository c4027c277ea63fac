package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-his/meridian-his/internal/platform/db"
)

const uniqueViolation = "23505"

// Repository defines persistence operations for the registry and
// assignment store.
type Repository interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
	CreateRole(ctx context.Context, name, description string) (Role, error)
	SetRoleActive(ctx context.Context, roleID int64, active bool) error
	EnsurePermission(ctx context.Context, perm Permission) (int64, error)
	GrantPermission(ctx context.Context, roleID, permissionID int64) error
	RevokePermission(ctx context.Context, roleID, permissionID int64) error
	AssignRole(ctx context.Context, principalID, roleID, assignedBy int64) error
	UnassignRole(ctx context.Context, principalID, roleID int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// LoadSnapshot reads the whole registry into an immutable snapshot. Called
// at startup and after administrative mutations, never per decision. The
// four tables are read inside one repeatable-read transaction so the
// snapshot never mixes states from concurrent mutations.
func (r *PGRepository) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	var snap *Snapshot
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		perms := make(map[Permission]int64)
		permsByID := make(map[int64]Permission)
		rows, err := tx.Query(ctx, `SELECT id, resource, action FROM permissions`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id               int64
				resource, action string
			)
			if err := rows.Scan(&id, &resource, &action); err != nil {
				return err
			}
			p := Permission{Resource: resource, Action: Action(action)}
			perms[p] = id
			permsByID[id] = p
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		var roles []Role
		rows, err = tx.Query(ctx, `SELECT id, name, description, active, created_at, updated_at FROM roles`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var role Role
			if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Active, &role.CreatedAt, &role.UpdatedAt); err != nil {
				return err
			}
			roles = append(roles, role)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		grants := make(map[int64][]Permission)
		rows, err = tx.Query(ctx, `SELECT role_id, permission_id FROM role_permissions`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var roleID, permID int64
			if err := rows.Scan(&roleID, &permID); err != nil {
				return err
			}
			if p, ok := permsByID[permID]; ok {
				grants[roleID] = append(grants[roleID], p)
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		var assignments []RoleAssignment
		rows, err = tx.Query(ctx, `SELECT user_id, role_id, assigned_at, COALESCE(assigned_by, 0), active FROM user_roles`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var a RoleAssignment
			if err := rows.Scan(&a.PrincipalID, &a.RoleID, &a.AssignedAt, &a.AssignedBy, &a.Active); err != nil {
				return err
			}
			assignments = append(assignments, a)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		snap = NewSnapshot(NewCatalog(perms), roles, grants, assignments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// CreateRole inserts a new role. Role names are unique case-insensitively.
func (r *PGRepository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, active) VALUES ($1, $2, TRUE)
		 RETURNING id, name, description, active, created_at, updated_at`,
		name, description,
	).Scan(&role.ID, &role.Name, &role.Description, &role.Active, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Role{}, ErrDuplicateRole
		}
		return Role{}, err
	}
	return role, nil
}

// SetRoleActive toggles the soft-disable flag. Historical assignments are
// untouched; an inactive role simply stops granting.
func (r *PGRepository) SetRoleActive(ctx context.Context, roleID int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET active = $2, updated_at = NOW() WHERE id = $1`, roleID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsurePermission upserts a catalog permission and returns its ID.
func (r *PGRepository) EnsurePermission(ctx context.Context, perm Permission) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO permissions (resource, action) VALUES ($1, $2)
		 ON CONFLICT (resource, action) DO UPDATE SET resource = EXCLUDED.resource
		 RETURNING id`,
		perm.Resource, string(perm.Action),
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUnknownPermission
		}
		return 0, err
	}
	return id, nil
}

// GrantPermission attaches a permission to a role. Granting twice is a no-op.
func (r *PGRepository) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roleID, permissionID,
	)
	return err
}

// RevokePermission detaches a permission from a role. Revoking an ungranted
// permission is a no-op, not an error.
func (r *PGRepository) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID,
	)
	return err
}

// AssignRole links a principal to a role, reactivating a previously
// deactivated assignment. Idempotent on the (principal, role) pair.
func (r *PGRepository) AssignRole(ctx context.Context, principalID, roleID, assignedBy int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id, assigned_at, assigned_by, active)
		 VALUES ($1, $2, NOW(), NULLIF($3, 0), TRUE)
		 ON CONFLICT (user_id, role_id) DO UPDATE SET active = TRUE`,
		principalID, roleID, assignedBy,
	)
	return err
}

// UnassignRole deactivates an assignment. The row is kept for audit history.
func (r *PGRepository) UnassignRole(ctx context.Context, principalID, roleID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE user_roles SET active = FALSE WHERE user_id = $1 AND role_id = $2`,
		principalID, roleID,
	)
	return err
}

var _ Repository = (*PGRepository)(nil)
