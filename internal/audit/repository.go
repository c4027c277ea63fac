package audit

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists and reads the decision trail.
type Repository interface {
	Insert(ctx context.Context, rec DecisionRecord) error
	List(ctx context.Context, filters Filters) ([]DecisionRecord, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert appends one verdict to the trail.
func (r *PGRepository) Insert(ctx context.Context, rec DecisionRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO authz_decisions (principal_id, resource, action, allowed, reason, decided_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
		rec.PrincipalID, rec.Resource, rec.Action, rec.Allowed, rec.Reason, rec.At,
	)
	return err
}

// List returns trail rows matching the filters, newest first.
func (r *PGRepository) List(ctx context.Context, filters Filters) ([]DecisionRecord, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filters.PrincipalID != 0 {
		conds = append(conds, "principal_id = "+arg(filters.PrincipalID))
	}
	if filters.Resource != "" {
		conds = append(conds, "resource = "+arg(filters.Resource))
	}
	if filters.DeniedOnly {
		conds = append(conds, "allowed = FALSE")
	}
	if !filters.From.IsZero() {
		conds = append(conds, "decided_at >= "+arg(filters.From))
	}
	if !filters.To.IsZero() {
		conds = append(conds, "decided_at <= "+arg(filters.To))
	}
	query := `SELECT id, principal_id, resource, action, allowed, COALESCE(reason, ''), decided_at FROM authz_decisions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	query += " ORDER BY decided_at DESC, id DESC LIMIT " + arg(limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		if err := rows.Scan(&rec.ID, &rec.PrincipalID, &rec.Resource, &rec.Action, &rec.Allowed, &rec.Reason, &rec.At); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
