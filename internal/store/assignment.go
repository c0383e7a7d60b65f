package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/counseldesk/apiserver/types"
)

// AssignmentRepository handles secretary/counselor assignment links.
type AssignmentRepository struct {
	db *sql.DB
}

func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts the link. The unique index on (counselor_id, secretary_id)
// plus ON CONFLICT DO NOTHING makes the duplicate check atomic: a duplicate
// insert affects zero rows and returns ErrConflict.
func (r *AssignmentRepository) Create(ctx context.Context, counselorID, secretaryID int) (types.SecretaryAssignment, error) {
	assignment := types.SecretaryAssignment{
		CounselorID: counselorID,
		SecretaryID: secretaryID,
		CreatedAt:   time.Now(),
	}

	const query = `
		INSERT INTO secretary_assignments (counselor_id, secretary_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (counselor_id, secretary_id) DO NOTHING
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query, counselorID, secretaryID, assignment.CreatedAt).Scan(&assignment.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.SecretaryAssignment{}, ErrConflict
		}
		return types.SecretaryAssignment{}, err
	}
	return assignment, nil
}

func (r *AssignmentRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM secretary_assignments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AssignmentRepository) ListForCounselor(ctx context.Context, counselorID int) ([]types.SecretaryAssignment, error) {
	const query = `
		SELECT id, counselor_id, secretary_id, created_at
		FROM secretary_assignments
		WHERE counselor_id = $1
		ORDER BY created_at`
	return r.queryAssignments(ctx, query, counselorID)
}

func (r *AssignmentRepository) ListForSecretary(ctx context.Context, secretaryID int) ([]types.SecretaryAssignment, error) {
	const query = `
		SELECT id, counselor_id, secretary_id, created_at
		FROM secretary_assignments
		WHERE secretary_id = $1
		ORDER BY created_at`
	return r.queryAssignments(ctx, query, secretaryID)
}

func (r *AssignmentRepository) queryAssignments(ctx context.Context, query string, args ...any) ([]types.SecretaryAssignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []types.SecretaryAssignment
	for rows.Next() {
		var a types.SecretaryAssignment
		if err := rows.Scan(&a.ID, &a.CounselorID, &a.SecretaryID, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}
