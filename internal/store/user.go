package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/counseldesk/apiserver/types"
	"github.com/lib/pq"
)

const userColumns = `id, username, email, name, role, is_director, approval_status, department,
		credentials, contact_number, profile_image_key, proof_image_key, password_hash,
		approved_at, approved_by, denied_at, denied_by, email_notified_at, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.IsDirector,
		&user.ApprovalStatus,
		&user.Department,
		&user.Credentials,
		&user.ContactNumber,
		&user.ProfileImageKey,
		&user.ProofImageKey,
		&user.PasswordHash,
		&user.ApprovedAt,
		&user.ApprovedBy,
		&user.DeniedAt,
		&user.DeniedBy,
		&user.EmailNotifiedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (username, email, name, role, is_director, approval_status, department,
			credentials, contact_number, profile_image_key, proof_image_key, password_hash,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Name,
		user.Role,
		user.IsDirector,
		user.ApprovalStatus,
		user.Department,
		user.Credentials,
		user.ContactNumber,
		user.ProfileImageKey,
		user.ProofImageKey,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// ListAll returns every user ordered by id.
func (r *UserRepository) ListAll(ctx context.Context) ([]types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY id`
	return r.queryUsers(ctx, query)
}

// ListByRoles returns every user holding one of the given roles.
func (r *UserRepository) ListByRoles(ctx context.Context, roles ...string) ([]types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = ANY($1)
		ORDER BY id`
	return r.queryUsers(ctx, query, pq.Array(roles))
}

// ListByStatus returns every user in the given approval status.
func (r *UserRepository) ListByStatus(ctx context.Context, status string) ([]types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE approval_status = $1
		ORDER BY id`
	return r.queryUsers(ctx, query, status)
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]types.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateStatus applies an approval-status transition as a conditional write.
// The WHERE clause doubles as the already-in-this-state guard: when the row
// exists but already holds newStatus, no row is updated and ErrConflict is
// returned, so two racing transitions cannot both succeed.
func (r *UserRepository) UpdateStatus(ctx context.Context, id int, newStatus string, actorID int) (types.User, error) {
	now := time.Now()

	var query string
	switch newStatus {
	case types.StatusApproved:
		query = `
			UPDATE users
			SET approval_status = $2, approved_at = $3, approved_by = $4, updated_at = $3
			WHERE id = $1 AND approval_status <> $2
			RETURNING ` + userColumns
	case types.StatusDenied:
		query = `
			UPDATE users
			SET approval_status = $2, denied_at = $3, denied_by = $4, updated_at = $3
			WHERE id = $1 AND approval_status <> $2
			RETURNING ` + userColumns
	default:
		return types.User{}, ErrConflict
	}

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id, newStatus, now, actorID))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return types.User{}, err
	}

	// Zero rows: distinguish a missing user from the guard firing.
	var current string
	existsErr := r.db.QueryRowContext(ctx, `SELECT approval_status FROM users WHERE id = $1`, id).Scan(&current)
	if errors.Is(existsErr, sql.ErrNoRows) {
		return types.User{}, ErrNotFound
	}
	if existsErr != nil {
		return types.User{}, existsErr
	}
	return types.User{}, ErrConflict
}

// UpdateDepartment reassigns the user's department.
func (r *UserRepository) UpdateDepartment(ctx context.Context, id int, department string) (types.User, error) {
	const query = `
		UPDATE users
		SET department = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id, department, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// Image columns settable through UpdateImageKey.
const (
	ColumnProfileImage = "profile_image_key"
	ColumnProofImage   = "proof_image_key"
)

// UpdateImageKey stores an uploaded object key on the user row.
func (r *UserRepository) UpdateImageKey(ctx context.Context, id int, column, key string) error {
	var query string
	switch column {
	case ColumnProfileImage:
		query = `UPDATE users SET profile_image_key = $2, updated_at = $3 WHERE id = $1`
	case ColumnProofImage:
		query = `UPDATE users SET proof_image_key = $2, updated_at = $3 WHERE id = $1`
	default:
		return ErrNotFound
	}
	result, err := r.db.ExecContext(ctx, query, id, key, time.Now())
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

// MarkEmailNotified stamps the best-effort "decision email sent" annotation.
func (r *UserRepository) MarkEmailNotified(ctx context.Context, id int, at time.Time) error {
	const query = `UPDATE users SET email_notified_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, at)
	return err
}
