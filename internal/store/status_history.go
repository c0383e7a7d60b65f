package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/counseldesk/apiserver/types"
)

// StatusHistoryRepository handles the append-only approval audit trail.
type StatusHistoryRepository struct {
	db *sql.DB
}

func NewStatusHistoryRepository(db *sql.DB) *StatusHistoryRepository {
	return &StatusHistoryRepository{db: db}
}

func (r *StatusHistoryRepository) Append(ctx context.Context, entry types.StatusHistoryEntry) (types.StatusHistoryEntry, error) {
	entry.CreatedAt = time.Now()

	const query = `
		INSERT INTO status_history (user_id, status, actor_id, actor_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		entry.UserID,
		entry.Status,
		entry.ActorID,
		entry.ActorName,
		entry.CreatedAt,
	).Scan(&entry.ID); err != nil {
		return types.StatusHistoryEntry{}, err
	}
	return entry, nil
}

func (r *StatusHistoryRepository) ListForUser(ctx context.Context, userID int) ([]types.StatusHistoryEntry, error) {
	const query = `
		SELECT id, user_id, status, actor_id, actor_name, created_at
		FROM status_history
		WHERE user_id = $1
		ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.StatusHistoryEntry
	for rows.Next() {
		var entry types.StatusHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Status,
			&entry.ActorID,
			&entry.ActorName,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
