package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/counseldesk/apiserver/types"
)

// NotificationRepository handles persistence for notification fan-out rows.
type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertBatch writes every fan-out row of one compose action. All rows share
// the same batch id; the insert runs in a single transaction so a partial
// fan-out is never visible.
func (r *NotificationRepository) InsertBatch(ctx context.Context, rows []types.Notification) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO notifications (batch_id, recipient_id, author_id, content, status, target_group, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(
			ctx,
			row.BatchID,
			row.RecipientID,
			row.AuthorID,
			row.Content,
			row.Status,
			row.TargetGroup,
			row.SentAt,
			row.CreatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *NotificationRepository) Get(ctx context.Context, id int) (types.Notification, error) {
	const query = `
		SELECT id, batch_id, recipient_id, author_id, content, status, target_group, sent_at, created_at
		FROM notifications
		WHERE id = $1`
	var n types.Notification
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID,
		&n.BatchID,
		&n.RecipientID,
		&n.AuthorID,
		&n.Content,
		&n.Status,
		&n.TargetGroup,
		&n.SentAt,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Notification{}, ErrNotFound
		}
		return types.Notification{}, err
	}
	return n, nil
}

// ListForRecipient returns the rows addressed to one user, newest first.
func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipientID int) ([]types.Notification, error) {
	const query = `
		SELECT id, batch_id, recipient_id, author_id, content, status, target_group, sent_at, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []types.Notification
	for rows.Next() {
		var n types.Notification
		if err := rows.Scan(
			&n.ID,
			&n.BatchID,
			&n.RecipientID,
			&n.AuthorID,
			&n.Content,
			&n.Status,
			&n.TargetGroup,
			&n.SentAt,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListGroups reconstructs logical notifications from their fan-out rows by
// grouping on batch id, newest first.
func (r *NotificationRepository) ListGroups(ctx context.Context) ([]types.NotificationGroup, error) {
	const query = `
		SELECT batch_id, author_id, content, status, target_group, COUNT(*), MIN(sent_at), MIN(created_at)
		FROM notifications
		GROUP BY batch_id, author_id, content, status, target_group
		ORDER BY MIN(created_at) DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []types.NotificationGroup
	for rows.Next() {
		var g types.NotificationGroup
		if err := rows.Scan(
			&g.BatchID,
			&g.AuthorID,
			&g.Content,
			&g.Status,
			&g.TargetGroup,
			&g.RecipientCount,
			&g.SentAt,
			&g.CreatedAt,
		); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM notifications WHERE id = $1`
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
