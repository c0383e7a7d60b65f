package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/counseldesk/apiserver/types"
)

// ConversationRepository handles conversations and their messages.
type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateConversation inserts the conversation and its member rows together.
func (r *ConversationRepository) CreateConversation(ctx context.Context, conversation types.Conversation) (types.Conversation, error) {
	conversation.CreatedAt = time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Conversation{}, err
	}
	defer tx.Rollback()

	const insertConversation = `
		INSERT INTO conversations (created_by, topic, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertConversation,
		conversation.CreatedBy,
		conversation.Topic,
		conversation.CreatedAt,
	).Scan(&conversation.ID); err != nil {
		return types.Conversation{}, err
	}

	const insertMember = `
		INSERT INTO conversation_members (conversation_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
	for _, memberID := range conversation.MemberIDs {
		if _, err := tx.ExecContext(ctx, insertMember, conversation.ID, memberID); err != nil {
			return types.Conversation{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Conversation{}, err
	}
	return conversation, nil
}

func (r *ConversationRepository) GetConversation(ctx context.Context, id int) (types.Conversation, error) {
	const query = `
		SELECT id, created_by, topic, created_at
		FROM conversations
		WHERE id = $1`
	var conversation types.Conversation
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&conversation.ID,
		&conversation.CreatedBy,
		&conversation.Topic,
		&conversation.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Conversation{}, ErrNotFound
		}
		return types.Conversation{}, err
	}

	memberIDs, err := r.memberIDs(ctx, id)
	if err != nil {
		return types.Conversation{}, err
	}
	conversation.MemberIDs = memberIDs
	return conversation, nil
}

// ListForUser returns every conversation the user is a member of.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID int) ([]types.Conversation, error) {
	const query = `
		SELECT c.id, c.created_by, c.topic, c.created_at
		FROM conversations c
		JOIN conversation_members m ON m.conversation_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []types.Conversation
	for rows.Next() {
		var c types.Conversation
		if err := rows.Scan(&c.ID, &c.CreatedBy, &c.Topic, &c.CreatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return conversations, nil
}

// IsMember reports whether the user belongs to the conversation.
func (r *ConversationRepository) IsMember(ctx context.Context, conversationID, userID int) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM conversation_members
			WHERE conversation_id = $1 AND user_id = $2
		)`
	var isMember bool
	if err := r.db.QueryRowContext(ctx, query, conversationID, userID).Scan(&isMember); err != nil {
		return false, err
	}
	return isMember, nil
}

func (r *ConversationRepository) CreateMessage(ctx context.Context, message types.Message) (types.Message, error) {
	message.SentAt = time.Now()

	const query = `
		INSERT INTO messages (conversation_id, sender_id, content, sent_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		message.ConversationID,
		message.SenderID,
		message.Content,
		message.SentAt,
	).Scan(&message.ID); err != nil {
		return types.Message{}, err
	}
	return message, nil
}

func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID int) ([]types.Message, error) {
	const query = `
		SELECT id, conversation_id, sender_id, content, sent_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []types.Message
	for rows.Next() {
		var m types.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.SentAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *ConversationRepository) memberIDs(ctx context.Context, conversationID int) ([]int, error) {
	const query = `
		SELECT user_id FROM conversation_members
		WHERE conversation_id = $1
		ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
