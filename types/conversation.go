package types

import "time"

// Conversation is a thread of messages between two or more users.
type Conversation struct {
	ID        int       `json:"id" db:"id"`
	CreatedBy int       `json:"created_by" db:"created_by"`
	Topic     string    `json:"topic" db:"topic"`
	MemberIDs []int     `json:"member_ids,omitempty"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Message is one append-only entry within a conversation.
type Message struct {
	ID             int       `json:"id" db:"id"`
	ConversationID int       `json:"conversation_id" db:"conversation_id"`
	SenderID       int       `json:"sender_id" db:"sender_id"`
	Content        string    `json:"content" db:"content"`
	SentAt         time.Time `json:"sent_at" db:"sent_at"`
}
