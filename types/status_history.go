package types

import "time"

// StatusHistoryEntry is an immutable audit record of one approval-status
// transition. The acting user's name is denormalized at write time so the
// trail stays readable even if the actor's profile later changes.
type StatusHistoryEntry struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Status    string    `json:"status" db:"status"`
	ActorID   int       `json:"actor_id" db:"actor_id"`
	ActorName string    `json:"actor_name" db:"actor_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
