package types

import "time"

// Notification delivery states.
const (
	NotificationDraft = "draft"
	NotificationSent  = "sent"
)

// Target audiences a notification fan-out resolves against.
const (
	TargetAll           = "all"
	TargetCounselors    = "counselors"
	TargetSecretaries   = "secretaries"
	TargetCounselorsSec = "counselors_and_secretaries"
	TargetStudents      = "students"

	// TargetSystem marks automatically generated notifications
	// (appointment cancellations and reschedules) rather than
	// director-composed broadcasts.
	TargetSystem = "system"
)

// Notification is one physical row of a broadcast: a single compose action
// fans out to one row per resolved recipient, all sharing the same BatchID.
type Notification struct {
	ID          int        `json:"id" db:"id"`
	BatchID     string     `json:"batch_id" db:"batch_id"`
	RecipientID int        `json:"recipient_id" db:"recipient_id"`
	AuthorID    int        `json:"author_id" db:"author_id"`
	Content     string     `json:"content" db:"content"`
	Status      string     `json:"status" db:"status"`
	TargetGroup string     `json:"target_group" db:"target_group"`
	SentAt      *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// NotificationGroup is the display-time reconstruction of one logical
// notification from its fan-out rows, keyed by batch id.
type NotificationGroup struct {
	BatchID        string     `json:"batch_id"`
	AuthorID       int        `json:"author_id"`
	Content        string     `json:"content"`
	Status         string     `json:"status"`
	TargetGroup    string     `json:"target_group"`
	RecipientCount int        `json:"recipient_count"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ValidTargetGroup reports whether group is a composer-selectable audience.
// TargetSystem is excluded: system rows are only produced internally.
func ValidTargetGroup(group string) bool {
	switch group {
	case TargetAll, TargetCounselors, TargetSecretaries, TargetCounselorsSec, TargetStudents:
		return true
	}
	return false
}
