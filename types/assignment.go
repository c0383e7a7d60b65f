package types

import "time"

// SecretaryAssignment links a secretary to a counselor they assist.
// A counselor may have several secretaries and vice versa.
type SecretaryAssignment struct {
	ID          int       `json:"id" db:"id"`
	CounselorID int       `json:"counselor_id" db:"counselor_id"`
	SecretaryID int       `json:"secretary_id" db:"secretary_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
