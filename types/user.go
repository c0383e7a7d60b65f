package types

import "time"

// Roles a user can hold within the counseling center.
const (
	RoleStudent   = "student"
	RoleCounselor = "counselor"
	RoleSecretary = "secretary"
)

// Approval workflow states for a registrant.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDenied   = "denied"
)

// Departments recognized by the center.
var Departments = []string{
	"College of Computer Studies",
	"College of Nursing",
	"College of Education",
	"College of Business Administration",
	"College of Engineering",
	"College of Arts and Sciences",
}

// User represents an account in the system.
// It contains identity, profile, approval workflow state, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Role indicates the user's position within the center:
	// "student", "counselor", or "secretary".
	Role string `json:"role" db:"role"`

	// IsDirector marks a counselor with elevated privileges.
	// Only meaningful when Role is "counselor".
	IsDirector bool `json:"is_director" db:"is_director"`

	// ApprovalStatus is the registrant's workflow state:
	// "pending", "approved", or "denied".
	ApprovalStatus string `json:"approval_status" db:"approval_status"`

	// Department is the college/department the user belongs to.
	Department string `json:"department" db:"department"`

	// Credentials is free-text credentials or biography supplied at registration.
	Credentials string `json:"credentials" db:"credentials"`

	// ContactNumber is the user's phone number.
	ContactNumber string `json:"contact_number" db:"contact_number"`

	// ProfileImageKey references the profile image in object storage.
	ProfileImageKey string `json:"profile_image_key" db:"profile_image_key"`

	// ProofImageKey references the proof-of-identity image in object storage.
	ProofImageKey string `json:"proof_image_key" db:"proof_image_key"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// ApprovedAt and ApprovedBy record the most recent approval decision.
	ApprovedAt *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	ApprovedBy *int       `json:"approved_by,omitempty" db:"approved_by"`

	// DeniedAt and DeniedBy record the most recent denial decision.
	DeniedAt *time.Time `json:"denied_at,omitempty" db:"denied_at"`
	DeniedBy *int       `json:"denied_by,omitempty" db:"denied_by"`

	// EmailNotifiedAt records when the decision email was last sent.
	// Best-effort annotation; may be nil even after a decision.
	EmailNotifiedAt *time.Time `json:"email_notified_at,omitempty" db:"email_notified_at"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsApprovedCounselor reports whether the user may act on approval decisions.
func (u User) IsApprovedCounselor() bool {
	return u.Role == RoleCounselor && u.ApprovalStatus == StatusApproved
}

// ValidRole reports whether role is one of the recognized roles.
func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleCounselor || role == RoleSecretary
}

// ValidDepartment reports whether department is one of the recognized departments.
func ValidDepartment(department string) bool {
	for _, d := range Departments {
		if d == department {
			return true
		}
	}
	return false
}
