package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/counseldesk/apiserver/internal/events"
	"github.com/counseldesk/apiserver/internal/mailer"
	"github.com/counseldesk/apiserver/types"
)

// ApprovalUserRepository defines the user-directory operations the
// transition engine needs.
type ApprovalUserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	UpdateStatus(ctx context.Context, id int, newStatus string, actorID int) (types.User, error)
	MarkEmailNotified(ctx context.Context, id int, at time.Time) error
}

// StatusHistoryRepository defines the append-only audit trail operations.
type StatusHistoryRepository interface {
	Append(ctx context.Context, entry types.StatusHistoryEntry) (types.StatusHistoryEntry, error)
	ListForUser(ctx context.Context, userID int) ([]types.StatusHistoryEntry, error)
}

// TransitionResult is the outcome of an approval-status transition. The
// state change and the decision email are independent: a failed email leaves
// EmailDelivered false with a warning, it never rolls the transition back.
type TransitionResult struct {
	User           types.User `json:"user"`
	EmailDelivered bool       `json:"email_delivered"`
	Warning        string     `json:"warning,omitempty"`
}

// ApprovalService moves registrants between approval states, records the
// audit trail, and triggers the decision email.
type ApprovalService struct {
	users   ApprovalUserRepository
	history StatusHistoryRepository
	mailer  mailer.Mailer
	feed    *events.Feed
}

func NewApprovalService(users ApprovalUserRepository, history StatusHistoryRepository, m mailer.Mailer, feed *events.Feed) *ApprovalService {
	return &ApprovalService{users: users, history: history, mailer: m, feed: feed}
}

// Transition applies an approve/deny decision to the target user.
// The actor must be an approved counselor; deciding on another counselor
// additionally requires the director flag. A repeat of the current status
// is rejected without touching the audit trail or sending email.
func (s *ApprovalService) Transition(ctx context.Context, userID int, newStatus string, actor types.User) (TransitionResult, error) {
	if newStatus != types.StatusApproved && newStatus != types.StatusDenied {
		return TransitionResult{}, fmt.Errorf("%w: status must be approved or denied", ErrInvalidInput)
	}
	if !actor.IsApprovedCounselor() {
		return TransitionResult{}, ErrNotAuthorized
	}

	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return TransitionResult{}, err
	}
	if target.Role == types.RoleCounselor && !actor.IsDirector {
		return TransitionResult{}, ErrNotAuthorized
	}

	updated, err := s.users.UpdateStatus(ctx, userID, newStatus, actor.ID)
	if err != nil {
		return TransitionResult{}, err
	}

	// The transition is committed; the audit entry is best-effort.
	if _, err := s.history.Append(ctx, types.StatusHistoryEntry{
		UserID:    updated.ID,
		Status:    newStatus,
		ActorID:   actor.ID,
		ActorName: actor.Name,
	}); err != nil {
		log.Printf("status history append failed for user %d: %v", updated.ID, err)
	}

	result := TransitionResult{User: updated, EmailDelivered: true}

	var sendErr error
	switch newStatus {
	case types.StatusApproved:
		sendErr = s.mailer.SendApproval(ctx, updated.Email, updated.Name)
	case types.StatusDenied:
		sendErr = s.mailer.SendDenial(ctx, updated.Email, updated.Name)
	}
	if sendErr != nil {
		result.EmailDelivered = false
		result.Warning = "status change saved but the decision email could not be delivered"
		log.Printf("decision email for user %d failed: %v", updated.ID, sendErr)
	} else if err := s.users.MarkEmailNotified(ctx, updated.ID, time.Now()); err != nil {
		log.Printf("email annotation for user %d failed: %v", updated.ID, err)
	}

	if err := s.feed.PublishChange(ctx, events.Change{
		Entity: events.ChannelUsers,
		Action: events.ActionUpdated,
		ID:     updated.ID,
	}); err != nil {
		log.Printf("change event for user %d failed: %v", updated.ID, err)
	}

	return result, nil
}

// History returns the audit trail for one user, oldest first.
func (s *ApprovalService) History(ctx context.Context, userID int) ([]types.StatusHistoryEntry, error) {
	return s.history.ListForUser(ctx, userID)
}
