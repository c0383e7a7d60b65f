package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/counseldesk/apiserver/internal/events"
	"github.com/counseldesk/apiserver/internal/store"
	"github.com/counseldesk/apiserver/types"
	"github.com/google/uuid"
)

// ErrEmptyAudience is returned when a send resolves to zero recipients.
var ErrEmptyAudience = fmt.Errorf("%w: audience resolves to no recipients", ErrInvalidInput)

// NotificationRepository defines persistence operations for notifications.
type NotificationRepository interface {
	InsertBatch(ctx context.Context, rows []types.Notification) error
	Get(ctx context.Context, id int) (types.Notification, error)
	ListForRecipient(ctx context.Context, recipientID int) ([]types.Notification, error)
	ListGroups(ctx context.Context) ([]types.NotificationGroup, error)
	Delete(ctx context.Context, id int) error
}

// AudienceResolver resolves target groups against the user directory.
type AudienceResolver interface {
	ListAll(ctx context.Context) ([]types.User, error)
	ListByRoles(ctx context.Context, roles ...string) ([]types.User, error)
}

// NotificationService composes broadcasts and fans them out, one row per
// resolved recipient, all rows stamped with a shared batch id.
type NotificationService struct {
	repo  NotificationRepository
	users AudienceResolver
	feed  *events.Feed
}

func NewNotificationService(repo NotificationRepository, users AudienceResolver, feed *events.Feed) *NotificationService {
	return &NotificationService{repo: repo, users: users, feed: feed}
}

// Compose creates a director broadcast. A draft is a single row addressed to
// the author; sending fans out to the audience resolved at call time, so
// users registered later never receive it retroactively.
func (s *NotificationService) Compose(ctx context.Context, content, targetGroup, status string, author types.User) (types.NotificationGroup, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return types.NotificationGroup{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if !types.ValidTargetGroup(targetGroup) {
		return types.NotificationGroup{}, fmt.Errorf("%w: unknown target group %q", ErrInvalidInput, targetGroup)
	}
	if status != types.NotificationDraft && status != types.NotificationSent {
		return types.NotificationGroup{}, fmt.Errorf("%w: status must be draft or sent", ErrInvalidInput)
	}
	if !author.IsApprovedCounselor() || !author.IsDirector {
		return types.NotificationGroup{}, ErrNotAuthorized
	}

	batchID := uuid.NewString()
	now := time.Now()

	var rows []types.Notification
	var sentAt *time.Time
	if status == types.NotificationSent {
		sentAt = &now
		recipients, err := s.resolveAudience(ctx, targetGroup)
		if err != nil {
			return types.NotificationGroup{}, err
		}
		if len(recipients) == 0 {
			return types.NotificationGroup{}, ErrEmptyAudience
		}
		for _, recipient := range recipients {
			rows = append(rows, types.Notification{
				BatchID:     batchID,
				RecipientID: recipient.ID,
				AuthorID:    author.ID,
				Content:     content,
				Status:      status,
				TargetGroup: targetGroup,
				SentAt:      sentAt,
				CreatedAt:   now,
			})
		}
	} else {
		rows = append(rows, types.Notification{
			BatchID:     batchID,
			RecipientID: author.ID,
			AuthorID:    author.ID,
			Content:     content,
			Status:      status,
			TargetGroup: targetGroup,
			CreatedAt:   now,
		})
	}

	if err := s.repo.InsertBatch(ctx, rows); err != nil {
		return types.NotificationGroup{}, err
	}

	if err := s.feed.PublishChange(ctx, events.Change{
		Entity: events.ChannelNotifications,
		Action: events.ActionCreated,
	}); err != nil {
		log.Printf("change event for notification batch %s failed: %v", batchID, err)
	}

	return types.NotificationGroup{
		BatchID:        batchID,
		AuthorID:       author.ID,
		Content:        content,
		Status:         status,
		TargetGroup:    targetGroup,
		RecipientCount: len(rows),
		SentAt:         sentAt,
		CreatedAt:      now,
	}, nil
}

// NotifySystem fans out an automatically generated notification
// (cancellations, reschedules) to an explicit recipient list.
func (s *NotificationService) NotifySystem(ctx context.Context, content string, authorID int, recipientIDs []int) (types.NotificationGroup, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return types.NotificationGroup{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len(recipientIDs) == 0 {
		return types.NotificationGroup{}, ErrEmptyAudience
	}

	batchID := uuid.NewString()
	now := time.Now()

	rows := make([]types.Notification, 0, len(recipientIDs))
	for _, recipientID := range recipientIDs {
		rows = append(rows, types.Notification{
			BatchID:     batchID,
			RecipientID: recipientID,
			AuthorID:    authorID,
			Content:     content,
			Status:      types.NotificationSent,
			TargetGroup: types.TargetSystem,
			SentAt:      &now,
			CreatedAt:   now,
		})
	}

	if err := s.repo.InsertBatch(ctx, rows); err != nil {
		return types.NotificationGroup{}, err
	}

	if err := s.feed.PublishChange(ctx, events.Change{
		Entity: events.ChannelNotifications,
		Action: events.ActionCreated,
	}); err != nil {
		log.Printf("change event for notification batch %s failed: %v", batchID, err)
	}

	return types.NotificationGroup{
		BatchID:        batchID,
		AuthorID:       authorID,
		Content:        content,
		Status:         types.NotificationSent,
		TargetGroup:    types.TargetSystem,
		RecipientCount: len(rows),
		SentAt:         &now,
		CreatedAt:      now,
	}, nil
}

// ListGrouped returns logical notifications reconstructed by batch id.
func (s *NotificationService) ListGrouped(ctx context.Context) ([]types.NotificationGroup, error) {
	return s.repo.ListGroups(ctx)
}

// ListForRecipient returns the rows addressed to one user.
func (s *NotificationService) ListForRecipient(ctx context.Context, recipientID int) ([]types.Notification, error) {
	return s.repo.ListForRecipient(ctx, recipientID)
}

// DeleteDraft removes a single draft row. Sent notifications are immutable.
func (s *NotificationService) DeleteDraft(ctx context.Context, id int, actor types.User) error {
	notification, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if notification.Status != types.NotificationDraft {
		return fmt.Errorf("%w: sent notifications cannot be deleted", store.ErrConflict)
	}
	if notification.AuthorID != actor.ID {
		return ErrNotAuthorized
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.feed.PublishChange(ctx, events.Change{
		Entity: events.ChannelNotifications,
		Action: events.ActionDeleted,
		ID:     id,
	}); err != nil {
		log.Printf("change event for notification %d failed: %v", id, err)
	}
	return nil
}

func (s *NotificationService) resolveAudience(ctx context.Context, targetGroup string) ([]types.User, error) {
	switch targetGroup {
	case types.TargetAll:
		return s.users.ListAll(ctx)
	case types.TargetCounselors:
		return s.users.ListByRoles(ctx, types.RoleCounselor)
	case types.TargetSecretaries:
		return s.users.ListByRoles(ctx, types.RoleSecretary)
	case types.TargetStudents:
		return s.users.ListByRoles(ctx, types.RoleStudent)
	case types.TargetCounselorsSec:
		return s.users.ListByRoles(ctx, types.RoleCounselor, types.RoleSecretary)
	default:
		return nil, fmt.Errorf("%w: unknown target group %q", ErrInvalidInput, targetGroup)
	}
}
