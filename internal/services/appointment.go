package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/counseldesk/apiserver/internal/events"
	"github.com/counseldesk/apiserver/types"
)

// AppointmentRepository defines persistence operations for appointments.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment types.Appointment) (types.Appointment, error)
	Get(ctx context.Context, id int) (types.Appointment, error)
	ListForUser(ctx context.Context, userID int) ([]types.Appointment, error)
	Cancel(ctx context.Context, id int) (types.Appointment, error)
	Reschedule(ctx context.Context, id int, startsAt, endsAt time.Time) (types.Appointment, error)
	Complete(ctx context.Context, id int) (types.Appointment, error)
}

// AppointmentUserLookup resolves appointment participants to user records.
type AppointmentUserLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// SystemNotifier fans out automatically generated notifications.
type SystemNotifier interface {
	NotifySystem(ctx context.Context, content string, authorID int, recipientIDs []int) (types.NotificationGroup, error)
}

// AppointmentService schedules counseling sessions and produces system
// notifications when they are cancelled or moved.
type AppointmentService struct {
	repo     AppointmentRepository
	users    AppointmentUserLookup
	notifier SystemNotifier
	feed     *events.Feed
}

func NewAppointmentService(repo AppointmentRepository, users AppointmentUserLookup, notifier SystemNotifier, feed *events.Feed) *AppointmentService {
	return &AppointmentService{repo: repo, users: users, notifier: notifier, feed: feed}
}

const appointmentTimeFormat = "Monday, 2 Jan 2006 at 3:04 PM"

func canManageAppointments(actor types.User) bool {
	if actor.ApprovalStatus != types.StatusApproved {
		return false
	}
	return actor.Role == types.RoleCounselor || actor.Role == types.RoleSecretary
}

// Schedule books an appointment with a counselor.
func (s *AppointmentService) Schedule(ctx context.Context, appointment types.Appointment, actor types.User) (types.Appointment, error) {
	if !canManageAppointments(actor) {
		return types.Appointment{}, ErrNotAuthorized
	}
	if appointment.Kind != types.AppointmentIndividual && appointment.Kind != types.AppointmentGroup {
		return types.Appointment{}, fmt.Errorf("%w: kind must be individual or group", ErrInvalidInput)
	}
	if appointment.StartsAt.IsZero() || appointment.EndsAt.IsZero() || !appointment.EndsAt.After(appointment.StartsAt) {
		return types.Appointment{}, fmt.Errorf("%w: appointment must end after it starts", ErrInvalidInput)
	}
	if len(appointment.AttendeeIDs) == 0 {
		return types.Appointment{}, fmt.Errorf("%w: at least one attendee is required", ErrInvalidInput)
	}
	if appointment.Kind == types.AppointmentIndividual && len(appointment.AttendeeIDs) != 1 {
		return types.Appointment{}, fmt.Errorf("%w: individual appointments take exactly one attendee", ErrInvalidInput)
	}

	if appointment.CounselorID == 0 && actor.Role == types.RoleCounselor {
		appointment.CounselorID = actor.ID
	}
	counselor, err := s.users.GetByID(ctx, appointment.CounselorID)
	if err != nil {
		return types.Appointment{}, err
	}
	if counselor.Role != types.RoleCounselor {
		return types.Appointment{}, fmt.Errorf("%w: user %d is not a counselor", ErrInvalidInput, appointment.CounselorID)
	}
	for _, attendeeID := range appointment.AttendeeIDs {
		if _, err := s.users.GetByID(ctx, attendeeID); err != nil {
			return types.Appointment{}, err
		}
	}

	appointment.Status = types.AppointmentScheduled
	created, err := s.repo.Create(ctx, appointment)
	if err != nil {
		return types.Appointment{}, err
	}

	s.publish(ctx, events.ActionCreated, created.ID)
	return created, nil
}

// Cancel marks the appointment cancelled and notifies every attendee.
// Cancelling a cancelled or completed appointment is a conflict.
func (s *AppointmentService) Cancel(ctx context.Context, id int, actor types.User) (types.Appointment, error) {
	if !canManageAppointments(actor) {
		return types.Appointment{}, ErrNotAuthorized
	}

	appointment, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return types.Appointment{}, err
	}

	content := fmt.Sprintf("Your appointment on %s has been cancelled.",
		appointment.StartsAt.Format(appointmentTimeFormat))
	if _, err := s.notifier.NotifySystem(ctx, content, appointment.CounselorID, appointment.AttendeeIDs); err != nil {
		log.Printf("cancellation notice for appointment %d failed: %v", appointment.ID, err)
	}

	s.publish(ctx, events.ActionUpdated, appointment.ID)
	return appointment, nil
}

// Reschedule moves the appointment and notifies every attendee.
func (s *AppointmentService) Reschedule(ctx context.Context, id int, startsAt, endsAt time.Time, actor types.User) (types.Appointment, error) {
	if !canManageAppointments(actor) {
		return types.Appointment{}, ErrNotAuthorized
	}
	if startsAt.IsZero() || endsAt.IsZero() || !endsAt.After(startsAt) {
		return types.Appointment{}, fmt.Errorf("%w: appointment must end after it starts", ErrInvalidInput)
	}

	appointment, err := s.repo.Reschedule(ctx, id, startsAt, endsAt)
	if err != nil {
		return types.Appointment{}, err
	}

	content := fmt.Sprintf("Your appointment has been moved to %s.",
		appointment.StartsAt.Format(appointmentTimeFormat))
	if _, err := s.notifier.NotifySystem(ctx, content, appointment.CounselorID, appointment.AttendeeIDs); err != nil {
		log.Printf("reschedule notice for appointment %d failed: %v", appointment.ID, err)
	}

	s.publish(ctx, events.ActionUpdated, appointment.ID)
	return appointment, nil
}

// Complete marks the appointment completed. No notification is produced.
func (s *AppointmentService) Complete(ctx context.Context, id int, actor types.User) (types.Appointment, error) {
	if !canManageAppointments(actor) {
		return types.Appointment{}, ErrNotAuthorized
	}
	appointment, err := s.repo.Complete(ctx, id)
	if err != nil {
		return types.Appointment{}, err
	}
	s.publish(ctx, events.ActionUpdated, appointment.ID)
	return appointment, nil
}

func (s *AppointmentService) Get(ctx context.Context, id int) (types.Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *AppointmentService) ListForUser(ctx context.Context, userID int) ([]types.Appointment, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *AppointmentService) publish(ctx context.Context, action string, id int) {
	if err := s.feed.PublishChange(ctx, events.Change{
		Entity: events.ChannelAppointments,
		Action: action,
		ID:     id,
	}); err != nil {
		log.Printf("change event for appointment %d failed: %v", id, err)
	}
}
