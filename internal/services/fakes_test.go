package services

import (
	"context"
	"fmt"
	"time"

	"github.com/counseldesk/apiserver/internal/events"
	"github.com/counseldesk/apiserver/internal/mailer"
	"github.com/counseldesk/apiserver/internal/store"
	"github.com/counseldesk/apiserver/types"
)

// disabledFeed returns a change feed with no backend so publishes are no-ops.
func disabledFeed() *events.Feed {
	return events.NewFeed(nil)
}

func approvedCounselor(id int) types.User {
	return types.User{ID: id, Username: fmt.Sprintf("counselor%d", id), Role: types.RoleCounselor, ApprovalStatus: types.StatusApproved}
}

func approvedDirector(id int) types.User {
	user := approvedCounselor(id)
	user.IsDirector = true
	return user
}

func approvedSecretary(id int) types.User {
	return types.User{ID: id, Username: fmt.Sprintf("secretary%d", id), Role: types.RoleSecretary, ApprovalStatus: types.StatusApproved}
}

func approvedStudent(id int) types.User {
	return types.User{ID: id, Username: fmt.Sprintf("student%d", id), Role: types.RoleStudent, ApprovalStatus: types.StatusApproved}
}

type fakeUserRepo struct {
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo(users ...types.User) *fakeUserRepo {
	repo := &fakeUserRepo{nextID: 1, users: map[int]types.User{}}
	for _, user := range users {
		if user.ID >= repo.nextID {
			repo.nextID = user.ID + 1
		}
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) ListAll(ctx context.Context) ([]types.User, error) {
	var out []types.User
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, nil
}

func (r *fakeUserRepo) ListByRoles(ctx context.Context, roles ...string) ([]types.User, error) {
	var out []types.User
	for _, user := range r.users {
		for _, role := range roles {
			if user.Role == role {
				out = append(out, user)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ListByStatus(ctx context.Context, status string) ([]types.User, error) {
	var out []types.User
	for _, user := range r.users {
		if user.ApprovalStatus == status {
			out = append(out, user)
		}
	}
	return out, nil
}

// UpdateStatus mirrors the conditional write in the SQL layer: a repeat of
// the current status is a conflict, a missing user is not found.
func (r *fakeUserRepo) UpdateStatus(ctx context.Context, id int, newStatus string, actorID int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if user.ApprovalStatus == newStatus {
		return types.User{}, store.ErrConflict
	}

	now := time.Now()
	user.ApprovalStatus = newStatus
	switch newStatus {
	case types.StatusApproved:
		user.ApprovedAt, user.ApprovedBy = &now, &actorID
	case types.StatusDenied:
		user.DeniedAt, user.DeniedBy = &now, &actorID
	}
	r.users[id] = user
	return user, nil
}

func (r *fakeUserRepo) UpdateDepartment(ctx context.Context, id int, department string) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.Department = department
	r.users[id] = user
	return user, nil
}

func (r *fakeUserRepo) UpdateImageKey(ctx context.Context, id int, column, key string) error {
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	switch column {
	case store.ColumnProfileImage:
		user.ProfileImageKey = key
	case store.ColumnProofImage:
		user.ProofImageKey = key
	default:
		return store.ErrNotFound
	}
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) MarkEmailNotified(ctx context.Context, id int, at time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.EmailNotifiedAt = &at
	r.users[id] = user
	return nil
}

type fakeHistoryRepo struct {
	nextID  int
	entries []types.StatusHistoryEntry
	failErr error
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{nextID: 1}
}

func (r *fakeHistoryRepo) Append(ctx context.Context, entry types.StatusHistoryEntry) (types.StatusHistoryEntry, error) {
	if r.failErr != nil {
		return types.StatusHistoryEntry{}, r.failErr
	}
	entry.ID = r.nextID
	r.nextID++
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *fakeHistoryRepo) ListForUser(ctx context.Context, userID int) ([]types.StatusHistoryEntry, error) {
	var out []types.StatusHistoryEntry
	for _, entry := range r.entries {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type fakeMailer struct {
	approvals []string
	denials   []string
	fail      bool
}

func (m *fakeMailer) SendApproval(ctx context.Context, email, name string) error {
	if m.fail {
		return fmt.Errorf("%w: smtp unreachable", mailer.ErrDelivery)
	}
	m.approvals = append(m.approvals, email)
	return nil
}

func (m *fakeMailer) SendDenial(ctx context.Context, email, name string) error {
	if m.fail {
		return fmt.Errorf("%w: smtp unreachable", mailer.ErrDelivery)
	}
	m.denials = append(m.denials, email)
	return nil
}

type fakeNotificationRepo struct {
	nextID int
	rows   []types.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{nextID: 1}
}

func (r *fakeNotificationRepo) InsertBatch(ctx context.Context, rows []types.Notification) error {
	for _, row := range rows {
		row.ID = r.nextID
		r.nextID++
		r.rows = append(r.rows, row)
	}
	return nil
}

func (r *fakeNotificationRepo) Get(ctx context.Context, id int) (types.Notification, error) {
	for _, row := range r.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return types.Notification{}, store.ErrNotFound
}

func (r *fakeNotificationRepo) ListForRecipient(ctx context.Context, recipientID int) ([]types.Notification, error) {
	var out []types.Notification
	for _, row := range r.rows {
		if row.RecipientID == recipientID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) ListGroups(ctx context.Context) ([]types.NotificationGroup, error) {
	byBatch := map[string]*types.NotificationGroup{}
	var order []string
	for _, row := range r.rows {
		group, ok := byBatch[row.BatchID]
		if !ok {
			group = &types.NotificationGroup{
				BatchID:     row.BatchID,
				AuthorID:    row.AuthorID,
				Content:     row.Content,
				Status:      row.Status,
				TargetGroup: row.TargetGroup,
				SentAt:      row.SentAt,
				CreatedAt:   row.CreatedAt,
			}
			byBatch[row.BatchID] = group
			order = append(order, row.BatchID)
		}
		group.RecipientCount++
	}
	out := make([]types.NotificationGroup, 0, len(order))
	for _, batchID := range order {
		out = append(out, *byBatch[batchID])
	}
	return out, nil
}

func (r *fakeNotificationRepo) Delete(ctx context.Context, id int) error {
	for i, row := range r.rows {
		if row.ID == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeAssignmentRepo struct {
	nextID      int
	assignments []types.SecretaryAssignment
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{nextID: 1}
}

// Create mirrors the unique-index insert: a duplicate pair is a conflict.
func (r *fakeAssignmentRepo) Create(ctx context.Context, counselorID, secretaryID int) (types.SecretaryAssignment, error) {
	for _, assignment := range r.assignments {
		if assignment.CounselorID == counselorID && assignment.SecretaryID == secretaryID {
			return types.SecretaryAssignment{}, store.ErrConflict
		}
	}
	assignment := types.SecretaryAssignment{
		ID:          r.nextID,
		CounselorID: counselorID,
		SecretaryID: secretaryID,
		CreatedAt:   time.Now(),
	}
	r.nextID++
	r.assignments = append(r.assignments, assignment)
	return assignment, nil
}

func (r *fakeAssignmentRepo) Delete(ctx context.Context, id int) error {
	for i, assignment := range r.assignments {
		if assignment.ID == id {
			r.assignments = append(r.assignments[:i], r.assignments[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *fakeAssignmentRepo) ListForCounselor(ctx context.Context, counselorID int) ([]types.SecretaryAssignment, error) {
	var out []types.SecretaryAssignment
	for _, assignment := range r.assignments {
		if assignment.CounselorID == counselorID {
			out = append(out, assignment)
		}
	}
	return out, nil
}

func (r *fakeAssignmentRepo) ListForSecretary(ctx context.Context, secretaryID int) ([]types.SecretaryAssignment, error) {
	var out []types.SecretaryAssignment
	for _, assignment := range r.assignments {
		if assignment.SecretaryID == secretaryID {
			out = append(out, assignment)
		}
	}
	return out, nil
}

type fakeConversationRepo struct {
	nextConversationID int
	nextMessageID      int
	conversations      map[int]types.Conversation
	messages           []types.Message
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		nextConversationID: 1,
		nextMessageID:      1,
		conversations:      map[int]types.Conversation{},
	}
}

func (r *fakeConversationRepo) CreateConversation(ctx context.Context, conversation types.Conversation) (types.Conversation, error) {
	conversation.ID = r.nextConversationID
	r.nextConversationID++
	conversation.CreatedAt = time.Now()
	r.conversations[conversation.ID] = conversation
	return conversation, nil
}

func (r *fakeConversationRepo) GetConversation(ctx context.Context, id int) (types.Conversation, error) {
	conversation, ok := r.conversations[id]
	if !ok {
		return types.Conversation{}, store.ErrNotFound
	}
	return conversation, nil
}

func (r *fakeConversationRepo) ListForUser(ctx context.Context, userID int) ([]types.Conversation, error) {
	var out []types.Conversation
	for _, conversation := range r.conversations {
		for _, memberID := range conversation.MemberIDs {
			if memberID == userID {
				out = append(out, conversation)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeConversationRepo) IsMember(ctx context.Context, conversationID, userID int) (bool, error) {
	conversation, ok := r.conversations[conversationID]
	if !ok {
		return false, nil
	}
	for _, memberID := range conversation.MemberIDs {
		if memberID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeConversationRepo) CreateMessage(ctx context.Context, message types.Message) (types.Message, error) {
	message.ID = r.nextMessageID
	r.nextMessageID++
	message.SentAt = time.Now()
	r.messages = append(r.messages, message)
	return message, nil
}

func (r *fakeConversationRepo) ListMessages(ctx context.Context, conversationID int) ([]types.Message, error) {
	var out []types.Message
	for _, message := range r.messages {
		if message.ConversationID == conversationID {
			out = append(out, message)
		}
	}
	return out, nil
}

type fakeAppointmentRepo struct {
	nextID       int
	appointments map[int]types.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{nextID: 1, appointments: map[int]types.Appointment{}}
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, appointment types.Appointment) (types.Appointment, error) {
	appointment.ID = r.nextID
	r.nextID++
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt
	r.appointments[appointment.ID] = appointment
	return appointment, nil
}

func (r *fakeAppointmentRepo) Get(ctx context.Context, id int) (types.Appointment, error) {
	appointment, ok := r.appointments[id]
	if !ok {
		return types.Appointment{}, store.ErrNotFound
	}
	return appointment, nil
}

func (r *fakeAppointmentRepo) ListForUser(ctx context.Context, userID int) ([]types.Appointment, error) {
	var out []types.Appointment
	for _, appointment := range r.appointments {
		if appointment.CounselorID == userID {
			out = append(out, appointment)
			continue
		}
		for _, attendeeID := range appointment.AttendeeIDs {
			if attendeeID == userID {
				out = append(out, appointment)
				break
			}
		}
	}
	return out, nil
}

// transition mirrors the conditional update in the SQL layer: only a
// scheduled or rescheduled appointment can move, otherwise conflict.
func (r *fakeAppointmentRepo) transition(id int, apply func(*types.Appointment)) (types.Appointment, error) {
	appointment, ok := r.appointments[id]
	if !ok {
		return types.Appointment{}, store.ErrNotFound
	}
	if appointment.Status != types.AppointmentScheduled && appointment.Status != types.AppointmentRescheduled {
		return types.Appointment{}, store.ErrConflict
	}
	apply(&appointment)
	appointment.UpdatedAt = time.Now()
	r.appointments[id] = appointment
	return appointment, nil
}

func (r *fakeAppointmentRepo) Cancel(ctx context.Context, id int) (types.Appointment, error) {
	return r.transition(id, func(a *types.Appointment) {
		a.Status = types.AppointmentCancelled
	})
}

func (r *fakeAppointmentRepo) Reschedule(ctx context.Context, id int, startsAt, endsAt time.Time) (types.Appointment, error) {
	return r.transition(id, func(a *types.Appointment) {
		a.Status = types.AppointmentRescheduled
		a.StartsAt = startsAt
		a.EndsAt = endsAt
	})
}

func (r *fakeAppointmentRepo) Complete(ctx context.Context, id int) (types.Appointment, error) {
	return r.transition(id, func(a *types.Appointment) {
		a.Status = types.AppointmentCompleted
	})
}

type systemNotice struct {
	content      string
	authorID     int
	recipientIDs []int
}

type fakeNotifier struct {
	notices []systemNotice
	failErr error
}

func (n *fakeNotifier) NotifySystem(ctx context.Context, content string, authorID int, recipientIDs []int) (types.NotificationGroup, error) {
	if n.failErr != nil {
		return types.NotificationGroup{}, n.failErr
	}
	n.notices = append(n.notices, systemNotice{content: content, authorID: authorID, recipientIDs: recipientIDs})
	return types.NotificationGroup{RecipientCount: len(recipientIDs)}, nil
}
