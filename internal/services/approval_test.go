package services

import (
	"context"
	"errors"
	"testing"

	"github.com/counseldesk/apiserver/internal/store"
	"github.com/counseldesk/apiserver/types"
)

func newApprovalFixture(users ...types.User) (*ApprovalService, *fakeUserRepo, *fakeHistoryRepo, *fakeMailer) {
	userRepo := newFakeUserRepo(users...)
	historyRepo := newFakeHistoryRepo()
	m := &fakeMailer{}
	service := NewApprovalService(userRepo, historyRepo, m, disabledFeed())
	return service, userRepo, historyRepo, m
}

func TestTransitionApprove(t *testing.T) {
	director := approvedDirector(1)
	pending := types.User{ID: 2, Username: "newbie", Email: "newbie@example.com", Role: types.RoleStudent, ApprovalStatus: types.StatusPending}
	service, userRepo, _, m := newApprovalFixture(director, pending)

	result, err := service.Transition(context.Background(), pending.ID, types.StatusApproved, director)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if result.User.ApprovalStatus != types.StatusApproved {
		t.Fatalf("expected approved, got %q", result.User.ApprovalStatus)
	}
	if !result.EmailDelivered || result.Warning != "" {
		t.Fatalf("expected clean email delivery, got delivered=%v warning=%q", result.EmailDelivered, result.Warning)
	}
	if result.User.ApprovedAt == nil || result.User.ApprovedBy == nil || *result.User.ApprovedBy != director.ID {
		t.Fatalf("expected approval audit fields to be stamped")
	}

	entries, err := service.History(context.Background(), pending.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != types.StatusApproved || entries[0].ActorID != director.ID {
		t.Fatalf("unexpected history entries: %+v", entries)
	}

	if len(m.approvals) != 1 || m.approvals[0] != pending.Email {
		t.Fatalf("expected approval email to %q, got %v", pending.Email, m.approvals)
	}

	stored, _ := userRepo.GetByID(context.Background(), pending.ID)
	if stored.EmailNotifiedAt == nil {
		t.Fatalf("expected email annotation after successful send")
	}
}

func TestTransitionRepeatIsConflict(t *testing.T) {
	director := approvedDirector(1)
	pending := types.User{ID: 2, Username: "newbie", Email: "newbie@example.com", Role: types.RoleStudent, ApprovalStatus: types.StatusPending}
	service, _, historyRepo, m := newApprovalFixture(director, pending)

	if _, err := service.Transition(context.Background(), pending.ID, types.StatusApproved, director); err != nil {
		t.Fatalf("first transition: %v", err)
	}

	_, err := service.Transition(context.Background(), pending.ID, types.StatusApproved, director)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict on repeat, got %v", err)
	}

	// The rejected repeat must leave no trace.
	if len(historyRepo.entries) != 1 {
		t.Fatalf("expected a single history entry, got %d", len(historyRepo.entries))
	}
	if len(m.approvals) != 1 {
		t.Fatalf("expected a single approval email, got %d", len(m.approvals))
	}
}

func TestTransitionDenyThenApprove(t *testing.T) {
	director := approvedDirector(1)
	pending := types.User{ID: 2, Username: "newbie", Email: "newbie@example.com", Role: types.RoleStudent, ApprovalStatus: types.StatusPending}
	service, _, _, m := newApprovalFixture(director, pending)

	if _, err := service.Transition(context.Background(), pending.ID, types.StatusDenied, director); err != nil {
		t.Fatalf("deny: %v", err)
	}
	result, err := service.Transition(context.Background(), pending.ID, types.StatusApproved, director)
	if err != nil {
		t.Fatalf("approve after deny: %v", err)
	}
	if result.User.ApprovalStatus != types.StatusApproved {
		t.Fatalf("expected approved, got %q", result.User.ApprovalStatus)
	}
	if result.User.DeniedAt == nil {
		t.Fatalf("expected denial stamp to survive the later approval")
	}
	if len(m.denials) != 1 || len(m.approvals) != 1 {
		t.Fatalf("expected one denial and one approval email, got %d/%d", len(m.denials), len(m.approvals))
	}

	entries, _ := service.History(context.Background(), pending.ID)
	if len(entries) != 2 {
		t.Fatalf("expected two history entries, got %d", len(entries))
	}
}

func TestTransitionEmailFailureIsNonFatal(t *testing.T) {
	director := approvedDirector(1)
	pending := types.User{ID: 2, Username: "newbie", Email: "newbie@example.com", Role: types.RoleStudent, ApprovalStatus: types.StatusPending}
	service, userRepo, _, m := newApprovalFixture(director, pending)
	m.fail = true

	result, err := service.Transition(context.Background(), pending.ID, types.StatusApproved, director)
	if err != nil {
		t.Fatalf("transition should survive a failed email: %v", err)
	}
	if result.EmailDelivered {
		t.Fatalf("expected EmailDelivered=false")
	}
	if result.Warning == "" {
		t.Fatalf("expected a warning on failed email")
	}

	stored, _ := userRepo.GetByID(context.Background(), pending.ID)
	if stored.ApprovalStatus != types.StatusApproved {
		t.Fatalf("status change must persist despite email failure")
	}
	if stored.EmailNotifiedAt != nil {
		t.Fatalf("email annotation must not be stamped on a failed send")
	}
}

func TestTransitionAuditFailureIsNonFatal(t *testing.T) {
	director := approvedDirector(1)
	pending := types.User{ID: 2, Username: "newbie", Email: "newbie@example.com", Role: types.RoleStudent, ApprovalStatus: types.StatusPending}
	service, userRepo, historyRepo, _ := newApprovalFixture(director, pending)
	historyRepo.failErr = errors.New("history table unavailable")

	if _, err := service.Transition(context.Background(), pending.ID, types.StatusApproved, director); err != nil {
		t.Fatalf("transition should survive a failed audit append: %v", err)
	}
	stored, _ := userRepo.GetByID(context.Background(), pending.ID)
	if stored.ApprovalStatus != types.StatusApproved {
		t.Fatalf("status change must persist despite audit failure")
	}
}

func TestTransitionAuthorization(t *testing.T) {
	director := approvedDirector(1)
	plainCounselor := approvedCounselor(2)
	pendingCounselor := types.User{ID: 3, Username: "newhire", Role: types.RoleCounselor, ApprovalStatus: types.StatusPending}
	pendingStudent := types.User{ID: 4, Username: "freshman", Role: types.RoleStudent, ApprovalStatus: types.StatusPending}
	student := approvedStudent(5)
	service, _, _, _ := newApprovalFixture(director, plainCounselor, pendingCounselor, pendingStudent, student)

	// Students cannot decide at all.
	if _, err := service.Transition(context.Background(), pendingStudent.ID, types.StatusApproved, student); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for student actor, got %v", err)
	}

	// A non-director counselor cannot decide on another counselor.
	if _, err := service.Transition(context.Background(), pendingCounselor.ID, types.StatusApproved, plainCounselor); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for non-director on counselor, got %v", err)
	}

	// But the same counselor may decide on a student.
	if _, err := service.Transition(context.Background(), pendingStudent.ID, types.StatusApproved, plainCounselor); err != nil {
		t.Fatalf("counselor deciding on student: %v", err)
	}

	// The director may decide on a counselor.
	if _, err := service.Transition(context.Background(), pendingCounselor.ID, types.StatusApproved, director); err != nil {
		t.Fatalf("director deciding on counselor: %v", err)
	}
}

func TestTransitionInvalidStatus(t *testing.T) {
	director := approvedDirector(1)
	pending := types.User{ID: 2, Username: "newbie", Role: types.RoleStudent, ApprovalStatus: types.StatusPending}
	service, _, _, _ := newApprovalFixture(director, pending)

	if _, err := service.Transition(context.Background(), pending.ID, "pending", director); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for status %q, got %v", "pending", err)
	}
}

func TestTransitionMissingUser(t *testing.T) {
	director := approvedDirector(1)
	service, _, _, _ := newApprovalFixture(director)

	if _, err := service.Transition(context.Background(), 42, types.StatusApproved, director); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
