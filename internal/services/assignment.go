package services

import (
	"context"
	"fmt"
	"log"

	"github.com/counseldesk/apiserver/internal/events"
	"github.com/counseldesk/apiserver/types"
)

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, counselorID, secretaryID int) (types.SecretaryAssignment, error)
	Delete(ctx context.Context, id int) error
	ListForCounselor(ctx context.Context, counselorID int) ([]types.SecretaryAssignment, error)
	ListForSecretary(ctx context.Context, secretaryID int) ([]types.SecretaryAssignment, error)
}

// AssignmentUserLookup resolves assignment endpoints to user records.
type AssignmentUserLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// AssignmentService maintains secretary/counselor links.
type AssignmentService struct {
	repo  AssignmentRepository
	users AssignmentUserLookup
	feed  *events.Feed
}

func NewAssignmentService(repo AssignmentRepository, users AssignmentUserLookup, feed *events.Feed) *AssignmentService {
	return &AssignmentService{repo: repo, users: users, feed: feed}
}

// Assign links a secretary to a counselor. Director-only. The duplicate
// check is atomic at the storage layer, so a repeat returns ErrConflict.
func (s *AssignmentService) Assign(ctx context.Context, counselorID, secretaryID int, actor types.User) (types.SecretaryAssignment, error) {
	if !actor.IsApprovedCounselor() || !actor.IsDirector {
		return types.SecretaryAssignment{}, ErrNotAuthorized
	}

	counselor, err := s.users.GetByID(ctx, counselorID)
	if err != nil {
		return types.SecretaryAssignment{}, err
	}
	if counselor.Role != types.RoleCounselor {
		return types.SecretaryAssignment{}, fmt.Errorf("%w: user %d is not a counselor", ErrInvalidInput, counselorID)
	}

	secretary, err := s.users.GetByID(ctx, secretaryID)
	if err != nil {
		return types.SecretaryAssignment{}, err
	}
	if secretary.Role != types.RoleSecretary {
		return types.SecretaryAssignment{}, fmt.Errorf("%w: user %d is not a secretary", ErrInvalidInput, secretaryID)
	}

	assignment, err := s.repo.Create(ctx, counselorID, secretaryID)
	if err != nil {
		return types.SecretaryAssignment{}, err
	}

	if err := s.feed.PublishChange(ctx, events.Change{
		Entity: events.ChannelAssignments,
		Action: events.ActionCreated,
		ID:     assignment.ID,
	}); err != nil {
		log.Printf("change event for assignment %d failed: %v", assignment.ID, err)
	}
	return assignment, nil
}

// Unassign removes a link by id. Not idempotent: a second delete is NotFound.
func (s *AssignmentService) Unassign(ctx context.Context, id int, actor types.User) error {
	if !actor.IsApprovedCounselor() || !actor.IsDirector {
		return ErrNotAuthorized
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.feed.PublishChange(ctx, events.Change{
		Entity: events.ChannelAssignments,
		Action: events.ActionDeleted,
		ID:     id,
	}); err != nil {
		log.Printf("change event for assignment %d failed: %v", id, err)
	}
	return nil
}

func (s *AssignmentService) ListForCounselor(ctx context.Context, counselorID int) ([]types.SecretaryAssignment, error) {
	return s.repo.ListForCounselor(ctx, counselorID)
}

func (s *AssignmentService) ListForSecretary(ctx context.Context, secretaryID int) ([]types.SecretaryAssignment, error) {
	return s.repo.ListForSecretary(ctx, secretaryID)
}
