package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/counseldesk/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	ListAll(ctx context.Context) ([]types.User, error)
	ListByRoles(ctx context.Context, roles ...string) ([]types.User, error)
	ListByStatus(ctx context.Context, status string) ([]types.User, error)
	UpdateDepartment(ctx context.Context, id int, department string) (types.User, error)
	UpdateImageKey(ctx context.Context, id int, column, key string) error
	MarkEmailNotified(ctx context.Context, id int, at time.Time) error
}

// UserService encapsulates user-directory use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// Register creates a new registrant in the pending state. The approval
// decision and any director flag are never taken from registration input.
func (s *UserService) Register(ctx context.Context, user types.User) (types.User, error) {
	if !types.ValidRole(user.Role) {
		return types.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, user.Role)
	}
	if user.Department != "" && !types.ValidDepartment(user.Department) {
		return types.User{}, fmt.Errorf("%w: unknown department %q", ErrInvalidInput, user.Department)
	}

	user.ApprovalStatus = types.StatusPending
	user.IsDirector = false
	user.ApprovedAt, user.ApprovedBy = nil, nil
	user.DeniedAt, user.DeniedBy = nil, nil
	return s.repo.Create(ctx, user)
}

func (s *UserService) ListAll(ctx context.Context) ([]types.User, error) {
	return s.repo.ListAll(ctx)
}

func (s *UserService) ListPending(ctx context.Context) ([]types.User, error) {
	return s.repo.ListByStatus(ctx, types.StatusPending)
}

// UpdateDepartment reassigns a user's department. Counselor-only action.
func (s *UserService) UpdateDepartment(ctx context.Context, id int, department string, actor types.User) (types.User, error) {
	if !actor.IsApprovedCounselor() {
		return types.User{}, ErrNotAuthorized
	}
	if !types.ValidDepartment(department) {
		return types.User{}, fmt.Errorf("%w: unknown department %q", ErrInvalidInput, department)
	}
	return s.repo.UpdateDepartment(ctx, id, department)
}

// AttachImage stores an uploaded object key on the user's own record.
func (s *UserService) AttachImage(ctx context.Context, userID int, column, key string, actor types.User) error {
	if actor.ID != userID {
		return ErrNotAuthorized
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: object key is required", ErrInvalidInput)
	}
	return s.repo.UpdateImageKey(ctx, userID, column, key)
}
