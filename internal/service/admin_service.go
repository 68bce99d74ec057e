package service

import (
	"context"

	"poultrymarket/internal/model"
	"poultrymarket/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// adminService implements AdminService.
type adminService struct {
	users  repository.UserRepository
	stats  repository.StatsRepository
	logger zerolog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(userRepo repository.UserRepository, statsRepo repository.StatsRepository, logger zerolog.Logger) AdminService {
	return &adminService{
		users:  userRepo,
		stats:  statsRepo,
		logger: logger.With().Str("service", "admin").Logger(),
	}
}

func (s *adminService) ListUsers(ctx context.Context, filter model.UserFilter) ([]model.User, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, model.Validationf("unknown role %q", filter.Role)
	}
	if filter.Status != "" && filter.Status != model.UserActive && filter.Status != model.UserSuspended {
		return nil, model.Validationf("unknown status %q", filter.Status)
	}
	return s.users.List(ctx, filter)
}

// UpdateUser changes a user's role or status. Admins cannot demote or suspend themselves.
func (s *adminService) UpdateUser(ctx context.Context, admin *model.User, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	if req.Role == nil && req.Status == nil {
		return nil, model.Validationf("nothing to update")
	}
	if req.Role != nil && !req.Role.Valid() {
		return nil, model.Validationf("unknown role %q", *req.Role)
	}
	if req.Status != nil && *req.Status != model.UserActive && *req.Status != model.UserSuspended {
		return nil, model.Validationf("unknown status %q", *req.Status)
	}

	if id == admin.ID {
		if req.Status != nil && *req.Status == model.UserSuspended {
			return nil, model.Validationf("you cannot suspend your own account")
		}
		if req.Role != nil && *req.Role != model.RoleAdmin {
			return nil, model.Validationf("you cannot change your own role")
		}
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}

	updated := *user
	if req.Role != nil {
		updated.Role = *req.Role
	}
	if req.Status != nil {
		updated.Status = *req.Status
	}
	if err := s.users.Update(ctx, &updated); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", id.String()).
		Str("admin_id", admin.ID.String()).
		Str("role", string(updated.Role)).
		Str("status", string(updated.Status)).
		Msg("user updated")

	return &updated, nil
}

func (s *adminService) Stats(ctx context.Context) (*model.Stats, error) {
	return s.stats.Stats(ctx)
}
