package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/FezAmir/projectfinal-api/internal/models"
	appErrors "github.com/FezAmir/projectfinal-api/pkg/errors"
)

type profileRepository interface {
	FindByID(ctx context.Context, role models.UserRole, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, role models.UserRole, id, fullName, picture string, updatedAt time.Time) error
}

// UpdateProfileRequest carries editable profile fields. Picture is a stored
// reference; the upload itself happens elsewhere.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Picture  string `json:"picture"`
}

// UserService covers profile reads and edits for any role.
type UserService struct {
	repo      profileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(repo profileRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// Me returns the acting user's profile.
func (s *UserService) Me(ctx context.Context, actor models.Actor) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, actor.Role, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// UpdateProfile edits the acting user's display fields.
func (s *UserService) UpdateProfile(ctx context.Context, actor models.Actor, req UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if _, err := s.Me(ctx, actor); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(ctx, actor.Role, actor.ID, req.FullName, req.Picture, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return s.Me(ctx, actor)
}
