package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/FezAmir/projectfinal-api/internal/models"
	appErrors "github.com/FezAmir/projectfinal-api/pkg/errors"
)

type notificationRepository interface {
	ListByUser(ctx context.Context, role models.UserRole, userID string) ([]models.Notification, error)
	DeleteByUser(ctx context.Context, role models.UserRole, userID string) (int64, error)
}

// NotificationService exposes the per-user mailbox. Writes happen inside the
// moderation workflow; this service only reads and clears.
type NotificationService struct {
	repo   notificationRepository
	logger *zap.Logger
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(repo notificationRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, logger: logger}
}

// List returns the acting user's mailbox, newest first.
func (s *NotificationService) List(ctx context.Context, actor models.Actor) ([]models.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, actor.Role, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// Clear empties the acting user's mailbox and returns the number removed.
func (s *NotificationService) Clear(ctx context.Context, actor models.Actor) (int64, error) {
	removed, err := s.repo.DeleteByUser(ctx, actor.Role, actor.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear notifications")
	}
	return removed, nil
}
