package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/FezAmir/projectfinal-api/internal/models"
)

// NotificationRepository handles the per-user append-only mailbox.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create appends a notification to the target user's mailbox.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, user_id, role, message, link, competition_id, created_at)
        VALUES (:id, :user_id, :role, :message, :link, :competition_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByUser returns a user's mailbox, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, role models.UserRole, userID string) ([]models.Notification, error) {
	const query = `SELECT id, user_id, role, message, link, competition_id, created_at
        FROM notifications WHERE user_id = $1 AND role = $2 ORDER BY created_at DESC`
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID, role); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// DeleteByUser clears a user's mailbox, returning the number removed.
func (r *NotificationRepository) DeleteByUser(ctx context.Context, role models.UserRole, userID string) (int64, error) {
	const query = `DELETE FROM notifications WHERE user_id = $1 AND role = $2`
	result, err := r.db.ExecContext(ctx, query, userID, role)
	if err != nil {
		return 0, fmt.Errorf("clear notifications: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear notifications rows affected: %w", err)
	}
	return affected, nil
}
