package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/FezAmir/projectfinal-api/internal/models"
)

// AdminLogRepository handles the append-only audit trail.
type AdminLogRepository struct {
	db *sqlx.DB
}

// NewAdminLogRepository constructs the repository.
func NewAdminLogRepository(db *sqlx.DB) *AdminLogRepository {
	return &AdminLogRepository{db: db}
}

// Create appends one audit record.
func (r *AdminLogRepository) Create(ctx context.Context, log *models.AdminLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO admin_logs (id, admin_id, action, details, created_at)
        VALUES (:id, :admin_id, :action, :details, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create admin log: %w", err)
	}
	return nil
}

// List returns audit records, newest first.
func (r *AdminLogRepository) List(ctx context.Context, page, pageSize int) ([]models.AdminLog, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT id, admin_id, action, details, created_at FROM admin_logs
        ORDER BY created_at DESC LIMIT %d OFFSET %d`, pageSize, offset)
	var logs []models.AdminLog
	if err := r.db.SelectContext(ctx, &logs, query); err != nil {
		return nil, 0, fmt.Errorf("list admin logs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM admin_logs`); err != nil {
		return nil, 0, fmt.Errorf("count admin logs: %w", err)
	}
	return logs, total, nil
}
