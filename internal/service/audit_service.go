package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/FezAmir/projectfinal-api/internal/models"
	appErrors "github.com/FezAmir/projectfinal-api/pkg/errors"
)

type auditReader interface {
	List(ctx context.Context, page, pageSize int) ([]models.AdminLog, int, error)
}

// AuditService exposes the admin action trail to admins.
type AuditService struct {
	repo   auditReader
	logger *zap.Logger
}

// NewAuditService constructs AuditService.
func NewAuditService(repo auditReader, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// List returns audit records for admin review.
func (s *AuditService) List(ctx context.Context, actor models.Actor, page, pageSize int) ([]models.AdminLog, *models.Pagination, error) {
	if !actor.IsAdmin() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	logs, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list admin logs")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return logs, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}
