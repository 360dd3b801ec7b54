package service

import (
	"context"

	"github.com/FezAmir/projectfinal-api/internal/models"
	appErrors "github.com/FezAmir/projectfinal-api/pkg/errors"
)

type categoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
}

// CategoryService reads the static category catalog.
type CategoryService struct {
	repo categoryRepository
}

// NewCategoryService constructs CategoryService.
func NewCategoryService(repo categoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// List returns all categories.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return categories, nil
}
