package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-api/internal/cache"
	"catalog-api/internal/domain"
	"catalog-api/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrCategoryConflict = errors.New("category with this name already exists")
)

// CategoryInput carries the caller-supplied fields for creating or
// updating a category.
type CategoryInput struct {
	Name string
}

// CategoryService defines the interface for category business logic
type CategoryService interface {
	FindAll(ctx context.Context, filter repository.CategoryFilter, page, pageSize int) ([]*domain.Category, int, error)
	FindByName(ctx context.Context, name string) (*domain.Category, error)
	FindByID(ctx context.Context, id int64) (*domain.Category, error)
	Save(ctx context.Context, input CategoryInput) (*domain.Category, error)
	Update(ctx context.Context, id int64, input CategoryInput) (*domain.Category, error)
	DeleteByID(ctx context.Context, id int64) error
}

type categoryService struct {
	repo   repository.CategoryRepository
	cache  cache.Store[*domain.Category]
	logger *zap.Logger
}

// NewCategoryService creates a new instance of CategoryService. The cache
// is owned by the service and keyed by category id; it is only touched
// after a store operation has committed.
func NewCategoryService(
	repo repository.CategoryRepository,
	cache cache.Store[*domain.Category],
	logger *zap.Logger,
) CategoryService {
	return &categoryService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

func categoryCacheKey(id int64) string {
	return fmt.Sprintf("category:id:%d", id)
}

// FindAll retrieves categories matching the optional name substring and
// is_deleted filters, paged and ordered by id ascending.
func (s *categoryService) FindAll(ctx context.Context, filter repository.CategoryFilter, page, pageSize int) ([]*domain.Category, int, error) {
	categories, total, err := s.repo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, total, nil
}

// FindByName retrieves a category by exact name, case-insensitively
func (s *categoryService) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	return s.repo.FindByName(ctx, name)
}

// FindByID retrieves a category by id, serving from the cache when it can
func (s *categoryService) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	if category, ok := s.cache.Get(categoryCacheKey(id)); ok {
		return category, nil
	}

	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(categoryCacheKey(id), category)
	return category, nil
}

// Save creates a new category. A non-deleted category with the same name,
// compared case-insensitively, makes the save fail with a conflict.
func (s *categoryService) Save(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	existing, err := s.repo.FindByName(ctx, input.Name)
	if err != nil && !errors.Is(err, repository.ErrCategoryNotFound) {
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}
	if existing != nil && !existing.IsDeleted {
		return nil, fmt.Errorf("category %q: %w", input.Name, ErrCategoryConflict)
	}

	now := time.Now()
	category := &domain.Category{
		Name:      input.Name,
		CreatedAt: now,
		UpdatedAt: now,
		IsDeleted: false,
	}

	if err := s.repo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.cache.Set(categoryCacheKey(category.ID), category)

	s.logger.Info("Category created",
		zap.Int64("category_id", category.ID),
		zap.String("name", category.Name),
	)

	return category, nil
}

// Update renames a category. The collision check excludes the category
// itself, so re-saving the same name (or a case variant of it) succeeds.
func (s *categoryService) Update(ctx context.Context, id int64, input CategoryInput) (*domain.Category, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByName(ctx, input.Name)
	if err != nil && !errors.Is(err, repository.ErrCategoryNotFound) {
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}
	if existing != nil && existing.ID != id && !existing.IsDeleted {
		return nil, fmt.Errorf("category %q: %w", input.Name, ErrCategoryConflict)
	}

	updated := *current
	updated.Name = input.Name
	updated.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.cache.Set(categoryCacheKey(id), &updated)

	return &updated, nil
}

// DeleteByID removes a category. The delete is rejected with a conflict
// while any product still references the category; the cache entry is
// only evicted once the store delete has succeeded.
func (s *categoryService) DeleteByID(ctx context.Context, id int64) error {
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryInUse) {
			s.logger.Warn("Refusing to delete category in use", zap.Int64("category_id", id))
		}
		return err
	}

	s.cache.Delete(categoryCacheKey(id))

	s.logger.Info("Category deleted", zap.Int64("category_id", id))

	return nil
}
