package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-api/internal/cache"
	"catalog-api/internal/domain"
	"catalog-api/internal/repository"
	"catalog-api/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidProductUUID = errors.New("invalid product uuid")
)

// CreateProductInput carries the caller-supplied fields for creating a
// product. Category is the category name, resolved at save time.
type CreateProductInput struct {
	Brand       string
	Model       string
	Description string
	Price       float64
	Stock       int
	Category    string
}

// UpdateProductInput carries a partial update. Nil fields keep the
// current value; an empty Category keeps the current snapshot.
type UpdateProductInput struct {
	Brand       *string
	Model       *string
	Description *string
	Price       *float64
	Stock       *int
	Category    string
}

// ProductService defines the interface for product business logic
type ProductService interface {
	FindAll(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	FindByUUID(ctx context.Context, raw string) (*domain.Product, error)
	Save(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	Update(ctx context.Context, id int64, input UpdateProductInput) (*domain.Product, error)
	DeleteByID(ctx context.Context, id int64) error
	UpdateImage(ctx context.Context, id int64, image []byte) (*domain.Product, error)
}

type productService struct {
	repo       repository.ProductRepository
	categories CategoryService
	blobs      storage.BlobStore
	cache      cache.Store[*domain.Product]
	logger     *zap.Logger
}

// NewProductService creates a new instance of ProductService. Products
// are cached under both their id and their uuid; every write path
// refreshes both entries and every delete evicts both, so a stale
// snapshot can never be served through the other key.
func NewProductService(
	repo repository.ProductRepository,
	categories CategoryService,
	blobs storage.BlobStore,
	cache cache.Store[*domain.Product],
	logger *zap.Logger,
) ProductService {
	return &productService{
		repo:       repo,
		categories: categories,
		blobs:      blobs,
		cache:      cache,
		logger:     logger,
	}
}

func productIDKey(id int64) string {
	return fmt.Sprintf("product:id:%d", id)
}

func productUUIDKey(id uuid.UUID) string {
	return "product:uuid:" + id.String()
}

func (s *productService) cacheProduct(p *domain.Product) {
	s.cache.Set(productIDKey(p.ID), p)
	s.cache.Set(productUUIDKey(p.UUID), p)
}

func (s *productService) evictProduct(p *domain.Product) {
	s.cache.Delete(productIDKey(p.ID))
	s.cache.Delete(productUUIDKey(p.UUID))
}

// FindAll retrieves products matching the optional brand and category
// substring filters. This is a full scan of the catalog by design.
func (s *productService) FindAll(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// FindByID retrieves a product by id, serving from the cache when it can
func (s *productService) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	if product, ok := s.cache.Get(productIDKey(id)); ok {
		return product, nil
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheProduct(product)
	return product, nil
}

// FindByUUID retrieves a product by its external uuid. A string that does
// not parse as a uuid is a bad request, distinct from a valid uuid with
// no match, and never reaches the store.
func (s *productService) FindByUUID(ctx context.Context, raw string) (*domain.Product, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProductUUID, raw)
	}

	if product, ok := s.cache.Get(productUUIDKey(id)); ok {
		return product, nil
	}

	product, err := s.repo.FindByUUID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheProduct(product)
	return product, nil
}

// Save creates a new product. The category is resolved by name through
// the category service; an unknown name fails the save before anything
// is written. The new product gets a fresh uuid and the default image.
func (s *productService) Save(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	category, err := s.categories.FindByName(ctx, input.Category)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		UUID:        uuid.New(),
		Brand:       input.Brand,
		Model:       input.Model,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		Image:       domain.DefaultProductImage,
		CreatedAt:   now,
		UpdatedAt:   now,
		IsDeleted:   false,
		Category:    *category,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.cacheProduct(product)

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("uuid", product.UUID.String()),
		zap.String("category", product.Category.Name),
	)

	return product, nil
}

// Update applies a partial update. The category snapshot is re-resolved
// only when a new category name is supplied; otherwise the snapshot
// taken at the last write is retained as-is.
func (s *productService) Update(ctx context.Context, id int64, input UpdateProductInput) (*domain.Product, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	category := current.Category
	if input.Category != "" {
		resolved, err := s.categories.FindByName(ctx, input.Category)
		if err != nil {
			return nil, err
		}
		category = *resolved
	}

	updated := *current
	updated.Category = category
	if input.Brand != nil {
		updated.Brand = *input.Brand
	}
	if input.Model != nil {
		updated.Model = *input.Model
	}
	if input.Description != nil {
		updated.Description = *input.Description
	}
	if input.Price != nil {
		updated.Price = *input.Price
	}
	if input.Stock != nil {
		updated.Stock = *input.Stock
	}
	updated.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.cacheProduct(&updated)

	return &updated, nil
}

// DeleteByID removes a product and then its image blob. The record delete
// is authoritative: a blob delete failure is logged and absorbed, leaving
// an orphaned blob rather than an undeletable product.
func (s *productService) DeleteByID(ctx context.Context, id int64) error {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.evictProduct(current)

	if current.Image != domain.DefaultProductImage {
		if err := s.blobs.Delete(ctx, current.Image); err != nil {
			s.logger.Warn("Failed to delete product image blob",
				zap.Int64("product_id", id),
				zap.String("image", current.Image),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Product deleted", zap.Int64("product_id", id))

	return nil
}

// UpdateImage stores the new image bytes and repoints the product at the
// resulting key. The superseded blob is intentionally left in place;
// DeleteByID is the only path that removes blobs.
func (s *productService) UpdateImage(ctx context.Context, id int64, image []byte) (*domain.Product, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := s.blobs.Store(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("failed to store product image: %w", err)
	}

	updated := *current
	updated.Image = key
	updated.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update product image: %w", err)
	}

	s.cacheProduct(&updated)

	s.logger.Info("Product image updated",
		zap.Int64("product_id", id),
		zap.String("image", key),
	)

	return &updated, nil
}
