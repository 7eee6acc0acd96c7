package products

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
	pkgerrors "github.com/lucasortega/cartwheel-backend/pkg/errors"
	"github.com/lucasortega/cartwheel-backend/pkg/logger"
	"github.com/lucasortega/cartwheel-backend/pkg/validate"
)

// CreateProductRequest is the payload for adding a catalog listing.
type CreateProductRequest struct {
	Name          string           `json:"name" validate:"required,max=255"`
	Description   string           `json:"description"`
	CategoryID    *uint            `json:"category_id,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	StockQuantity int              `json:"stock_quantity" validate:"gte=0"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

// UpdateProductRequest carries the mutable product fields. Stock moves
// through AdjustStock instead so concurrent checkouts are never overwritten.
type UpdateProductRequest struct {
	Name          string           `json:"name" validate:"required,max=255"`
	Description   string           `json:"description"`
	CategoryID    *uint            `json:"category_id,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	IsActive      bool             `json:"is_active"`
}

// AddImageRequest attaches an image to a product.
type AddImageRequest struct {
	URL       string `json:"url" validate:"required,url"`
	IsPrimary bool   `json:"is_primary"`
}

type productRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uint) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, params ListParams) ([]models.Product, string, int64, error)
	AdjustStock(ctx context.Context, id uint, delta int) (bool, error)
	AddImage(ctx context.Context, image *models.ProductImage) error
	FindImage(ctx context.Context, productID, imageID uint) (*models.ProductImage, error)
	SetPrimaryImage(ctx context.Context, productID, imageID uint) error
	RemoveImage(ctx context.Context, productID, imageID uint) error
}

type categoryFinder interface {
	FindByID(ctx context.Context, id uint) (*models.Category, error)
}

// Service exposes catalog business rules.
type Service interface {
	Create(ctx context.Context, req CreateProductRequest) (*ProductDTO, error)
	Update(ctx context.Context, id uint, req UpdateProductRequest) (*ProductDTO, error)
	Get(ctx context.Context, id uint) (*ProductDTO, error)
	List(ctx context.Context, params ListParams) (*ProductPage, error)
	Delete(ctx context.Context, id uint) error
	AdjustStock(ctx context.Context, id uint, delta int) (*ProductDTO, error)
	AddImage(ctx context.Context, productID uint, req AddImageRequest) (*ProductDTO, error)
	SetPrimaryImage(ctx context.Context, productID, imageID uint) (*ProductDTO, error)
	RemoveImage(ctx context.Context, productID, imageID uint) error
}

// ServiceParams groups dependencies for the products service. Cache and
// Logger are optional; Categories is only consulted when a request references
// a category.
type ServiceParams struct {
	Repo       productRepository
	Categories categoryFinder
	Cache      productCache
	CacheTTL   time.Duration
	Logger     *logger.Logger
}

type service struct {
	repo       productRepository
	categories categoryFinder
	cache      productCache
	cacheTTL   time.Duration
	logg       *logger.Logger
}

// NewService builds a products service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "products repo is required")
	}
	if params.Categories == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "category finder is required")
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &service{
		repo:       params.Repo,
		categories: params.Categories,
		cache:      params.Cache,
		cacheTTL:   ttl,
		logg:       params.Logger,
	}, nil
}

// Create validates pricing invariants and inserts the listing.
func (s *service) Create(ctx context.Context, req CreateProductRequest) (*ProductDTO, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if err := validatePricing(req.Price, req.DiscountPrice); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	product := &models.Product{
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		StockQuantity: req.StockQuantity,
		IsActive:      isActive,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return FromModel(product), nil
}

// Update mutates the listing and drops the cached copy.
func (s *service) Update(ctx context.Context, id uint, req UpdateProductRequest) (*ProductDTO, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if err := validatePricing(req.Price, req.DiscountPrice); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = req.Name
	product.Description = req.Description
	product.CategoryID = req.CategoryID
	product.Price = req.Price
	product.DiscountPrice = req.DiscountPrice
	product.IsActive = req.IsActive
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	s.invalidateCached(ctx, id)
	return s.reload(ctx, id)
}

// Get serves the listing through the read-through cache.
func (s *service) Get(ctx context.Context, id uint) (*ProductDTO, error) {
	if id == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if cached := s.readCached(ctx, id); cached != nil {
		return cached, nil
	}
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(product)
	s.writeCached(ctx, dto)
	return dto, nil
}

// List returns a filtered, cursor-paginated page of the catalog.
func (s *service) List(ctx context.Context, params ListParams) (*ProductPage, error) {
	rows, nextCursor, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	items := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &ProductPage{Items: items, NextCursor: nextCursor, Total: total}, nil
}

// Delete removes the listing along with its images, cart rows and reviews.
// Order history keeps its snapshots.
func (s *service) Delete(ctx context.Context, id uint) error {
	if _, err := s.loadProduct(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	s.invalidateCached(ctx, id)
	return nil
}

// AdjustStock applies a relative stock change. Decrements below zero are
// rejected with a conflict.
func (s *service) AdjustStock(ctx context.Context, id uint, delta int) (*ProductDTO, error) {
	if delta == 0 {
		return s.Get(ctx, id)
	}
	if _, err := s.loadProduct(ctx, id); err != nil {
		return nil, err
	}
	updated, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjust stock")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "stock cannot go negative")
	}
	s.invalidateCached(ctx, id)
	return s.reload(ctx, id)
}

// AddImage attaches an image, optionally taking the primary slot.
func (s *service) AddImage(ctx context.Context, productID uint, req AddImageRequest) (*ProductDTO, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.loadProduct(ctx, productID); err != nil {
		return nil, err
	}
	image := &models.ProductImage{
		ProductID: productID,
		URL:       req.URL,
		IsPrimary: req.IsPrimary,
	}
	if err := s.repo.AddImage(ctx, image); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add product image")
	}
	s.invalidateCached(ctx, productID)
	return s.reload(ctx, productID)
}

// SetPrimaryImage promotes an existing image to the primary slot.
func (s *service) SetPrimaryImage(ctx context.Context, productID, imageID uint) (*ProductDTO, error) {
	if _, err := s.loadImage(ctx, productID, imageID); err != nil {
		return nil, err
	}
	if err := s.repo.SetPrimaryImage(ctx, productID, imageID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set primary image")
	}
	s.invalidateCached(ctx, productID)
	return s.reload(ctx, productID)
}

// RemoveImage deletes an image from the product.
func (s *service) RemoveImage(ctx context.Context, productID, imageID uint) error {
	if _, err := s.loadImage(ctx, productID, imageID); err != nil {
		return err
	}
	if err := s.repo.RemoveImage(ctx, productID, imageID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove product image")
	}
	s.invalidateCached(ctx, productID)
	return nil
}

func (s *service) loadProduct(ctx context.Context, id uint) (*models.Product, error) {
	if id == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

func (s *service) loadImage(ctx context.Context, productID, imageID uint) (*models.ProductImage, error) {
	if _, err := s.loadProduct(ctx, productID); err != nil {
		return nil, err
	}
	image, err := s.repo.FindImage(ctx, productID, imageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product image not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product image")
	}
	return image, nil
}

func (s *service) reload(ctx context.Context, id uint) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(product)
	s.writeCached(ctx, dto)
	return dto, nil
}

func validatePricing(price decimal.Decimal, discount *decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if discount != nil {
		if discount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount price cannot be negative")
		}
		if discount.GreaterThan(price) {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount price cannot exceed price")
		}
	}
	return nil
}

func (s *service) ensureCategory(ctx context.Context, categoryID *uint) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.categories.FindByID(ctx, *categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
	}
	return nil
}
