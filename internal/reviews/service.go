package reviews

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
	pkgerrors "github.com/lucasortega/cartwheel-backend/pkg/errors"
	"github.com/lucasortega/cartwheel-backend/pkg/validate"
)

// SubmitReviewRequest creates or replaces the caller's review of a product.
type SubmitReviewRequest struct {
	ProductID uint    `json:"product_id" validate:"required"`
	Rating    int     `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   *string `json:"comment,omitempty"`
}

// RatingSummary aggregates a product's reviews.
type RatingSummary struct {
	ProductID uint    `json:"product_id"`
	Average   float64 `json:"average"`
	Count     int64   `json:"count"`
}

type reviewRepository interface {
	Upsert(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, id uint) (*models.Review, error)
	FindByProductAndUser(ctx context.Context, productID, userID uint) (*models.Review, error)
	ListForProduct(ctx context.Context, productID uint) ([]models.Review, error)
	Delete(ctx context.Context, id uint) error
	AverageRating(ctx context.Context, productID uint) (float64, int64, error)
}

type productFinder interface {
	FindByID(ctx context.Context, id uint) (*models.Product, error)
}

// Service exposes review business rules. One review per (product, user);
// submitting again overwrites.
type Service interface {
	Submit(ctx context.Context, userID uint, req SubmitReviewRequest) (*models.Review, error)
	ListForProduct(ctx context.Context, productID uint) ([]models.Review, error)
	Delete(ctx context.Context, userID, reviewID uint, isAdmin bool) error
	Summary(ctx context.Context, productID uint) (*RatingSummary, error)
}

// ServiceParams groups dependencies for the reviews service.
type ServiceParams struct {
	Repo     reviewRepository
	Products productFinder
}

type service struct {
	repo     reviewRepository
	products productFinder
}

// NewService builds a reviews service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reviews repo is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product finder is required")
	}
	return &service{repo: params.Repo, products: params.Products}, nil
}

// Submit validates the rating and upserts the user's review.
func (s *service) Submit(ctx context.Context, userID uint, req SubmitReviewRequest) (*models.Review, error) {
	if userID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if err := s.ensureProduct(ctx, req.ProductID); err != nil {
		return nil, err
	}

	review := &models.Review{
		ProductID: req.ProductID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := s.repo.Upsert(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "submit review")
	}

	stored, err := s.repo.FindByProductAndUser(ctx, req.ProductID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
	}
	return stored, nil
}

// ListForProduct returns a product's reviews, newest first.
func (s *service) ListForProduct(ctx context.Context, productID uint) ([]models.Review, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListForProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	return rows, nil
}

// Delete removes a review. Only the author or an admin may delete it.
func (s *service) Delete(ctx context.Context, userID, reviewID uint, isAdmin bool) error {
	if reviewID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "review id is required")
	}
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "review not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
	}
	if !isAdmin && review.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "review belongs to another user")
	}
	if err := s.repo.Delete(ctx, reviewID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete review")
	}
	return nil
}

// Summary returns the average rating and count for a product.
func (s *service) Summary(ctx context.Context, productID uint) (*RatingSummary, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	average, count, err := s.repo.AverageRating(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate ratings")
	}
	return &RatingSummary{ProductID: productID, Average: average, Count: count}, nil
}

func (s *service) ensureProduct(ctx context.Context, productID uint) error {
	if productID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return nil
}
