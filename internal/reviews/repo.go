package reviews

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/internal/repo"
	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
)

// Repository encapsulates review persistence.
type Repository struct {
	repo.Base
}

// NewRepository constructs a reviews repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a copy of the repo bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Scoped(tx)}
}

// Upsert writes the user's review of a product. Resubmission replaces the
// rating and comment on the existing row instead of adding a second one.
func (r *Repository) Upsert(ctx context.Context, review *models.Review) error {
	now := time.Now().UTC()
	return r.DB(ctx).Exec(`
INSERT INTO reviews (product_id, user_id, rating, comment, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (product_id, user_id)
DO UPDATE SET rating = excluded.rating, comment = excluded.comment, updated_at = excluded.updated_at`,
		review.ProductID, review.UserID, review.Rating, review.Comment, now, now,
	).Error
}

// FindByID loads a single review.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	if err := r.DB(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// FindByProductAndUser loads a user's review of one product.
func (r *Repository) FindByProductAndUser(ctx context.Context, productID, userID uint) (*models.Review, error) {
	var review models.Review
	if err := r.DB(ctx).
		First(&review, "product_id = ? AND user_id = ?", productID, userID).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// ListForProduct returns a product's reviews, newest first, with the
// reviewer loaded for display.
func (r *Repository) ListForProduct(ctx context.Context, productID uint) ([]models.Review, error) {
	var rows []models.Review
	if err := r.DB(ctx).
		Preload("User").
		Where("product_id = ?", productID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes one review.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.DB(ctx).Delete(&models.Review{}, "id = ?", id).Error
}

// AverageRating computes the mean rating and review count for a product.
func (r *Repository) AverageRating(ctx context.Context, productID uint) (float64, int64, error) {
	var row struct {
		Average float64
		Count   int64
	}
	if err := r.DB(ctx).
		Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	return row.Average, row.Count, nil
}
