package cart

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/internal/repo"
	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
)

// Repository encapsulates cart persistence.
type Repository struct {
	repo.Base
}

// NewRepository constructs a cart repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a copy of the repo bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Scoped(tx)}
}

// Upsert adds quantity to the user's cart line for a product, creating the
// line when absent. A single statement so concurrent adds for the same pair
// serialize on the unique index instead of racing a read-modify-write.
func (r *Repository) Upsert(ctx context.Context, userID, productID uint, quantity int) error {
	now := time.Now().UTC()
	return r.DB(ctx).Exec(`
INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id, product_id)
DO UPDATE SET quantity = quantity + excluded.quantity, updated_at = excluded.updated_at`,
		userID, productID, quantity, now, now,
	).Error
}

// FindItemByID loads a single cart line.
func (r *Repository) FindItemByID(ctx context.Context, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.DB(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateQuantity sets the absolute quantity of a cart line.
func (r *Repository) UpdateQuantity(ctx context.Context, itemID uint, quantity int) error {
	return r.DB(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		UpdateColumn("quantity", quantity).Error
}

// DeleteItem removes one cart line.
func (r *Repository) DeleteItem(ctx context.Context, itemID uint) error {
	return r.DB(ctx).Delete(&models.CartItem{}, "id = ?", itemID).Error
}

// Clear drops every cart line for the user.
func (r *Repository) Clear(ctx context.Context, userID uint) error {
	return r.DB(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}

// ListWithProducts returns the user's cart lines with products attached,
// oldest line first.
func (r *Repository) ListWithProducts(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC").Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
