package products

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/internal/repo"
	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
	"github.com/lucasortega/cartwheel-backend/pkg/pagination"
)

// Repository encapsulates product and product-image persistence.
type Repository struct {
	repo.Base
}

// NewRepository constructs a products repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a copy of the repo bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Scoped(tx)}
}

// Create inserts a new product.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Create(product).Error
}

// FindByID loads a product with its images.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, id ASC")
		}).
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Update persists mutable product columns. Stock is adjusted separately via
// AdjustStock so concurrent checkouts never race a full-row write.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"name":           product.Name,
			"description":    product.Description,
			"category_id":    product.CategoryID,
			"price":          product.Price,
			"discount_price": product.DiscountPrice,
			"is_active":      product.IsActive,
		}).Error
}

// Delete removes the product. Images and cart rows go with it; order items
// keep their snapshot with the product reference nulled. All steps commit or
// roll back together.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.OrderItem{}).
			Where("product_id = ?", id).
			UpdateColumn("product_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, "id = ?", id).Error
	})
}

// List returns a cursor-paginated page of the catalog, newest first.
func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Product, string, int64, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, "", 0, err
	}

	query := r.DB(ctx).Model(&models.Product{})
	if params.CategoryID != nil {
		query = query.Where("category_id = ?", *params.CategoryID)
	}
	if params.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, "", 0, err
	}

	if decodedCursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID,
		)
	}

	var rows []models.Product
	if err := query.
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, id ASC")
		}).
		Order("created_at DESC").Order("id DESC").
		Limit(limitWithBuffer).
		Find(&rows).Error; err != nil {
		return nil, "", 0, err
	}

	nextCursor := ""
	if len(rows) > normalizedLimit {
		rows = rows[:normalizedLimit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return rows, nextCursor, total, nil
}

// AdjustStock applies a relative stock change guarded against going negative.
// Returns true when a row was updated.
func (r *Repository) AdjustStock(ctx context.Context, id uint, delta int) (bool, error) {
	result := r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_quantity + ? >= 0", id, delta).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", delta),
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AddImage inserts an image row, demoting the current primary first when the
// new image takes that slot.
func (r *Repository) AddImage(ctx context.Context, image *models.ProductImage) error {
	return r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if image.IsPrimary {
			if err := r.demotePrimary(tx, image.ProductID); err != nil {
				return err
			}
		}
		return tx.Create(image).Error
	})
}

// FindImage loads one image belonging to the given product.
func (r *Repository) FindImage(ctx context.Context, productID, imageID uint) (*models.ProductImage, error) {
	var image models.ProductImage
	if err := r.DB(ctx).
		First(&image, "id = ? AND product_id = ?", imageID, productID).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// SetPrimaryImage promotes one image, demoting any other primary. The demote
// runs first so the partial unique index never sees two primaries.
func (r *Repository) SetPrimaryImage(ctx context.Context, productID, imageID uint) error {
	return r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.demotePrimary(tx, productID); err != nil {
			return err
		}
		return tx.Model(&models.ProductImage{}).
			Where("id = ? AND product_id = ?", imageID, productID).
			UpdateColumn("is_primary", true).Error
	})
}

// RemoveImage deletes an image row.
func (r *Repository) RemoveImage(ctx context.Context, productID, imageID uint) error {
	return r.DB(ctx).
		Where("id = ? AND product_id = ?", imageID, productID).
		Delete(&models.ProductImage{}).Error
}

func (r *Repository) demotePrimary(conn *gorm.DB, productID uint) error {
	return conn.Model(&models.ProductImage{}).
		Where("product_id = ? AND is_primary = ?", productID, true).
		UpdateColumn("is_primary", false).Error
}
