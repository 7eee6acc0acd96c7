package categories

import (
	"context"

	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/internal/repo"
	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
)

// Repository encapsulates category persistence.
type Repository struct {
	repo.Base
}

// NewRepository constructs a categories repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a copy of the repo bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Scoped(tx)}
}

// Create inserts a new category.
func (r *Repository) Create(ctx context.Context, category *models.Category) error {
	return r.DB(ctx).Create(category).Error
}

// FindByID loads a category by ID.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.DB(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// Update persists mutable category columns.
func (r *Repository) Update(ctx context.Context, category *models.Category) error {
	return r.DB(ctx).
		Model(&models.Category{}).
		Where("id = ?", category.ID).
		Select("name", "description", "image_url", "parent_id").
		Updates(map[string]any{
			"name":        category.Name,
			"description": category.Description,
			"image_url":   category.ImageURL,
			"parent_id":   category.ParentID,
		}).Error
}

// ListChildren returns the direct subcategories of a category.
func (r *Repository) ListChildren(ctx context.Context, parentID uint) ([]models.Category, error) {
	var children []models.Category
	if err := r.DB(ctx).
		Where("parent_id = ?", parentID).
		Order("name ASC").
		Find(&children).Error; err != nil {
		return nil, err
	}
	return children, nil
}

// ListRoots returns categories without a parent.
func (r *Repository) ListRoots(ctx context.Context) ([]models.Category, error) {
	var roots []models.Category
	if err := r.DB(ctx).
		Where("parent_id IS NULL").
		Order("name ASC").
		Find(&roots).Error; err != nil {
		return nil, err
	}
	return roots, nil
}

// CountChildren reports how many direct subcategories a category has.
func (r *Repository) CountChildren(ctx context.Context, id uint) (int64, error) {
	var count int64
	if err := r.DB(ctx).
		Model(&models.Category{}).
		Where("parent_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a leaf category and detaches its products. Product rows keep
// existing with a null category reference. Both steps commit or roll back
// together.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).
			Where("category_id = ?", id).
			UpdateColumn("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Category{}, "id = ?", id).Error
	})
}
