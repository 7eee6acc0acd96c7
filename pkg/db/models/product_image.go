package models

import "time"

// ProductImage belongs to exactly one product and is removed with it. The
// partial unique index keeps at most one primary image per product.
type ProductImage struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	ProductID uint      `gorm:"column:product_id;not null;index:product_images_product_id_idx;uniqueIndex:product_images_primary_key,where:is_primary"`
	Product   *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	URL       string    `gorm:"column:url;not null"`
	IsPrimary bool      `gorm:"column:is_primary;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
