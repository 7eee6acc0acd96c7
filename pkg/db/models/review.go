package models

import "time"

// Review holds at most one row per (product, user) pair; resubmission updates
// the existing row. Removed with either parent.
type Review struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	ProductID uint      `gorm:"column:product_id;not null;uniqueIndex:reviews_product_user_key"`
	Product   *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:reviews_product_user_key;index:reviews_user_id_idx"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Rating    int       `gorm:"column:rating;not null"`
	Comment   *string   `gorm:"column:comment"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
