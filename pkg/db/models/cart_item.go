package models

import "time"

// CartItem holds at most one row per (user, product) pair; adding the same
// product again increments the quantity. Removed with either parent and fully
// consumed at checkout.
type CartItem struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:cart_items_user_product_key;index:cart_items_user_id_idx"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	ProductID uint      `gorm:"column:product_id;not null;uniqueIndex:cart_items_user_product_key"`
	Product   *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
