package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog listing. DiscountPrice, when present, must not exceed
// Price; both are fixed-point currency values with two fractional digits.
type Product struct {
	ID            uint             `gorm:"column:id;primaryKey"`
	CategoryID    *uint            `gorm:"column:category_id;index:products_category_id_idx"`
	Category      *Category        `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	Name          string           `gorm:"column:name;not null"`
	Description   string           `gorm:"column:description;not null;default:''"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(10,2);not null"`
	DiscountPrice *decimal.Decimal `gorm:"column:discount_price;type:numeric(10,2)"`
	StockQuantity int              `gorm:"column:stock_quantity;not null;default:0"`
	IsActive      bool             `gorm:"column:is_active;not null;default:true"`
	Images        []ProductImage   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice returns the price charged at checkout, preferring the
// discount price when one is set.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}
