package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem captures the snapshot of one cart row at checkout time. The
// product reference is nulled if the product is later deleted; the name and
// unit price snapshots keep the history intact.
type OrderItem struct {
	ID          uint            `gorm:"column:id;primaryKey"`
	OrderID     uint            `gorm:"column:order_id;not null;index:order_items_order_id_idx"`
	ProductID   *uint           `gorm:"column:product_id;index:order_items_product_id_idx"`
	Product     *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
