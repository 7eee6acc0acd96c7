package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItemDTO is one cart line joined with its product, priced at the
// product's current effective price.
type CartItemDTO struct {
	ItemID        uint            `json:"item_id"`
	ProductID     uint            `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
	AddedAt       time.Time       `json:"added_at"`
}

// CartDTO is the full cart view for one user.
type CartDTO struct {
	Items    []CartItemDTO   `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}
