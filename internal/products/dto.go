package products

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
)

// ProductImageDTO is the transport shape of a catalog image.
type ProductImageDTO struct {
	ID        uint   `json:"id"`
	URL       string `json:"url"`
	IsPrimary bool   `json:"is_primary"`
}

// ProductDTO is the transport shape of a catalog listing. It is also the
// JSON payload stored in the read-through cache.
type ProductDTO struct {
	ID             uint              `json:"id"`
	CategoryID     *uint             `json:"category_id,omitempty"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Price          decimal.Decimal   `json:"price"`
	DiscountPrice  *decimal.Decimal  `json:"discount_price,omitempty"`
	EffectivePrice decimal.Decimal   `json:"effective_price"`
	StockQuantity  int               `json:"stock_quantity"`
	IsActive       bool              `json:"is_active"`
	Images         []ProductImageDTO `json:"images"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ProductPage is a cursor-paginated slice of the catalog.
type ProductPage struct {
	Items      []ProductDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
	Total      int64        `json:"total"`
}

// ListParams filters and paginates catalog queries.
type ListParams struct {
	CategoryID *uint
	ActiveOnly bool
	Cursor     string
	Limit      int
}

func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}

	images := make([]ProductImageDTO, 0, len(p.Images))
	for _, image := range p.Images {
		images = append(images, ProductImageDTO{
			ID:        image.ID,
			URL:       image.URL,
			IsPrimary: image.IsPrimary,
		})
	}

	return &ProductDTO{
		ID:             p.ID,
		CategoryID:     p.CategoryID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		DiscountPrice:  p.DiscountPrice,
		EffectivePrice: p.EffectivePrice(),
		StockQuantity:  p.StockQuantity,
		IsActive:       p.IsActive,
		Images:         images,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
