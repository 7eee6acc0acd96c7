package stock

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
	pkgerrors "github.com/lucasortega/cartwheel-backend/pkg/errors"
)

// ReservationRequest asks for a quantity of one product.
type ReservationRequest struct {
	CartItemID uint
	ProductID  uint
	Qty        int
}

// ReservationResult reports the outcome of one request. Available carries the
// current stock level when the reservation failed.
type ReservationResult struct {
	CartItemID uint
	ProductID  uint
	Qty        int
	Reserved   bool
	Available  int
	Reason     string
}

// Reserve decrements stock for each request inside the caller's transaction.
// Each decrement is a single guarded UPDATE, so two checkouts competing for
// the last unit serialize on the row and exactly one wins. All requests are
// attempted even after a failure so the caller can report every shortfall at
// once.
func Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) ([]ReservationResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction is required")
	}

	results := make([]ReservationResult, 0, len(requests))
	for _, request := range requests {
		if request.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
		}

		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND is_active = ? AND stock_quantity >= ?", request.ProductID, true, request.Qty).
			Updates(map[string]any{
				"stock_quantity": gorm.Expr("stock_quantity - ?", request.Qty),
				"updated_at":     time.Now().UTC(),
			})
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "reserve stock")
		}

		result := ReservationResult{
			CartItemID: request.CartItemID,
			ProductID:  request.ProductID,
			Qty:        request.Qty,
			Reserved:   res.RowsAffected > 0,
		}
		if !result.Reserved {
			available, reason, err := explainFailure(ctx, tx, request.ProductID)
			if err != nil {
				return nil, err
			}
			result.Available = available
			result.Reason = reason
		}
		results = append(results, result)
	}
	return results, nil
}

func explainFailure(ctx context.Context, tx *gorm.DB, productID uint) (int, string, error) {
	var product models.Product
	err := tx.WithContext(ctx).
		Select("id", "stock_quantity", "is_active").
		First(&product, "id = ?", productID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return 0, "product no longer exists", nil
	case err != nil:
		return 0, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product stock")
	case !product.IsActive:
		return 0, "product is not available", nil
	default:
		return product.StockQuantity, "insufficient stock", nil
	}
}
