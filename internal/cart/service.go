package cart

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
	pkgerrors "github.com/lucasortega/cartwheel-backend/pkg/errors"
	"github.com/lucasortega/cartwheel-backend/pkg/validate"
)

// AddItemRequest adds a quantity of one product to the cart.
type AddItemRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,gt=0"`
}

type cartRepository interface {
	Upsert(ctx context.Context, userID, productID uint, quantity int) error
	FindItemByID(ctx context.Context, itemID uint) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, itemID uint, quantity int) error
	DeleteItem(ctx context.Context, itemID uint) error
	Clear(ctx context.Context, userID uint) error
	ListWithProducts(ctx context.Context, userID uint) ([]models.CartItem, error)
}

type productFinder interface {
	FindByID(ctx context.Context, id uint) (*models.Product, error)
}

// Service exposes cart business rules. The cart never reserves stock; stock
// is checked once, atomically, at checkout.
type Service interface {
	Add(ctx context.Context, userID uint, req AddItemRequest) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uint, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uint) (*CartDTO, error)
	Clear(ctx context.Context, userID uint) error
	List(ctx context.Context, userID uint) (*CartDTO, error)
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Repo     cartRepository
	Products productFinder
}

type service struct {
	repo     cartRepository
	products productFinder
}

// NewService builds a cart service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repo is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product finder is required")
	}
	return &service{repo: params.Repo, products: params.Products}, nil
}

// Add puts a product in the cart, merging with an existing line for the same
// product by incrementing its quantity.
func (s *service) Add(ctx context.Context, userID uint, req AddItemRequest) (*CartDTO, error) {
	if userID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not available")
	}

	if err := s.repo.Upsert(ctx, userID, req.ProductID, req.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
	}
	return s.List(ctx, userID)
}

// UpdateItem sets the absolute quantity of a cart line owned by the user.
func (s *service) UpdateItem(ctx context.Context, userID, itemID uint, quantity int) (*CartDTO, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateQuantity(ctx, itemID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
	}
	return s.List(ctx, userID)
}

// RemoveItem deletes a cart line. Removing a line that is already gone is a
// no-op.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uint) (*CartDTO, error) {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return s.List(ctx, userID)
		}
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	return s.List(ctx, userID)
}

// Clear empties the user's cart.
func (s *service) Clear(ctx context.Context, userID uint) error {
	if userID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

// List returns the cart priced at current effective prices.
func (s *service) List(ctx context.Context, userID uint) (*CartDTO, error) {
	if userID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	items, err := s.repo.ListWithProducts(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}

	dto := &CartDTO{
		Items:    make([]CartItemDTO, 0, len(items)),
		Subtotal: decimal.Zero,
	}
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		unit := item.Product.EffectivePrice()
		line := unit.Mul(decimal.NewFromInt(int64(item.Quantity)))
		dto.Items = append(dto.Items, CartItemDTO{
			ItemID:        item.ID,
			ProductID:     item.ProductID,
			ProductName:   item.Product.Name,
			Quantity:      item.Quantity,
			UnitPrice:     unit,
			LineTotal:     line,
			StockQuantity: item.Product.StockQuantity,
			IsActive:      item.Product.IsActive,
			AddedAt:       item.CreatedAt,
		})
		dto.Subtotal = dto.Subtotal.Add(line)
	}
	return dto, nil
}

func (s *service) ownedItem(ctx context.Context, userID, itemID uint) (*models.CartItem, error) {
	if userID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if itemID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}
	item, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	if item.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart item belongs to another user")
	}
	return item, nil
}
