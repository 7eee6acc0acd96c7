package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/internal/cart"
	"github.com/lucasortega/cartwheel-backend/internal/checkout/stock"
	"github.com/lucasortega/cartwheel-backend/internal/orders"
	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
	"github.com/lucasortega/cartwheel-backend/pkg/enums"
	pkgerrors "github.com/lucasortega/cartwheel-backend/pkg/errors"
	"github.com/lucasortega/cartwheel-backend/pkg/logger"
	"github.com/lucasortega/cartwheel-backend/pkg/metrics"
	"github.com/lucasortega/cartwheel-backend/pkg/validate"
)

// CheckoutInput carries the order details supplied at checkout.
type CheckoutInput struct {
	ShippingAddress string  `json:"shipping_address" validate:"required"`
	PaymentMethod   *string `json:"payment_method,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// StockShortfall describes one cart line that could not be fulfilled.
type StockShortfall struct {
	ProductID uint   `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Reason    string `json:"reason"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockReserver func(ctx context.Context, tx *gorm.DB, requests []stock.ReservationRequest) ([]stock.ReservationResult, error)

// Service converts a cart into an order atomically: either every line is
// reserved, the order exists and the cart is empty, or nothing changed.
type Service interface {
	Execute(ctx context.Context, userID uint, input CheckoutInput) (*orders.OrderDTO, error)
}

// ServiceParams groups dependencies for the checkout service. Metrics and
// Logger are optional; Reserve defaults to the stock engine.
type ServiceParams struct {
	DB      txRunner
	Cart    *cart.Repository
	Orders  *orders.Repository
	Reserve stockReserver
	Metrics *metrics.CheckoutMetrics
	Logger  *logger.Logger
}

type service struct {
	tx      txRunner
	cart    *cart.Repository
	orders  *orders.Repository
	reserve stockReserver
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner is required")
	}
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repo is required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo is required")
	}
	reserve := params.Reserve
	if reserve == nil {
		reserve = stock.Reserve
	}
	return &service{
		tx:      params.DB,
		cart:    params.Cart,
		orders:  params.Orders,
		reserve: reserve,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// Execute runs the checkout transaction for the user's whole cart.
func (s *service) Execute(ctx context.Context, userID uint, input CheckoutInput) (*orders.OrderDTO, error) {
	if userID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	input.ShippingAddress = strings.TrimSpace(input.ShippingAddress)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	start := time.Now()
	var created *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cart.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		items, err := cartRepo.ListWithProducts(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		requests := make([]stock.ReservationRequest, 0, len(items))
		for _, item := range items {
			requests = append(requests, stock.ReservationRequest{
				CartItemID: item.ID,
				ProductID:  item.ProductID,
				Qty:        item.Quantity,
			})
		}

		results, err := s.reserve(ctx, tx, requests)
		if err != nil {
			return err
		}

		var shortfalls []StockShortfall
		for _, result := range results {
			if result.Reserved {
				continue
			}
			shortfalls = append(shortfalls, StockShortfall{
				ProductID: result.ProductID,
				Requested: result.Qty,
				Available: result.Available,
				Reason:    result.Reason,
			})
		}
		if len(shortfalls) > 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for one or more items").
				WithDetails(shortfalls)
		}

		total := decimal.Zero
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			if item.Product == nil {
				return pkgerrors.New(pkgerrors.CodeInternal, "cart item lost its product mid-checkout")
			}
			unit := item.Product.EffectivePrice()
			productID := item.ProductID
			orderItems = append(orderItems, models.OrderItem{
				ProductID:   &productID,
				ProductName: item.Product.Name,
				Quantity:    item.Quantity,
				UnitPrice:   unit,
			})
			total = total.Add(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		order := &models.Order{
			Reference:       uuid.New(),
			UserID:          &userID,
			TotalAmount:     total,
			Status:          enums.OrderStatusPending,
			PaymentStatus:   enums.PaymentStatusPending,
			ShippingAddress: input.ShippingAddress,
			PaymentMethod:   input.PaymentMethod,
			Notes:           input.Notes,
			Items:           orderItems,
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := cartRepo.Clear(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}

		created = order
		return nil
	})

	elapsed := time.Since(start)
	if err != nil {
		code := pkgerrors.CodeOf(err)
		s.metrics.ObserveDuration("rolled_back", elapsed)
		s.metrics.IncFailure(string(code))
		if code == pkgerrors.CodeInsufficientStock {
			s.metrics.IncInsufficientStock()
		}
		return nil, err
	}

	s.metrics.ObserveDuration("committed", elapsed)
	s.metrics.IncSuccess()
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, created.ID), "checkout committed")
	}
	return orders.FromModel(created), nil
}
