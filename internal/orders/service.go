package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/internal/products"
	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
	"github.com/lucasortega/cartwheel-backend/pkg/enums"
	pkgerrors "github.com/lucasortega/cartwheel-backend/pkg/errors"
)

// Requester identifies who is asking. Admins can see and mutate any order;
// everyone else is limited to their own.
type Requester struct {
	UserID  uint
	IsAdmin bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes order lifecycle business rules. Order contents are frozen
// at checkout; only status, payment status, tracking and notes mutate.
type Service interface {
	Get(ctx context.Context, requester Requester, orderID uint) (*OrderDTO, error)
	GetByReference(ctx context.Context, requester Requester, reference uuid.UUID) (*OrderDTO, error)
	ListByUser(ctx context.Context, requester Requester, userID uint, cursor string, limit int) (*OrderPage, error)
	UpdateStatus(ctx context.Context, requester Requester, orderID uint, status enums.OrderStatus) (*OrderDTO, error)
	UpdatePaymentStatus(ctx context.Context, requester Requester, orderID uint, status enums.PaymentStatus) (*OrderDTO, error)
	SetTracking(ctx context.Context, requester Requester, orderID uint, trackingNumber string) (*OrderDTO, error)
	SetNotes(ctx context.Context, requester Requester, orderID uint, notes string) (*OrderDTO, error)
	Cancel(ctx context.Context, requester Requester, orderID uint) (*OrderDTO, error)
}

// ServiceParams groups dependencies for the orders service.
type ServiceParams struct {
	DB       txRunner
	Repo     *Repository
	Products *products.Repository
}

type service struct {
	tx       txRunner
	repo     *Repository
	products *products.Repository
}

// NewService builds an orders service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "products repo is required")
	}
	return &service{
		tx:       params.DB,
		repo:     params.Repo,
		products: params.Products,
	}, nil
}

// Get loads an order visible to the requester.
func (s *service) Get(ctx context.Context, requester Requester, orderID uint) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(requester, order); err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

// GetByReference resolves the public order reference.
func (s *service) GetByReference(ctx context.Context, requester Requester, reference uuid.UUID) (*OrderDTO, error) {
	if reference == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference is required")
	}
	order, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if err := s.ensureVisible(requester, order); err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

// ListByUser pages through a user's order history, newest first.
func (s *service) ListByUser(ctx context.Context, requester Requester, userID uint, cursor string, limit int) (*OrderPage, error) {
	if userID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !requester.IsAdmin && requester.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "orders belong to another user")
	}
	rows, nextCursor, total, err := s.repo.ListByUser(ctx, userID, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	items := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &OrderPage{Items: items, NextCursor: nextCursor, Total: total}, nil
}

// UpdateStatus moves the order along the fulfillment lifecycle. Admin only.
func (s *service) UpdateStatus(ctx context.Context, requester Requester, orderID uint, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	order, err := s.adminOrder(ctx, requester, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cancelled orders cannot change status")
	}
	if err := s.repo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	return s.Get(ctx, requester, orderID)
}

// UpdatePaymentStatus sets the payment state. Admin only.
func (s *service) UpdatePaymentStatus(ctx context.Context, requester Requester, orderID uint, status enums.PaymentStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	if _, err := s.adminOrder(ctx, requester, orderID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePaymentStatus(ctx, orderID, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment status")
	}
	return s.Get(ctx, requester, orderID)
}

// SetTracking records the carrier tracking number. Admin only.
func (s *service) SetTracking(ctx context.Context, requester Requester, orderID uint, trackingNumber string) (*OrderDTO, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required")
	}
	if _, err := s.adminOrder(ctx, requester, orderID); err != nil {
		return nil, err
	}
	if err := s.repo.SetTracking(ctx, orderID, trackingNumber); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set tracking number")
	}
	return s.Get(ctx, requester, orderID)
}

// SetNotes records internal notes on the order. Admin only.
func (s *service) SetNotes(ctx context.Context, requester Requester, orderID uint, notes string) (*OrderDTO, error) {
	if _, err := s.adminOrder(ctx, requester, orderID); err != nil {
		return nil, err
	}
	if err := s.repo.SetNotes(ctx, orderID, notes); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set order notes")
	}
	return s.Get(ctx, requester, orderID)
}

// Cancel aborts an order that has not shipped. The status flip and the
// restock of every surviving product commit together.
func (s *service) Cancel(ctx context.Context, requester Requester, orderID uint) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(requester, order); err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusProcessing {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order can no longer be cancelled")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)
		productRepo := s.products.WithTx(tx)

		if err := orderRepo.UpdateStatus(ctx, orderID, enums.OrderStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			if err := orderRepo.UpdatePaymentStatus(ctx, orderID, enums.PaymentStatusRefunded); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark payment refunded")
			}
		}
		for _, item := range order.Items {
			if item.ProductID == nil {
				continue
			}
			if _, err := productRepo.AdjustStock(ctx, *item.ProductID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restock product")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, requester, orderID)
}

func (s *service) loadOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	if orderID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func (s *service) adminOrder(ctx context.Context, requester Requester, orderID uint) (*models.Order, error) {
	if !requester.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	return s.loadOrder(ctx, orderID)
}

func (s *service) ensureVisible(requester Requester, order *models.Order) error {
	if requester.IsAdmin {
		return nil
	}
	if order.UserID == nil || *order.UserID != requester.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return nil
}
