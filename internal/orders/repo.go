package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/internal/repo"
	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
	"github.com/lucasortega/cartwheel-backend/pkg/enums"
	"github.com/lucasortega/cartwheel-backend/pkg/pagination"
)

// Repository encapsulates order persistence.
type Repository struct {
	repo.Base
}

// NewRepository constructs an orders repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a copy of the repo bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Scoped(tx)}
}

// Create inserts the order together with its items.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Create(order).Error
}

// FindByID loads an order with its items.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByReference loads an order by its public reference.
func (r *Repository) FindByReference(ctx context.Context, reference uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).
		Preload("Items").
		First(&order, "reference = ?", reference).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns a cursor-paginated page of a user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uint, cursor string, limit int) ([]models.Order, string, int64, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	limitWithBuffer := pagination.LimitWithBuffer(limit)

	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(cursor))
	if err != nil {
		return nil, "", 0, err
	}

	base := r.DB(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, "", 0, err
	}

	query := base
	if decodedCursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID,
		)
	}

	var rows []models.Order
	if err := query.
		Preload("Items").
		Order("created_at DESC").Order("id DESC").
		Limit(limitWithBuffer).
		Find(&rows).Error; err != nil {
		return nil, "", 0, err
	}

	nextCursor := ""
	if len(rows) > normalizedLimit {
		rows = rows[:normalizedLimit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return rows, nextCursor, total, nil
}

// UpdateStatus sets the fulfillment status.
func (r *Repository) UpdateStatus(ctx context.Context, id uint, status enums.OrderStatus) error {
	return r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

// UpdatePaymentStatus sets the payment status.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, id uint, status enums.PaymentStatus) error {
	return r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("payment_status", status).Error
}

// SetTracking stores the carrier tracking number.
func (r *Repository) SetTracking(ctx context.Context, id uint, trackingNumber string) error {
	return r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("tracking_number", trackingNumber).Error
}

// SetNotes stores free-form notes on the order.
func (r *Repository) SetNotes(ctx context.Context, id uint, notes string) error {
	return r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("notes", notes).Error
}
