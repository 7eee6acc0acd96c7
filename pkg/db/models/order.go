package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucasortega/cartwheel-backend/pkg/enums"
)

// Order is created once at checkout. Items, prices and the total are frozen at
// creation; only status, payment status, tracking number and notes mutate.
// The user reference is nulled when the account is deleted so order history
// survives.
type Order struct {
	ID              uint                `gorm:"column:id;primaryKey"`
	Reference       uuid.UUID           `gorm:"column:reference;type:uuid;not null;uniqueIndex:orders_reference_key"`
	UserID          *uint               `gorm:"column:user_id;index:orders_user_id_idx"`
	User            *User               `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
	TotalAmount     decimal.Decimal     `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	ShippingAddress string              `gorm:"column:shipping_address;not null"`
	PaymentMethod   *string             `gorm:"column:payment_method"`
	TrackingNumber  *string             `gorm:"column:tracking_number"`
	Notes           *string             `gorm:"column:notes"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
