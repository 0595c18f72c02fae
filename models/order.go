package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusPaymentPending    OrderStatus = "payment_pending"
	OrderStatusPaymentProcessing OrderStatus = "payment_processing"
	OrderStatusPaymentFailed     OrderStatus = "payment_failed"
	OrderStatusConfirmed         OrderStatus = "confirmed"
	OrderStatusCanceled          OrderStatus = "canceled"
	OrderStatusShipped           OrderStatus = "shipped"
	OrderStatusDelivered         OrderStatus = "delivered"
)

type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerEmail   string          `gorm:"type:varchar(255)"`
	ShippingCost    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	ShippingAddress string          `gorm:"type:varchar(512)"`
	ShippingService string          `gorm:"type:varchar(100)"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt  `gorm:"index"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}

func (i OrderItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Subtotal is derived from the item list and never stored.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Total())
	}
	return sum
}

func (o *Order) Total() decimal.Decimal {
	return o.Subtotal().Add(o.ShippingCost)
}

// AddItem appends a line item. Items are append-only after creation.
func (o *Order) AddItem(item OrderItem) {
	o.Items = append(o.Items, item)
}

// Transitions are one-way setters; callers are responsible for invoking
// them in a valid order. Applying the same transition twice is a no-op,
// which keeps redelivered messages safe.

func (o *Order) Confirm() { o.Status = OrderStatusConfirmed }

func (o *Order) Cancel() { o.Status = OrderStatusCanceled }

func (o *Order) MarkPaymentPending() { o.Status = OrderStatusPaymentPending }

func (o *Order) MarkPaymentProcessing() { o.Status = OrderStatusPaymentProcessing }

func (o *Order) MarkPaymentFailed() { o.Status = OrderStatusPaymentFailed }
