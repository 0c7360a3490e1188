package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderDraft      = "draft"
	OrderConfirmed  = "confirmed"
	OrderPicking    = "picking"
	OrderDispatched = "dispatched"
	OrderCancelled  = "cancelled"
)

// Order is a customer purchase request.
type Order struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrgID        uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderNumber  string    `gorm:"not null"`
	CustomerName string    `gorm:"not null"`
	Status       string    `gorm:"type:varchar(20);not null;default:'draft'"`
	ConfirmedAt  *time.Time
	DispatchedAt *time.Time
	CancelledAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

// OrderItem is one product line of an order.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrgID     uuid.UUID       `gorm:"type:uuid;not null"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	CreatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
