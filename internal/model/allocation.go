package model

import (
	"time"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/allocation"
	"github.com/google/uuid"
)

// Allocation is one row of the allocation ledger: the unit of inventory
// commitment for an order item. Tier and BatchID move together; see
// allocation.CheckTierBatch.
type Allocation struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrgID          uuid.UUID         `gorm:"type:uuid;not null;index"`
	OrderID        uuid.UUID         `gorm:"type:uuid;not null;index"`
	OrderItemID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	ProductID      uuid.UUID         `gorm:"type:uuid;not null;index"`
	BatchID        *uuid.UUID        `gorm:"type:uuid;index"`
	Tier           allocation.Tier   `gorm:"type:varchar(10);not null"`
	Status         allocation.Status `gorm:"type:varchar(20);not null"`
	Quantity       int               `gorm:"not null"`
	PickedQuantity *int
	Shortage       *int
	ReservedAt     time.Time
	AllocatedAt    *time.Time
	PickedAt       *time.Time
	ShippedAt      *time.Time
	CancelledAt    *time.Time
	CreatedBy      *uuid.UUID `gorm:"type:uuid"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
	Batch   *Batch   `gorm:"foreignKey:BatchID"`
}

// TableName keeps the ledger name used by the rest of the nursery schema.
func (Allocation) TableName() string { return "allocation_ledger" }
