package model

import (
	"time"

	"github.com/google/uuid"
)

// Stock movement kinds.
const (
	MovementAllocation = "allocation" // batch tier allocation took plants off the batch
	MovementRelease    = "release"    // a cancelled allocation returned plants
)

// StockMovement records each change of a batch quantity made by the allocation
// workflow. Rows are append-only.
type StockMovement struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrgID         uuid.UUID  `gorm:"type:uuid;not null"`
	BatchID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	Kind          string     `gorm:"type:varchar(20);not null"`
	Delta         int        `gorm:"not null"` // positive = back to batch, negative = taken
	QuantityAfter int        `gorm:"not null"`
	AllocationID  *uuid.UUID `gorm:"type:uuid"`
	UserID        *uuid.UUID `gorm:"type:uuid"`
	Reason        string
	CreatedAt     time.Time
}

// TableName overrides GORM's default pluralization.
func (StockMovement) TableName() string { return "stock_movements" }
