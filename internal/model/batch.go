package model

import (
	"time"

	"github.com/google/uuid"
)

// Batch growing statuses.
const (
	BatchPropagating = "propagating"
	BatchGrowing     = "growing"
	BatchReady       = "ready"
	BatchArchived    = "archived"
)

// Batch sales statuses.
const (
	SalesAvailable  = "available"
	SalesOnHold     = "on_hold"
	SalesNotForSale = "not_for_sale"
)

// Batch is a group of plants of one product grown together. Quantity is the
// quantity on hand still free to allocate; batch tier allocations decrement it.
type Batch struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrgID       uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index"`
	BatchNumber string    `gorm:"not null"`
	Variety     string
	Quantity    int `gorm:"not null;default:0"` // CHECK (quantity >= 0)
	Location    string
	Status      string `gorm:"type:varchar(20);not null;default:'growing'"`
	SalesStatus string `gorm:"type:varchar(20);not null;default:'available'"`
	PlantedAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

// Saleable reports whether the batch may receive batch tier allocations.
func (b *Batch) Saleable() bool {
	return b.SalesStatus == SalesAvailable && b.Status != BatchArchived
}
