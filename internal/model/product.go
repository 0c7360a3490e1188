package model

import (
	"time"

	"github.com/google/uuid"
)

// Product is a saleable line (e.g. "Buxus sempervirens 9cm"). Its stock lives in
// batches; ATSOverride, when set, replaces the calculated batch stock.
type Product struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrgID             uuid.UUID `gorm:"type:uuid;not null;index"`
	SKU               string    `gorm:"not null"`
	Name              string    `gorm:"index;not null"`
	ATSOverride       *int
	LowStockThreshold *int
	AllowOversell     bool `gorm:"not null;default:false"`
	Active            bool `gorm:"not null;default:true"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
