package dto

// BatchCandidate is a read-only projection of a batch a picker may choose.
type BatchCandidate struct {
	ID                string `json:"id"`
	BatchNumber       string `json:"batch_number"`
	Variety           string `json:"variety"`
	AvailableQuantity int    `json:"available_quantity"`
	Location          string `json:"location"`
	Status            string `json:"status"`
	SalesStatus       string `json:"sales_status"`
	AgeWeeks          int    `json:"age_weeks"`
	PlantedAt         string `json:"planted_at"`
}

type AvailableBatchesResult struct {
	ActionResult
	ProductID string           `json:"product_id,omitempty"`
	Batches   []BatchCandidate `json:"batches"`
}

// ProductStockStatus is the derived available-to-sell picture of a product.
type ProductStockStatus struct {
	ProductID         string `json:"product_id"`
	ProductName       string `json:"product_name"`
	CalculatedStock   int    `json:"calculated_stock"`
	ATSOverride       *int   `json:"ats_override"`
	ReservedQuantity  int    `json:"reserved_quantity"`
	EffectiveATS      int    `json:"effective_ats"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	AllowOversell     bool   `json:"allow_oversell"`
	Level             string `json:"level"` // out_of_stock | low | ok
	IsLowStock        bool   `json:"is_low_stock"`
}

type ProductStockStatusResult struct {
	ActionResult
	Status *ProductStockStatus `json:"status,omitempty"`
}

// ─── Stock movements ─────────────────────────────────────────────────────────

type MovementFilter struct {
	Page  int `form:"page,default=1"   validate:"min=1"`
	Limit int `form:"limit,default=50" validate:"min=1,max=500"`
}

type StockMovementResponse struct {
	ID            string  `json:"id"`
	BatchID       string  `json:"batch_id"`
	Kind          string  `json:"kind"`
	Delta         int     `json:"delta"`
	QuantityAfter int     `json:"quantity_after"`
	AllocationID  *string `json:"allocation_id"`
	Reason        string  `json:"reason"`
	CreatedAt     string  `json:"created_at"`
}

type StockMovementListResponse struct {
	Data  []StockMovementResponse `json:"data"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}
