package dto

import (
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SelectBatchRequest struct {
	BatchID string `json:"batch_id" validate:"required,uuid"`
}

type MarkPickedRequest struct {
	PickedQuantity *int `json:"picked_quantity" validate:"required,min=0"`
}

// ─── Result DTOs ─────────────────────────────────────────────────────────────
// Every action returns one of these. Business failures set Success=false and
// Error instead of producing a Go error, so callers never need error handling
// for expected outcomes.

type ActionResult struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"` // validation | stock | not_found | infrastructure
}

type OversellWarning struct {
	OrderItemID       string `json:"order_item_id"`
	ProductID         string `json:"product_id"`
	RequestedQuantity int    `json:"requested_quantity"`
	Warning           string `json:"warning"`
}

type ConfirmOrderResult struct {
	ActionResult
	OversellWarnings []OversellWarning `json:"oversell_warnings"`
}

type PendingBatchSelection struct {
	AllocationID string `json:"allocation_id"`
	OrderItemID  string `json:"order_item_id"`
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	Quantity     int    `json:"quantity"`
}

type StartPickingResult struct {
	ActionResult
	PendingBatchSelections []PendingBatchSelection `json:"pending_batch_selections"`
}

type SelectBatchResult struct {
	ActionResult
	AllocationID string `json:"allocation_id,omitempty"`
	BatchID      string `json:"batch_id,omitempty"`
	Quantity     int    `json:"quantity,omitempty"`
}

type MarkPickedResult struct {
	ActionResult
	AllocationID   string `json:"allocation_id,omitempty"`
	PickedQuantity int    `json:"picked_quantity"`
	Shortage       *int   `json:"shortage"`
}

type CancelAllocationResult struct {
	ActionResult
	AllocationID     string `json:"allocation_id,omitempty"`
	QuantityReleased int    `json:"quantity_released"`
}

type OrderTransitionResult struct {
	ActionResult
	OrderID string `json:"order_id,omitempty"`
	Status  string `json:"status,omitempty"`
}

// AllocationView is one ledger row as shown to pickers and sales staff.
type AllocationView struct {
	ID             string          `json:"id"`
	OrderItemID    string          `json:"order_item_id"`
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name"`
	BatchID        *string         `json:"batch_id"`
	BatchNumber    *string         `json:"batch_number"`
	Location       *string         `json:"location"`
	Tier           string          `json:"tier"`
	Status         string          `json:"status"`
	Quantity       int             `json:"quantity"`
	PickedQuantity *int            `json:"picked_quantity"`
	Shortage       *int            `json:"shortage"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineTotal      decimal.Decimal `json:"line_total"`
	ReservedAt     string          `json:"reserved_at"`
	AllocatedAt    *string         `json:"allocated_at"`
	PickedAt       *string         `json:"picked_at"`
}

type OrderAllocationsResult struct {
	ActionResult
	OrderID     string           `json:"order_id,omitempty"`
	OrderNumber string           `json:"order_number,omitempty"`
	Customer    string           `json:"customer,omitempty"`
	OrderStatus string           `json:"order_status,omitempty"`
	Allocations []AllocationView `json:"allocations"`
	TotalValue  decimal.Decimal  `json:"total_value"`
}
