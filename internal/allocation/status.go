// Package allocation holds the rules of the two-tier stock allocation workflow:
// tiers, statuses, the per-row state machine and the quantity math used by the
// allocation procedures. Nothing here touches the database.
package allocation

import (
	"fmt"

	"github.com/google/uuid"
)

// Tier says at which level inventory is committed.
type Tier string

const (
	TierProduct Tier = "product" // reserved against product ATS, no batch yet
	TierBatch   Tier = "batch"   // bound to a concrete batch
)

func (t Tier) Valid() bool { return t == TierProduct || t == TierBatch }

// Status is the lifecycle state of an allocation ledger row.
type Status string

const (
	StatusReserved  Status = "reserved"
	StatusAllocated Status = "allocated"
	StatusPicked    Status = "picked"
	StatusShipped   Status = "shipped"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusReserved, StatusAllocated, StatusPicked, StatusShipped, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the row still counts against the order item's quantity.
func (s Status) IsActive() bool { return s.Valid() && s != StatusCancelled }

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool { return s == StatusShipped || s == StatusCancelled }

// transitions lists the allowed forward moves. Cancellation is handled separately:
// it is reachable from every non-terminal state.
var transitions = map[Status]Status{
	StatusReserved:  StatusAllocated,
	StatusAllocated: StatusPicked,
	StatusPicked:    StatusShipped,
}

// CanTransition reports whether a row in state from may move to state to.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() || !from.Valid() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	next, ok := transitions[from]
	return ok && next == to
}

// Transition returns an ErrValidation-wrapped error when the move is not allowed.
func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: allocation cannot move from %s to %s", ErrValidation, from, to)
	}
	return nil
}

// TierFor returns the tier a row must have while in status s.
func TierFor(s Status) Tier {
	if s == StatusReserved {
		return TierProduct
	}
	return TierBatch
}

// CheckTierBatch enforces tier=product ⇔ batch unset, tier=batch ⇔ batch set.
func CheckTierBatch(tier Tier, batchID *uuid.UUID) error {
	switch tier {
	case TierProduct:
		if batchID != nil {
			return fmt.Errorf("%w: product tier allocation cannot reference a batch", ErrValidation)
		}
	case TierBatch:
		if batchID == nil || *batchID == uuid.Nil {
			return fmt.Errorf("%w: batch tier allocation requires a batch", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown tier %q", ErrValidation, tier)
	}
	return nil
}
