package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/allocation"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/dto"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const internalErrorMessage = "Internal error, please try again"

// ViewCache is the read-through cache behind the allocation views.
// Implementations must be safe to call with a dead backend: Get reports a miss,
// Set and Invalidate are best effort.
//
// View keys carry the generation of their scope. Invalidate bumps it, so a view
// computed before a mutation and written after it lands on a key nobody reads.
type ViewCache interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, v any)
	// Generation reports the current generation of scope; false means the
	// backend is unavailable and the cache should be bypassed.
	Generation(ctx context.Context, scope string) (int64, bool)
	Invalidate(ctx context.Context, scopes ...string)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, any) bool            { return false }
func (noopCache) Set(context.Context, string, any)                 {}
func (noopCache) Generation(context.Context, string) (int64, bool) { return 0, false }
func (noopCache) Invalidate(context.Context, ...string)            {}

// Scopes and keys are prefixed by organization so one tenant can never read
// another's view.
func ProductScope(orgID, productID uuid.UUID) string {
	return fmt.Sprintf("alloc:%s:product:%s", orgID, productID)
}

func OrderScope(orgID, orderID uuid.UUID) string {
	return fmt.Sprintf("alloc:%s:order:%s", orgID, orderID)
}

func StockStatusKey(orgID, productID uuid.UUID, gen int64) string {
	return fmt.Sprintf("alloc:%s:stock:%s:g%d", orgID, productID, gen)
}

func BatchesKey(orgID, productID uuid.UUID, gen int64) string {
	return fmt.Sprintf("alloc:%s:batches:%s:g%d", orgID, productID, gen)
}

func OrderAllocationsKey(orgID, orderID uuid.UUID, gen int64) string {
	return fmt.Sprintf("alloc:%s:allocations:%s:g%d", orgID, orderID, gen)
}

// AllocationActions is the boundary called by HTTP handlers. Each action maps
// onto one procedure and always returns a serializable result: business failures
// come back as Success=false with a message, never as a Go error.
type AllocationActions interface {
	ConfirmOrderWithAllocations(ctx context.Context, sess dto.Session, orderID string) dto.ConfirmOrderResult
	StartPickingOrder(ctx context.Context, sess dto.Session, orderID string) dto.StartPickingResult
	SelectBatchForAllocation(ctx context.Context, sess dto.Session, allocationID string, req dto.SelectBatchRequest) dto.SelectBatchResult
	MarkAllocationPicked(ctx context.Context, sess dto.Session, allocationID string, req dto.MarkPickedRequest) dto.MarkPickedResult
	CancelAllocation(ctx context.Context, sess dto.Session, allocationID string) dto.CancelAllocationResult
	DispatchOrder(ctx context.Context, sess dto.Session, orderID string) dto.OrderTransitionResult
	CancelOrder(ctx context.Context, sess dto.Session, orderID string) dto.OrderTransitionResult
	GetAvailableBatches(ctx context.Context, sess dto.Session, productID string) dto.AvailableBatchesResult
	GetProductStockStatus(ctx context.Context, sess dto.Session, productID string) dto.ProductStockStatusResult
	GetOrderAllocations(ctx context.Context, sess dto.Session, orderID string) dto.OrderAllocationsResult
}

type allocationActions struct {
	svc   AllocationService
	cache ViewCache
}

// NewAllocationActions wires the action boundary. cache may be nil.
func NewAllocationActions(svc AllocationService, cache ViewCache) AllocationActions {
	if cache == nil {
		cache = noopCache{}
	}
	return &allocationActions{svc: svc, cache: cache}
}

func ok() dto.ActionResult { return dto.ActionResult{Success: true} }

// fail turns err into a failed result. Business errors keep their message;
// anything else is logged and replaced by a generic one.
func fail(action string, sess dto.Session, err error) dto.ActionResult {
	kind := allocation.KindOf(err)
	if kind == allocation.KindInfrastructure {
		log.Error().
			Err(err).
			Str("action", action).
			Str("org_id", sess.OrgID.String()).
			Str("user_id", sess.UserID.String()).
			Msg("allocation action failed")
		return dto.ActionResult{Error: internalErrorMessage, ErrorKind: string(kind)}
	}
	log.Debug().Err(err).Str("action", action).Str("kind", string(kind)).Msg("allocation action rejected")
	return dto.ActionResult{Error: err.Error(), ErrorKind: string(kind)}
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s is not a valid id", allocation.ErrValidation, field)
	}
	return id, nil
}

func (a *allocationActions) invalidate(ctx context.Context, orgID uuid.UUID, orderIDs []uuid.UUID, productIDs []uuid.UUID) {
	scopes := make([]string, 0, len(orderIDs)+len(productIDs))
	for _, id := range orderIDs {
		scopes = append(scopes, OrderScope(orgID, id))
	}
	for _, id := range productIDs {
		scopes = append(scopes, ProductScope(orgID, id))
	}
	if len(scopes) > 0 {
		a.cache.Invalidate(ctx, scopes...)
	}
}

// viewKey resolves the cache key of a view under the current generation of
// scope. It must be read before the view is loaded.
func (a *allocationActions) viewKey(ctx context.Context, scope string, key func(gen int64) string) (string, bool) {
	gen, ok := a.cache.Generation(ctx, scope)
	if !ok {
		return "", false
	}
	return key(gen), true
}

func productIDsOf(rows []model.Allocation) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(rows))
	out := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		if !seen[r.ProductID] {
			seen[r.ProductID] = true
			out = append(out, r.ProductID)
		}
	}
	return out
}

// ── Mutations ────────────────────────────────────────────────────────────────

func (a *allocationActions) ConfirmOrderWithAllocations(ctx context.Context, sess dto.Session, orderID string) dto.ConfirmOrderResult {
	id, err := parseID("order_id", orderID)
	if err != nil {
		return dto.ConfirmOrderResult{ActionResult: fail("confirm_order", sess, err), OversellWarnings: []dto.OversellWarning{}}
	}
	created, warnings, err := a.svc.ConfirmOrder(ctx, sess, id)
	if err != nil {
		return dto.ConfirmOrderResult{ActionResult: fail("confirm_order", sess, err), OversellWarnings: []dto.OversellWarning{}}
	}
	a.invalidate(ctx, sess.OrgID, []uuid.UUID{id}, productIDsOf(created))

	if len(warnings) > 0 {
		log.Warn().
			Str("order_id", id.String()).
			Int("warnings", len(warnings)).
			Msg("order confirmed with oversell")
	}
	return dto.ConfirmOrderResult{ActionResult: ok(), OversellWarnings: warnings}
}

func (a *allocationActions) StartPickingOrder(ctx context.Context, sess dto.Session, orderID string) dto.StartPickingResult {
	id, err := parseID("order_id", orderID)
	if err != nil {
		return dto.StartPickingResult{ActionResult: fail("start_picking", sess, err), PendingBatchSelections: []dto.PendingBatchSelection{}}
	}
	pending, err := a.svc.StartPicking(ctx, sess, id)
	if err != nil {
		return dto.StartPickingResult{ActionResult: fail("start_picking", sess, err), PendingBatchSelections: []dto.PendingBatchSelection{}}
	}
	a.invalidate(ctx, sess.OrgID, []uuid.UUID{id}, nil)
	return dto.StartPickingResult{ActionResult: ok(), PendingBatchSelections: pending}
}

func (a *allocationActions) SelectBatchForAllocation(ctx context.Context, sess dto.Session, allocationID string, req dto.SelectBatchRequest) dto.SelectBatchResult {
	allocID, err := parseID("allocation_id", allocationID)
	if err != nil {
		return dto.SelectBatchResult{ActionResult: fail("select_batch", sess, err)}
	}
	batchID, err := parseID("batch_id", req.BatchID)
	if err != nil {
		return dto.SelectBatchResult{ActionResult: fail("select_batch", sess, err)}
	}
	row, err := a.svc.SelectBatch(ctx, sess, allocID, batchID)
	if err != nil {
		return dto.SelectBatchResult{ActionResult: fail("select_batch", sess, err)}
	}
	a.invalidate(ctx, sess.OrgID, []uuid.UUID{row.OrderID}, []uuid.UUID{row.ProductID})
	return dto.SelectBatchResult{
		ActionResult: ok(),
		AllocationID: row.ID.String(),
		BatchID:      batchID.String(),
		Quantity:     row.Quantity,
	}
}

func (a *allocationActions) MarkAllocationPicked(ctx context.Context, sess dto.Session, allocationID string, req dto.MarkPickedRequest) dto.MarkPickedResult {
	allocID, err := parseID("allocation_id", allocationID)
	if err != nil {
		return dto.MarkPickedResult{ActionResult: fail("mark_picked", sess, err)}
	}
	if req.PickedQuantity == nil {
		return dto.MarkPickedResult{ActionResult: fail("mark_picked", sess,
			fmt.Errorf("%w: picked_quantity is required", allocation.ErrValidation))}
	}
	row, err := a.svc.MarkPicked(ctx, sess, allocID, *req.PickedQuantity)
	if err != nil {
		return dto.MarkPickedResult{ActionResult: fail("mark_picked", sess, err)}
	}
	a.invalidate(ctx, sess.OrgID, []uuid.UUID{row.OrderID}, nil)
	return dto.MarkPickedResult{
		ActionResult:   ok(),
		AllocationID:   row.ID.String(),
		PickedQuantity: *req.PickedQuantity,
		Shortage:       row.Shortage,
	}
}

func (a *allocationActions) CancelAllocation(ctx context.Context, sess dto.Session, allocationID string) dto.CancelAllocationResult {
	allocID, err := parseID("allocation_id", allocationID)
	if err != nil {
		return dto.CancelAllocationResult{ActionResult: fail("cancel_allocation", sess, err)}
	}
	released, row, err := a.svc.CancelAllocation(ctx, sess, allocID)
	if err != nil {
		return dto.CancelAllocationResult{ActionResult: fail("cancel_allocation", sess, err)}
	}
	a.invalidate(ctx, sess.OrgID, []uuid.UUID{row.OrderID}, []uuid.UUID{row.ProductID})
	return dto.CancelAllocationResult{
		ActionResult:     ok(),
		AllocationID:     row.ID.String(),
		QuantityReleased: released,
	}
}

func (a *allocationActions) DispatchOrder(ctx context.Context, sess dto.Session, orderID string) dto.OrderTransitionResult {
	id, err := parseID("order_id", orderID)
	if err != nil {
		return dto.OrderTransitionResult{ActionResult: fail("dispatch_order", sess, err)}
	}
	order, err := a.svc.DispatchOrder(ctx, sess, id)
	if err != nil {
		return dto.OrderTransitionResult{ActionResult: fail("dispatch_order", sess, err)}
	}
	a.invalidate(ctx, sess.OrgID, []uuid.UUID{id}, nil)
	return dto.OrderTransitionResult{ActionResult: ok(), OrderID: order.ID.String(), Status: order.Status}
}

func (a *allocationActions) CancelOrder(ctx context.Context, sess dto.Session, orderID string) dto.OrderTransitionResult {
	id, err := parseID("order_id", orderID)
	if err != nil {
		return dto.OrderTransitionResult{ActionResult: fail("cancel_order", sess, err)}
	}
	order, cancelled, released, err := a.svc.CancelOrder(ctx, sess, id)
	if err != nil {
		return dto.OrderTransitionResult{ActionResult: fail("cancel_order", sess, err)}
	}
	a.invalidate(ctx, sess.OrgID, []uuid.UUID{id}, productIDsOf(cancelled))
	log.Info().
		Str("order_id", id.String()).
		Int("allocations_cancelled", len(cancelled)).
		Int("quantity_released", released).
		Msg("order cancelled")
	return dto.OrderTransitionResult{ActionResult: ok(), OrderID: order.ID.String(), Status: order.Status}
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (a *allocationActions) GetAvailableBatches(ctx context.Context, sess dto.Session, productID string) dto.AvailableBatchesResult {
	id, err := parseID("product_id", productID)
	if err != nil {
		return dto.AvailableBatchesResult{ActionResult: fail("get_available_batches", sess, err), Batches: []dto.BatchCandidate{}}
	}
	key, cacheable := a.viewKey(ctx, ProductScope(sess.OrgID, id), func(gen int64) string {
		return BatchesKey(sess.OrgID, id, gen)
	})
	var cached []dto.BatchCandidate
	if cacheable && a.cache.Get(ctx, key, &cached) {
		return dto.AvailableBatchesResult{ActionResult: ok(), ProductID: id.String(), Batches: cached}
	}

	batches, err := a.svc.AvailableBatches(ctx, sess, id)
	if err != nil {
		return dto.AvailableBatchesResult{ActionResult: fail("get_available_batches", sess, err), Batches: []dto.BatchCandidate{}}
	}
	if cacheable {
		a.cache.Set(ctx, key, batches)
	}
	return dto.AvailableBatchesResult{ActionResult: ok(), ProductID: id.String(), Batches: batches}
}

func (a *allocationActions) GetProductStockStatus(ctx context.Context, sess dto.Session, productID string) dto.ProductStockStatusResult {
	id, err := parseID("product_id", productID)
	if err != nil {
		return dto.ProductStockStatusResult{ActionResult: fail("get_stock_status", sess, err)}
	}
	key, cacheable := a.viewKey(ctx, ProductScope(sess.OrgID, id), func(gen int64) string {
		return StockStatusKey(sess.OrgID, id, gen)
	})
	var cached dto.ProductStockStatus
	if cacheable && a.cache.Get(ctx, key, &cached) {
		return dto.ProductStockStatusResult{ActionResult: ok(), Status: &cached}
	}

	status, err := a.svc.StockStatus(ctx, sess, id)
	if err != nil {
		return dto.ProductStockStatusResult{ActionResult: fail("get_stock_status", sess, err)}
	}
	if cacheable {
		a.cache.Set(ctx, key, status)
	}
	return dto.ProductStockStatusResult{ActionResult: ok(), Status: status}
}

func (a *allocationActions) GetOrderAllocations(ctx context.Context, sess dto.Session, orderID string) dto.OrderAllocationsResult {
	id, err := parseID("order_id", orderID)
	if err != nil {
		return dto.OrderAllocationsResult{ActionResult: fail("get_order_allocations", sess, err), Allocations: []dto.AllocationView{}}
	}
	key, cacheable := a.viewKey(ctx, OrderScope(sess.OrgID, id), func(gen int64) string {
		return OrderAllocationsKey(sess.OrgID, id, gen)
	})
	var cached dto.OrderAllocationsResult
	if cacheable && a.cache.Get(ctx, key, &cached) {
		return cached
	}

	order, rows, err := a.svc.OrderAllocations(ctx, sess, id)
	if err != nil {
		return dto.OrderAllocationsResult{ActionResult: fail("get_order_allocations", sess, err), Allocations: []dto.AllocationView{}}
	}
	res := BuildOrderAllocations(order, rows)
	if cacheable {
		a.cache.Set(ctx, key, res)
	}
	return res
}

// BuildOrderAllocations projects the ledger rows of an order into the view shown
// to pickers. Line totals use the picked quantity once known; cancelled rows are
// listed but not counted in the total.
func BuildOrderAllocations(order *model.Order, rows []model.Allocation) dto.OrderAllocationsResult {
	prices := make(map[uuid.UUID]decimal.Decimal, len(order.Items))
	for _, item := range order.Items {
		prices[item.ID] = item.UnitPrice
	}

	views := make([]dto.AllocationView, 0, len(rows))
	total := decimal.Zero
	for _, r := range rows {
		v := allocationToView(&r, prices[r.OrderItemID])
		if r.Status != allocation.StatusCancelled {
			total = total.Add(v.LineTotal)
		}
		views = append(views, v)
	}

	return dto.OrderAllocationsResult{
		ActionResult: ok(),
		OrderID:      order.ID.String(),
		OrderNumber:  order.OrderNumber,
		Customer:     order.CustomerName,
		OrderStatus:  order.Status,
		Allocations:  views,
		TotalValue:   total,
	}
}

func allocationToView(a *model.Allocation, unitPrice decimal.Decimal) dto.AllocationView {
	qty := a.Quantity
	if a.PickedQuantity != nil {
		qty = *a.PickedQuantity
	}
	v := dto.AllocationView{
		ID:             a.ID.String(),
		OrderItemID:    a.OrderItemID.String(),
		ProductID:      a.ProductID.String(),
		Tier:           string(a.Tier),
		Status:         string(a.Status),
		Quantity:       a.Quantity,
		PickedQuantity: a.PickedQuantity,
		Shortage:       a.Shortage,
		UnitPrice:      unitPrice,
		LineTotal:      unitPrice.Mul(decimal.NewFromInt(int64(qty))),
		ReservedAt:     a.ReservedAt.Format(time.RFC3339),
		AllocatedAt:    formatTime(a.AllocatedAt),
		PickedAt:       formatTime(a.PickedAt),
	}
	if a.Product != nil {
		v.ProductName = a.Product.Name
	}
	if a.BatchID != nil {
		s := a.BatchID.String()
		v.BatchID = &s
	}
	if a.Batch != nil {
		num, loc := a.Batch.BatchNumber, a.Batch.Location
		v.BatchNumber = &num
		v.Location = &loc
	}
	return v
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
