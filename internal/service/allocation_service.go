package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/allocation"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/dto"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/model"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllocationService holds the allocation procedures. Each mutating method runs in
// exactly one database transaction: either every row it touches changes, or none.
type AllocationService interface {
	ConfirmOrder(ctx context.Context, sess dto.Session, orderID uuid.UUID) ([]model.Allocation, []dto.OversellWarning, error)
	StartPicking(ctx context.Context, sess dto.Session, orderID uuid.UUID) ([]dto.PendingBatchSelection, error)
	SelectBatch(ctx context.Context, sess dto.Session, allocationID, batchID uuid.UUID) (*model.Allocation, error)
	MarkPicked(ctx context.Context, sess dto.Session, allocationID uuid.UUID, pickedQty int) (*model.Allocation, error)
	CancelAllocation(ctx context.Context, sess dto.Session, allocationID uuid.UUID) (int, *model.Allocation, error)
	DispatchOrder(ctx context.Context, sess dto.Session, orderID uuid.UUID) (*model.Order, error)
	CancelOrder(ctx context.Context, sess dto.Session, orderID uuid.UUID) (*model.Order, []model.Allocation, int, error)

	AvailableBatches(ctx context.Context, sess dto.Session, productID uuid.UUID) ([]dto.BatchCandidate, error)
	StockStatus(ctx context.Context, sess dto.Session, productID uuid.UUID) (*dto.ProductStockStatus, error)
	OrderAllocations(ctx context.Context, sess dto.Session, orderID uuid.UUID) (*model.Order, []model.Allocation, error)
}

type allocationService struct {
	orders          repository.OrderRepository
	products        repository.ProductRepository
	batches         repository.BatchRepository
	allocations     repository.AllocationRepository
	movements       repository.StockMovementRepository
	defaultLowStock int
}

func NewAllocationService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	batches repository.BatchRepository,
	allocations repository.AllocationRepository,
	movements repository.StockMovementRepository,
	defaultLowStock int,
) AllocationService {
	return &allocationService{
		orders:          orders,
		products:        products,
		batches:         batches,
		allocations:     allocations,
		movements:       movements,
		defaultLowStock: defaultLowStock,
	}
}

// reader returns a context-bound handle for read-only queries outside a
// transaction, or nil in unit test mode.
func (s *allocationService) reader(ctx context.Context) *gorm.DB {
	db := s.allocations.DB()
	if db == nil {
		return nil
	}
	return db.WithContext(ctx)
}

// effectiveATS computes ATS with the same handle the caller uses, so inside a
// transaction reservations created earlier in it are counted.
func (s *allocationService) effectiveATS(tx *gorm.DB, orgID uuid.UUID, p *model.Product) (ats, calculated, reserved int, err error) {
	calculated, err = s.batches.SumSaleableTx(tx, orgID, p.ID)
	if err != nil {
		return 0, 0, 0, err
	}
	reserved, err = s.allocations.SumReservedTx(tx, orgID, p.ID)
	if err != nil {
		return 0, 0, 0, err
	}
	return allocation.EffectiveATS(calculated, p.ATSOverride, reserved), calculated, reserved, nil
}

// ── ConfirmOrder ──────────────────────────────────────────────────────────────
// Tier-1 reservation:
//   1. Lock the order, require draft with at least one line
//   2. Lock every product of the order in id order (avoids lock cycles between orders)
//   3. Per line: effective ATS, oversell check, one product tier reserved row
//   4. Order → confirmed
// A hard stock failure on any line rolls back the whole order.

func (s *allocationService) ConfirmOrder(ctx context.Context, sess dto.Session, orderID uuid.UUID) ([]model.Allocation, []dto.OversellWarning, error) {
	var created []model.Allocation
	warnings := make([]dto.OversellWarning, 0)

	err := runTx(ctx, s.allocations.DB(), func(tx *gorm.DB) error {
		order, err := s.orders.FindForUpdateTx(tx, sess.OrgID, orderID)
		if err != nil {
			return err
		}
		if order.Status != model.OrderDraft {
			return fmt.Errorf("%w: order %s is %s, only draft orders can be confirmed",
				allocation.ErrValidation, order.OrderNumber, order.Status)
		}

		items, err := s.orders.ItemsTx(tx, sess.OrgID, orderID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("%w: order %s has no items", allocation.ErrValidation, order.OrderNumber)
		}

		products, err := s.lockProducts(tx, sess.OrgID, items)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, item := range items {
			if item.Quantity <= 0 {
				return fmt.Errorf("%w: order item %s has quantity %d", allocation.ErrValidation, item.ID, item.Quantity)
			}
			product := products[item.ProductID]
			if !product.Active {
				return fmt.Errorf("%w: product %s is inactive", allocation.ErrValidation, product.Name)
			}

			existing, err := s.allocations.ActiveQuantityByItemTx(tx, sess.OrgID, item.ID)
			if err != nil {
				return err
			}
			if existing > 0 {
				return fmt.Errorf("%w: order item %s already holds %d allocated units",
					allocation.ErrValidation, item.ID, existing)
			}

			ats, _, _, err := s.effectiveATS(tx, sess.OrgID, product)
			if err != nil {
				return err
			}
			warning, err := allocation.CheckOversell(product.Name, item.Quantity, ats, product.AllowOversell)
			if err != nil {
				return err
			}
			if warning != "" {
				warnings = append(warnings, dto.OversellWarning{
					OrderItemID:       item.ID.String(),
					ProductID:         product.ID.String(),
					RequestedQuantity: item.Quantity,
					Warning:           warning,
				})
			}

			userID := sess.UserID
			a := model.Allocation{
				ID:          uuid.New(),
				OrgID:       sess.OrgID,
				OrderID:     orderID,
				OrderItemID: item.ID,
				ProductID:   item.ProductID,
				Tier:        allocation.TierProduct,
				Status:      allocation.StatusReserved,
				Quantity:    item.Quantity,
				ReservedAt:  now,
				CreatedBy:   &userID,
			}
			if err := s.allocations.CreateTx(tx, &a); err != nil {
				return err
			}
			a.Product = product
			created = append(created, a)
		}

		return s.orders.UpdateStatusTx(tx, sess.OrgID, orderID, model.OrderConfirmed, now)
	})
	if err != nil {
		return nil, nil, err
	}
	return created, warnings, nil
}

func (s *allocationService) lockProducts(tx *gorm.DB, orgID uuid.UUID, items []model.OrderItem) (map[uuid.UUID]*model.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	products := make(map[uuid.UUID]*model.Product, len(ids))
	for _, id := range ids {
		p, err := s.products.FindForUpdateTx(tx, orgID, id)
		if err != nil {
			return nil, err
		}
		products[id] = p
	}
	return products, nil
}

// ── StartPicking ──────────────────────────────────────────────────────────────

func (s *allocationService) StartPicking(ctx context.Context, sess dto.Session, orderID uuid.UUID) ([]dto.PendingBatchSelection, error) {
	pending := make([]dto.PendingBatchSelection, 0)

	err := runTx(ctx, s.allocations.DB(), func(tx *gorm.DB) error {
		order, err := s.orders.FindForUpdateTx(tx, sess.OrgID, orderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case model.OrderConfirmed:
			if err := s.orders.UpdateStatusTx(tx, sess.OrgID, orderID, model.OrderPicking, time.Now()); err != nil {
				return err
			}
		case model.OrderPicking:
			// re-entry: return what is still pending
		default:
			return fmt.Errorf("%w: order %s is %s, picking can only start on a confirmed order",
				allocation.ErrValidation, order.OrderNumber, order.Status)
		}

		rows, err := s.allocations.ListByOrderTx(tx, sess.OrgID, orderID)
		if err != nil {
			return err
		}
		for _, a := range rows {
			if a.Tier != allocation.TierProduct || a.Status != allocation.StatusReserved {
				continue
			}
			name := ""
			if a.Product != nil {
				name = a.Product.Name
			}
			pending = append(pending, dto.PendingBatchSelection{
				AllocationID: a.ID.String(),
				OrderItemID:  a.OrderItemID.String(),
				ProductID:    a.ProductID.String(),
				ProductName:  name,
				Quantity:     a.Quantity,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// ── SelectBatch ───────────────────────────────────────────────────────────────
// Tier-1 → Tier-2. Lock order: allocation, product, batch. The batch decrement
// is a single conditional UPDATE; when it changes no row the batch no longer
// holds enough plants and the transaction is rolled back before the allocation
// row is touched.

func (s *allocationService) SelectBatch(ctx context.Context, sess dto.Session, allocationID, batchID uuid.UUID) (*model.Allocation, error) {
	var result *model.Allocation

	err := runTx(ctx, s.allocations.DB(), func(tx *gorm.DB) error {
		a, err := s.allocations.FindForUpdateTx(tx, sess.OrgID, allocationID)
		if err != nil {
			return err
		}
		if a.Tier != allocation.TierProduct {
			return fmt.Errorf("%w: allocation %s is already bound to a batch", allocation.ErrValidation, a.ID)
		}
		if err := allocation.Transition(a.Status, allocation.StatusAllocated); err != nil {
			return err
		}

		order, err := s.orders.FindByIDTx(tx, sess.OrgID, a.OrderID)
		if err != nil {
			return err
		}
		if order.Status != model.OrderPicking {
			return fmt.Errorf("%w: order %s is %s, batches are selected while picking",
				allocation.ErrValidation, order.OrderNumber, order.Status)
		}

		// The reservation leaves the ATS sum and the batch leaves it in the same
		// commit; holding the product row keeps ConfirmOrder from reading between.
		if _, err := s.products.FindForUpdateTx(tx, sess.OrgID, a.ProductID); err != nil {
			return err
		}

		batch, err := s.batches.FindByIDTx(tx, sess.OrgID, batchID)
		if err != nil {
			return err
		}
		if batch.ProductID != a.ProductID {
			return fmt.Errorf("%w: batch %s is not a batch of the allocated product", allocation.ErrValidation, batch.BatchNumber)
		}
		if !batch.Saleable() {
			return fmt.Errorf("%w: batch %s is not available for sale (%s, %s)",
				allocation.ErrValidation, batch.BatchNumber, batch.Status, batch.SalesStatus)
		}

		after, ok, err := s.batches.DecrementAvailableTx(tx, sess.OrgID, batchID, a.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: batch %s has fewer than %d plants available",
				allocation.ErrInsufficientStock, batch.BatchNumber, a.Quantity)
		}

		now := time.Now()
		a.Tier = allocation.TierBatch
		a.Status = allocation.StatusAllocated
		a.BatchID = &batchID
		a.AllocatedAt = &now
		if err := allocation.CheckTierBatch(a.Tier, a.BatchID); err != nil {
			return err
		}
		if err := s.allocations.SaveTx(tx, a); err != nil {
			return err
		}

		if err := s.recordMovement(tx, sess, batchID, a.ID, model.MovementAllocation, -a.Quantity, after,
			fmt.Sprintf("Allocated to order %s", order.OrderNumber)); err != nil {
			return err
		}

		batch.Quantity = after
		a.Batch = batch
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ── MarkPicked ────────────────────────────────────────────────────────────────
// Short picks are recorded, never rejected: packing/QC decide what to do with them.

func (s *allocationService) MarkPicked(ctx context.Context, sess dto.Session, allocationID uuid.UUID, pickedQty int) (*model.Allocation, error) {
	var result *model.Allocation

	err := runTx(ctx, s.allocations.DB(), func(tx *gorm.DB) error {
		a, err := s.allocations.FindForUpdateTx(tx, sess.OrgID, allocationID)
		if err != nil {
			return err
		}
		if err := allocation.Transition(a.Status, allocation.StatusPicked); err != nil {
			return err
		}
		if err := allocation.ValidatePickedQuantity(a.Quantity, pickedQty); err != nil {
			return err
		}

		now := time.Now()
		picked := pickedQty
		a.Status = allocation.StatusPicked
		a.PickedQuantity = &picked
		a.Shortage = allocation.Shortage(a.Quantity, pickedQty)
		a.PickedAt = &now
		if err := s.allocations.SaveTx(tx, a); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ── CancelAllocation ──────────────────────────────────────────────────────────

func (s *allocationService) CancelAllocation(ctx context.Context, sess dto.Session, allocationID uuid.UUID) (int, *model.Allocation, error) {
	var released int
	var result *model.Allocation

	err := runTx(ctx, s.allocations.DB(), func(tx *gorm.DB) error {
		a, err := s.allocations.FindForUpdateTx(tx, sess.OrgID, allocationID)
		if err != nil {
			return err
		}
		released, err = s.cancelTx(tx, sess, a, time.Now())
		result = a
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return released, result, nil
}

// cancelTx releases a locked allocation row. Already cancelled rows release
// nothing, so retries never credit a pool twice. Product tier rows free their
// quantity simply by leaving the reserved set; batch tier rows put plants back
// on the batch (the picked quantity once picked).
func (s *allocationService) cancelTx(tx *gorm.DB, sess dto.Session, a *model.Allocation, now time.Time) (int, error) {
	if a.Status == allocation.StatusCancelled {
		return 0, nil
	}
	if err := allocation.Transition(a.Status, allocation.StatusCancelled); err != nil {
		return 0, err
	}

	released := a.Quantity
	if a.Tier == allocation.TierBatch {
		if a.Status == allocation.StatusPicked && a.PickedQuantity != nil {
			released = *a.PickedQuantity
		}
		if released > 0 {
			after, err := s.batches.IncrementAvailableTx(tx, sess.OrgID, *a.BatchID, released)
			if err != nil {
				return 0, err
			}
			if err := s.recordMovement(tx, sess, *a.BatchID, a.ID, model.MovementRelease, released, after,
				"Allocation cancelled"); err != nil {
				return 0, err
			}
		}
	}

	a.Status = allocation.StatusCancelled
	a.CancelledAt = &now
	if err := s.allocations.SaveTx(tx, a); err != nil {
		return 0, err
	}
	return released, nil
}

func (s *allocationService) recordMovement(tx *gorm.DB, sess dto.Session, batchID, allocationID uuid.UUID, kind string, delta, after int, reason string) error {
	userID := sess.UserID
	allocID := allocationID
	return s.movements.CreateTx(tx, &model.StockMovement{
		ID:            uuid.New(),
		OrgID:         sess.OrgID,
		BatchID:       batchID,
		Kind:          kind,
		Delta:         delta,
		QuantityAfter: after,
		AllocationID:  &allocID,
		UserID:        &userID,
		Reason:        reason,
	})
}

// ── DispatchOrder ─────────────────────────────────────────────────────────────

func (s *allocationService) DispatchOrder(ctx context.Context, sess dto.Session, orderID uuid.UUID) (*model.Order, error) {
	var result *model.Order

	err := runTx(ctx, s.allocations.DB(), func(tx *gorm.DB) error {
		order, err := s.orders.FindForUpdateTx(tx, sess.OrgID, orderID)
		if err != nil {
			return err
		}
		if order.Status != model.OrderPicking {
			return fmt.Errorf("%w: order %s is %s, only orders being picked can be dispatched",
				allocation.ErrValidation, order.OrderNumber, order.Status)
		}

		rows, err := s.allocations.ListByOrderTx(tx, sess.OrgID, orderID)
		if err != nil {
			return err
		}
		var toShip []uuid.UUID
		unpicked := 0
		for _, a := range rows {
			switch a.Status {
			case allocation.StatusPicked:
				toShip = append(toShip, a.ID)
			case allocation.StatusReserved, allocation.StatusAllocated:
				unpicked++
			}
		}
		if unpicked > 0 {
			return fmt.Errorf("%w: order %s still has %d allocations not picked",
				allocation.ErrValidation, order.OrderNumber, unpicked)
		}
		if len(toShip) == 0 {
			return fmt.Errorf("%w: order %s has nothing picked to dispatch", allocation.ErrValidation, order.OrderNumber)
		}

		now := time.Now()
		for _, id := range toShip {
			a, err := s.allocations.FindForUpdateTx(tx, sess.OrgID, id)
			if err != nil {
				return err
			}
			if err := allocation.Transition(a.Status, allocation.StatusShipped); err != nil {
				return err
			}
			a.Status = allocation.StatusShipped
			a.ShippedAt = &now
			if err := s.allocations.SaveTx(tx, a); err != nil {
				return err
			}
		}

		if err := s.orders.UpdateStatusTx(tx, sess.OrgID, orderID, model.OrderDispatched, now); err != nil {
			return err
		}
		order.Status = model.OrderDispatched
		order.DispatchedAt = &now
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ── CancelOrder ───────────────────────────────────────────────────────────────
// Releases every active allocation with the same rules as CancelAllocation.
// Cancelling a cancelled order is a no-op.

func (s *allocationService) CancelOrder(ctx context.Context, sess dto.Session, orderID uuid.UUID) (*model.Order, []model.Allocation, int, error) {
	var result *model.Order
	var cancelled []model.Allocation
	total := 0

	err := runTx(ctx, s.allocations.DB(), func(tx *gorm.DB) error {
		order, err := s.orders.FindForUpdateTx(tx, sess.OrgID, orderID)
		if err != nil {
			return err
		}
		result = order
		switch order.Status {
		case model.OrderCancelled:
			return nil
		case model.OrderDispatched:
			return fmt.Errorf("%w: order %s has been dispatched and cannot be cancelled",
				allocation.ErrValidation, order.OrderNumber)
		}

		rows, err := s.allocations.ListByOrderTx(tx, sess.OrgID, orderID)
		if err != nil {
			return err
		}
		now := time.Now()
		for _, row := range rows {
			if !row.Status.IsActive() {
				continue
			}
			a, err := s.allocations.FindForUpdateTx(tx, sess.OrgID, row.ID)
			if err != nil {
				return err
			}
			released, err := s.cancelTx(tx, sess, a, now)
			if err != nil {
				return err
			}
			total += released
			cancelled = append(cancelled, *a)
		}

		if err := s.orders.UpdateStatusTx(tx, sess.OrgID, orderID, model.OrderCancelled, now); err != nil {
			return err
		}
		order.Status = model.OrderCancelled
		order.CancelledAt = &now
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}
	return result, cancelled, total, nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *allocationService) AvailableBatches(ctx context.Context, sess dto.Session, productID uuid.UUID) ([]dto.BatchCandidate, error) {
	if _, err := s.products.FindByID(ctx, sess.OrgID, productID); err != nil {
		return nil, err
	}
	batches, err := s.batches.Candidates(ctx, sess.OrgID, productID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]dto.BatchCandidate, 0, len(batches))
	for _, b := range batches {
		out = append(out, batchToCandidate(&b, now))
	}
	return out, nil
}

func (s *allocationService) StockStatus(ctx context.Context, sess dto.Session, productID uuid.UUID) (*dto.ProductStockStatus, error) {
	p, err := s.products.FindByID(ctx, sess.OrgID, productID)
	if err != nil {
		return nil, err
	}
	ats, calculated, reserved, err := s.effectiveATS(s.reader(ctx), sess.OrgID, p)
	if err != nil {
		return nil, err
	}
	threshold := s.defaultLowStock
	if p.LowStockThreshold != nil {
		threshold = *p.LowStockThreshold
	}
	level := allocation.StockLevel(ats, threshold)
	return &dto.ProductStockStatus{
		ProductID:         p.ID.String(),
		ProductName:       p.Name,
		CalculatedStock:   calculated,
		ATSOverride:       p.ATSOverride,
		ReservedQuantity:  reserved,
		EffectiveATS:      ats,
		LowStockThreshold: threshold,
		AllowOversell:     p.AllowOversell,
		Level:             string(level),
		IsLowStock:        level != allocation.LevelOK,
	}, nil
}

func (s *allocationService) OrderAllocations(ctx context.Context, sess dto.Session, orderID uuid.UUID) (*model.Order, []model.Allocation, error) {
	order, err := s.orders.FindByID(ctx, sess.OrgID, orderID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.allocations.ListByOrder(ctx, sess.OrgID, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, rows, nil
}

func batchToCandidate(b *model.Batch, now time.Time) dto.BatchCandidate {
	ageWeeks := 0
	planted := ""
	if !b.PlantedAt.IsZero() {
		ageWeeks = int(now.Sub(b.PlantedAt).Hours() / (24 * 7))
		planted = b.PlantedAt.Format("2006-01-02")
	}
	return dto.BatchCandidate{
		ID:                b.ID.String(),
		BatchNumber:       b.BatchNumber,
		Variety:           b.Variety,
		AvailableQuantity: b.Quantity,
		Location:          b.Location,
		Status:            b.Status,
		SalesStatus:       b.SalesStatus,
		AgeWeeks:          ageWeeks,
		PlantedAt:         planted,
	}
}
