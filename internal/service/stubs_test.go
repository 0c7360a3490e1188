package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/allocation"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/dto"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/model"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── In-memory store shared by the repository stubs ───────────────────────────
// One mutex guards everything; each stub method is atomic, which is what the
// single SQL statements behind the real repositories give us. Rows are copied
// in and out so callers never alias stored state.

type memStore struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]model.Order
	items     map[uuid.UUID]model.OrderItem
	products  map[uuid.UUID]model.Product
	batches   map[uuid.UUID]model.Batch
	allocs    map[uuid.UUID]model.Allocation
	movements []model.StockMovement
	seq       int

	failWith error // returned by every repository call when set

	// Row lock emulation. locks logs every lock or conditional decrement in
	// order. With holdLocks set a product lock stays held until releaseLocks,
	// and a second lock on it fails with errRowLocked where Postgres would wait.
	locks     []string
	holdLocks bool
	held      map[uuid.UUID]bool

	afterSaleableSum func() // runs once, between the two ATS statements
}

var errRowLocked = errors.New("row locked by another transaction")

func newMemStore() *memStore {
	return &memStore{
		orders:   map[uuid.UUID]model.Order{},
		items:    map[uuid.UUID]model.OrderItem{},
		products: map[uuid.UUID]model.Product{},
		batches:  map[uuid.UUID]model.Batch{},
		allocs:   map[uuid.UUID]model.Allocation{},
		held:     map[uuid.UUID]bool{},
	}
}

func (s *memStore) releaseLocks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = map[uuid.UUID]bool{}
}

func (s *memStore) lockLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.locks...)
}

func errNotFoundStub(what string) error { return fmt.Errorf("%s %w", what, allocation.ErrNotFound) }

// tick returns strictly increasing timestamps so ordering by time is stable.
func (s *memStore) tick() time.Time {
	s.seq++
	return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Millisecond)
}

// ── Orders ───────────────────────────────────────────────────────────────────

type stubOrderRepo struct{ s *memStore }

var _ repository.OrderRepository = (*stubOrderRepo)(nil)

func (r *stubOrderRepo) DB() *gorm.DB { return nil }

func (r *stubOrderRepo) find(orgID, id uuid.UUID) (*model.Order, error) {
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	o, ok := r.s.orders[id]
	if !ok || o.OrgID != orgID {
		return nil, errNotFoundStub("order")
	}
	return &o, nil
}

func (r *stubOrderRepo) FindByID(_ context.Context, orgID, id uuid.UUID) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, err := r.find(orgID, id)
	if err != nil {
		return nil, err
	}
	o.Items = r.itemsOf(orgID, id)
	return o, nil
}

func (r *stubOrderRepo) FindByIDTx(_ *gorm.DB, orgID, id uuid.UUID) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(orgID, id)
}

func (r *stubOrderRepo) FindForUpdateTx(_ *gorm.DB, orgID, id uuid.UUID) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(orgID, id)
}

func (r *stubOrderRepo) itemsOf(orgID, orderID uuid.UUID) []model.OrderItem {
	var out []model.OrderItem
	for _, it := range r.s.items {
		if it.OrderID == orderID && it.OrgID == orgID {
			if p, ok := r.s.products[it.ProductID]; ok {
				it.Product = &p
			}
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *stubOrderRepo) ItemsTx(_ *gorm.DB, orgID, orderID uuid.UUID) ([]model.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	return r.itemsOf(orgID, orderID), nil
}

func (r *stubOrderRepo) UpdateStatusTx(_ *gorm.DB, orgID, id uuid.UUID, status string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, err := r.find(orgID, id)
	if err != nil {
		return err
	}
	o.Status = status
	switch status {
	case model.OrderConfirmed:
		o.ConfirmedAt = &at
	case model.OrderDispatched:
		o.DispatchedAt = &at
	case model.OrderCancelled:
		o.CancelledAt = &at
	}
	r.s.orders[id] = *o
	return nil
}

// ── Products ─────────────────────────────────────────────────────────────────

type stubProductRepo struct{ s *memStore }

var _ repository.ProductRepository = (*stubProductRepo)(nil)

func (r *stubProductRepo) DB() *gorm.DB { return nil }

func (r *stubProductRepo) FindByID(_ context.Context, orgID, id uuid.UUID) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	p, ok := r.s.products[id]
	if !ok || p.OrgID != orgID || !p.Active {
		return nil, errNotFoundStub("product")
	}
	return &p, nil
}

func (r *stubProductRepo) FindForUpdateTx(_ *gorm.DB, orgID, id uuid.UUID) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	p, ok := r.s.products[id]
	if !ok || p.OrgID != orgID {
		return nil, errNotFoundStub("product")
	}
	r.s.locks = append(r.s.locks, "product:"+id.String())
	if r.s.holdLocks {
		if r.s.held[id] {
			return nil, errRowLocked
		}
		r.s.held[id] = true
	}
	return &p, nil
}

// ── Batches ──────────────────────────────────────────────────────────────────

type stubBatchRepo struct{ s *memStore }

var _ repository.BatchRepository = (*stubBatchRepo)(nil)

func (r *stubBatchRepo) DB() *gorm.DB { return nil }

func saleableStub(b model.Batch) bool { return b.Saleable() && b.Quantity > 0 }

func (r *stubBatchRepo) FindByIDTx(_ *gorm.DB, orgID, id uuid.UUID) (*model.Batch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	b, ok := r.s.batches[id]
	if !ok || b.OrgID != orgID {
		return nil, errNotFoundStub("batch")
	}
	return &b, nil
}

func (r *stubBatchRepo) Candidates(_ context.Context, orgID, productID uuid.UUID) ([]model.Batch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	var out []model.Batch
	for _, b := range r.s.batches {
		if b.OrgID == orgID && b.ProductID == productID && saleableStub(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlantedAt.Equal(out[j].PlantedAt) {
			return out[i].PlantedAt.Before(out[j].PlantedAt)
		}
		return out[i].BatchNumber < out[j].BatchNumber
	})
	return out, nil
}

func (r *stubBatchRepo) SumSaleableTx(_ *gorm.DB, orgID, productID uuid.UUID) (int, error) {
	sum, err := r.sumSaleable(orgID, productID)
	if err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	hook := r.s.afterSaleableSum
	r.s.afterSaleableSum = nil
	r.s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return sum, nil
}

func (r *stubBatchRepo) sumSaleable(orgID, productID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return 0, r.s.failWith
	}
	sum := 0
	for _, b := range r.s.batches {
		if b.OrgID == orgID && b.ProductID == productID && saleableStub(b) {
			sum += b.Quantity
		}
	}
	return sum, nil
}

func (r *stubBatchRepo) DecrementAvailableTx(_ *gorm.DB, orgID, id uuid.UUID, qty int) (int, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return 0, false, r.s.failWith
	}
	r.s.locks = append(r.s.locks, "batch:"+id.String())
	b, ok := r.s.batches[id]
	if !ok || b.OrgID != orgID || b.Quantity < qty {
		return 0, false, nil
	}
	b.Quantity -= qty
	r.s.batches[id] = b
	return b.Quantity, true, nil
}

func (r *stubBatchRepo) IncrementAvailableTx(_ *gorm.DB, orgID, id uuid.UUID, qty int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return 0, r.s.failWith
	}
	b, ok := r.s.batches[id]
	if !ok || b.OrgID != orgID {
		return 0, errNotFoundStub("batch")
	}
	b.Quantity += qty
	r.s.batches[id] = b
	return b.Quantity, nil
}

// ── Allocations ──────────────────────────────────────────────────────────────

type stubAllocationRepo struct{ s *memStore }

var _ repository.AllocationRepository = (*stubAllocationRepo)(nil)

func (r *stubAllocationRepo) DB() *gorm.DB { return nil }

func (r *stubAllocationRepo) CreateTx(_ *gorm.DB, a *model.Allocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return r.s.failWith
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	row := *a
	row.Product, row.Batch = nil, nil
	row.ReservedAt = r.s.tick()
	r.s.allocs[a.ID] = row
	return nil
}

func (r *stubAllocationRepo) FindForUpdateTx(_ *gorm.DB, orgID, id uuid.UUID) (*model.Allocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	a, ok := r.s.allocs[id]
	if !ok || a.OrgID != orgID {
		return nil, errNotFoundStub("allocation")
	}
	return &a, nil
}

func (r *stubAllocationRepo) SaveTx(_ *gorm.DB, a *model.Allocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return r.s.failWith
	}
	row := *a
	row.Product, row.Batch = nil, nil
	r.s.allocs[a.ID] = row
	return nil
}

func (r *stubAllocationRepo) listByOrder(orgID, orderID uuid.UUID) []model.Allocation {
	var out []model.Allocation
	for _, a := range r.s.allocs {
		if a.OrgID == orgID && a.OrderID == orderID {
			if p, ok := r.s.products[a.ProductID]; ok {
				a.Product = &p
			}
			if a.BatchID != nil {
				if b, ok := r.s.batches[*a.BatchID]; ok {
					a.Batch = &b
				}
			}
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservedAt.Before(out[j].ReservedAt) })
	return out
}

func (r *stubAllocationRepo) ListByOrderTx(_ *gorm.DB, orgID, orderID uuid.UUID) ([]model.Allocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	return r.listByOrder(orgID, orderID), nil
}

func (r *stubAllocationRepo) ListByOrder(_ context.Context, orgID, orderID uuid.UUID) ([]model.Allocation, error) {
	return r.ListByOrderTx(nil, orgID, orderID)
}

func (r *stubAllocationRepo) SumReservedTx(_ *gorm.DB, orgID, productID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return 0, r.s.failWith
	}
	sum := 0
	for _, a := range r.s.allocs {
		if a.OrgID == orgID && a.ProductID == productID &&
			a.Tier == allocation.TierProduct && a.Status == allocation.StatusReserved {
			sum += a.Quantity
		}
	}
	return sum, nil
}

func (r *stubAllocationRepo) ActiveQuantityByItemTx(_ *gorm.DB, orgID, orderItemID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return 0, r.s.failWith
	}
	sum := 0
	for _, a := range r.s.allocs {
		if a.OrgID == orgID && a.OrderItemID == orderItemID && a.Status != allocation.StatusCancelled {
			sum += a.Quantity
		}
	}
	return sum, nil
}

// ── Stock movements ──────────────────────────────────────────────────────────

type stubMovementRepo struct{ s *memStore }

var _ repository.StockMovementRepository = (*stubMovementRepo)(nil)

func (r *stubMovementRepo) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return r.s.failWith
	}
	m.CreatedAt = r.s.tick()
	r.s.movements = append(r.s.movements, *m)
	return nil
}

func (r *stubMovementRepo) List(_ context.Context, orgID uuid.UUID, f repository.StockMovementFilter) ([]model.StockMovement, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, 0, r.s.failWith
	}
	var out []model.StockMovement
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		m := r.s.movements[i]
		if m.OrgID == orgID && (f.BatchID == uuid.Nil || m.BatchID == f.BatchID) {
			out = append(out, m)
		}
	}
	return out, int64(len(out)), nil
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	store *memStore
	svc   AllocationService
	sess  dto.Session
}

func newFixture() *fixture {
	s := newMemStore()
	svc := NewAllocationService(
		&stubOrderRepo{s}, &stubProductRepo{s}, &stubBatchRepo{s},
		&stubAllocationRepo{s}, &stubMovementRepo{s}, 10,
	)
	return &fixture{
		store: s,
		svc:   svc,
		sess:  dto.Session{OrgID: uuid.New(), UserID: uuid.New(), Role: "manager"},
	}
}

type productOpt func(*model.Product)

func withOversell() productOpt { return func(p *model.Product) { p.AllowOversell = true } }
func withOverride(n int) productOpt { return func(p *model.Product) { p.ATSOverride = &n } }
func withThreshold(n int) productOpt { return func(p *model.Product) { p.LowStockThreshold = &n } }
func inactive() productOpt { return func(p *model.Product) { p.Active = false } }
func inOrg(orgID uuid.UUID) productOpt { return func(p *model.Product) { p.OrgID = orgID } }

func (f *fixture) seedProduct(name string, opts ...productOpt) model.Product {
	p := model.Product{ID: uuid.New(), OrgID: f.sess.OrgID, SKU: name, Name: name, Active: true}
	for _, o := range opts {
		o(&p)
	}
	f.store.products[p.ID] = p
	return p
}

func (f *fixture) seedBatch(productID uuid.UUID, number string, qty int, plantedWeeksAgo int) model.Batch {
	b := model.Batch{
		ID:          uuid.New(),
		OrgID:       f.sess.OrgID,
		ProductID:   productID,
		BatchNumber: number,
		Quantity:    qty,
		Location:    "Tunnel 1",
		Status:      model.BatchReady,
		SalesStatus: model.SalesAvailable,
		PlantedAt:   time.Now().UTC().AddDate(0, 0, -7*plantedWeeksAgo),
	}
	f.store.batches[b.ID] = b
	return b
}

type line struct {
	product uuid.UUID
	qty     int
}

func (f *fixture) seedOrder(number, status string, lines ...line) model.Order {
	o := model.Order{ID: uuid.New(), OrgID: f.sess.OrgID, OrderNumber: number, CustomerName: "Greenfields", Status: status}
	f.store.orders[o.ID] = o
	for _, l := range lines {
		it := model.OrderItem{
			ID: uuid.New(), OrgID: f.sess.OrgID, OrderID: o.ID, ProductID: l.product, Quantity: l.qty,
			CreatedAt: f.store.tick(),
		}
		f.store.items[it.ID] = it
	}
	return o
}

func (f *fixture) order(id uuid.UUID) model.Order { return f.store.orders[id] }
func (f *fixture) batch(id uuid.UUID) model.Batch { return f.store.batches[id] }
func (f *fixture) alloc(id uuid.UUID) model.Allocation { return f.store.allocs[id] }
