package repository

import (
	"context"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/allocation"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllocationRepository is the allocation ledger.
type AllocationRepository interface {
	CreateTx(tx *gorm.DB, a *model.Allocation) error
	FindForUpdateTx(tx *gorm.DB, orgID, id uuid.UUID) (*model.Allocation, error)
	SaveTx(tx *gorm.DB, a *model.Allocation) error
	// ListByOrderTx returns the order's rows with Product and Batch preloaded.
	ListByOrderTx(tx *gorm.DB, orgID, orderID uuid.UUID) ([]model.Allocation, error)
	// SumReservedTx adds up active product tier reservations of a product.
	SumReservedTx(tx *gorm.DB, orgID, productID uuid.UUID) (int, error)
	// ActiveQuantityByItemTx adds up active rows of one order item.
	ActiveQuantityByItemTx(tx *gorm.DB, orgID, orderItemID uuid.UUID) (int, error)

	ListByOrder(ctx context.Context, orgID, orderID uuid.UUID) ([]model.Allocation, error)

	DB() *gorm.DB
}

type allocationRepo struct{ db *gorm.DB }

func NewAllocationRepository(db *gorm.DB) AllocationRepository { return &allocationRepo{db: db} }

func (r *allocationRepo) DB() *gorm.DB { return r.db }

func (r *allocationRepo) CreateTx(tx *gorm.DB, a *model.Allocation) error {
	return translate(tx.Create(a).Error, "allocation")
}

func (r *allocationRepo) FindForUpdateTx(tx *gorm.DB, orgID, id uuid.UUID) (*model.Allocation, error) {
	var a model.Allocation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND org_id = ?", id, orgID).First(&a).Error
	if err != nil {
		return nil, translate(err, "allocation "+id.String())
	}
	return &a, nil
}

func (r *allocationRepo) SaveTx(tx *gorm.DB, a *model.Allocation) error {
	return translate(tx.Omit(clause.Associations).Save(a).Error, "allocation "+a.ID.String())
}

func (r *allocationRepo) ListByOrderTx(tx *gorm.DB, orgID, orderID uuid.UUID) ([]model.Allocation, error) {
	var rows []model.Allocation
	err := tx.Preload("Product").Preload("Batch").
		Where("order_id = ? AND org_id = ?", orderID, orgID).
		Order("reserved_at ASC, id ASC").Find(&rows).Error
	return rows, translate(err, "allocations")
}

func (r *allocationRepo) ListByOrder(ctx context.Context, orgID, orderID uuid.UUID) ([]model.Allocation, error) {
	return r.ListByOrderTx(r.db.WithContext(ctx), orgID, orderID)
}

func (r *allocationRepo) SumReservedTx(tx *gorm.DB, orgID, productID uuid.UUID) (int, error) {
	var sum int
	err := tx.Model(&model.Allocation{}).
		Where("org_id = ? AND product_id = ? AND tier = ? AND status = ?",
			orgID, productID, allocation.TierProduct, allocation.StatusReserved).
		Select("COALESCE(SUM(quantity), 0)").Scan(&sum).Error
	return sum, translate(err, "reserved quantity")
}

func (r *allocationRepo) ActiveQuantityByItemTx(tx *gorm.DB, orgID, orderItemID uuid.UUID) (int, error) {
	var sum int
	err := tx.Model(&model.Allocation{}).
		Where("org_id = ? AND order_item_id = ? AND status <> ?", orgID, orderItemID, allocation.StatusCancelled).
		Select("COALESCE(SUM(quantity), 0)").Scan(&sum).Error
	return sum, translate(err, "allocated quantity")
}
