package repository

import (
	"context"
	"time"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository defines data access for orders and their items. Every lookup
// is scoped to the caller's organization.
type OrderRepository interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Order, error)

	// Used inside transactions — callers must pass the tx instance
	FindByIDTx(tx *gorm.DB, orgID, id uuid.UUID) (*model.Order, error)
	FindForUpdateTx(tx *gorm.DB, orgID, id uuid.UUID) (*model.Order, error)
	ItemsTx(tx *gorm.DB, orgID, orderID uuid.UUID) ([]model.OrderItem, error)
	UpdateStatusTx(tx *gorm.DB, orgID, id uuid.UUID, status string, at time.Time) error

	DB() *gorm.DB
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) OrderRepository { return &orderRepo{db: db} }

func (r *orderRepo) DB() *gorm.DB { return r.db }

func (r *orderRepo) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Preload("Items.Product").
		Where("id = ? AND org_id = ?", id, orgID).First(&o).Error
	if err != nil {
		return nil, translate(err, "order "+id.String())
	}
	return &o, nil
}

func (r *orderRepo) FindByIDTx(tx *gorm.DB, orgID, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	if err := tx.Where("id = ? AND org_id = ?", id, orgID).First(&o).Error; err != nil {
		return nil, translate(err, "order "+id.String())
	}
	return &o, nil
}

// FindForUpdateTx locks the order row until the transaction ends, serializing
// status transitions of the same order.
func (r *orderRepo) FindForUpdateTx(tx *gorm.DB, orgID, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND org_id = ?", id, orgID).First(&o).Error
	if err != nil {
		return nil, translate(err, "order "+id.String())
	}
	return &o, nil
}

func (r *orderRepo) ItemsTx(tx *gorm.DB, orgID, orderID uuid.UUID) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := tx.Preload("Product").
		Where("order_id = ? AND org_id = ?", orderID, orgID).
		Order("created_at ASC, id ASC").Find(&items).Error
	return items, translate(err, "order items")
}

func (r *orderRepo) UpdateStatusTx(tx *gorm.DB, orgID, id uuid.UUID, status string, at time.Time) error {
	updates := map[string]interface{}{"status": status, "updated_at": at}
	switch status {
	case model.OrderConfirmed:
		updates["confirmed_at"] = at
	case model.OrderDispatched:
		updates["dispatched_at"] = at
	case model.OrderCancelled:
		updates["cancelled_at"] = at
	}
	err := tx.Model(&model.Order{}).Where("id = ? AND org_id = ?", id, orgID).Updates(updates).Error
	return translate(err, "order "+id.String())
}
