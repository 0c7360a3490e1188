package repository

import (
	"context"
	"time"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BatchRepository covers the batch quantities the allocation workflow moves.
// Quantity changes are single conditional UPDATE statements so that two pickers
// racing for the same batch are serialized by the row lock the UPDATE takes.
type BatchRepository interface {
	FindByIDTx(tx *gorm.DB, orgID, id uuid.UUID) (*model.Batch, error)
	// Candidates lists saleable batches of a product with plants left, oldest first.
	Candidates(ctx context.Context, orgID, productID uuid.UUID) ([]model.Batch, error)
	// SumSaleableTx is the calculated stock of a product.
	SumSaleableTx(tx *gorm.DB, orgID, productID uuid.UUID) (int, error)
	// DecrementAvailableTx takes qty plants off the batch only if it still holds
	// at least qty. ok=false means nothing was changed.
	DecrementAvailableTx(tx *gorm.DB, orgID, id uuid.UUID, qty int) (after int, ok bool, err error)
	IncrementAvailableTx(tx *gorm.DB, orgID, id uuid.UUID, qty int) (after int, err error)

	DB() *gorm.DB
}

type batchRepo struct{ db *gorm.DB }

func NewBatchRepository(db *gorm.DB) BatchRepository { return &batchRepo{db: db} }

func (r *batchRepo) DB() *gorm.DB { return r.db }

func saleable(q *gorm.DB) *gorm.DB {
	return q.Where("sales_status = ? AND status <> ? AND quantity > 0", model.SalesAvailable, model.BatchArchived)
}

func (r *batchRepo) FindByIDTx(tx *gorm.DB, orgID, id uuid.UUID) (*model.Batch, error) {
	var b model.Batch
	err := tx.Where("id = ? AND org_id = ?", id, orgID).First(&b).Error
	if err != nil {
		return nil, translate(err, "batch "+id.String())
	}
	return &b, nil
}

func (r *batchRepo) Candidates(ctx context.Context, orgID, productID uuid.UUID) ([]model.Batch, error) {
	var batches []model.Batch
	q := r.db.WithContext(ctx).Where("org_id = ? AND product_id = ?", orgID, productID)
	err := saleable(q).Order("planted_at ASC, batch_number ASC").Find(&batches).Error
	return batches, translate(err, "batch candidates")
}

func (r *batchRepo) SumSaleableTx(tx *gorm.DB, orgID, productID uuid.UUID) (int, error) {
	var sum int
	q := tx.Model(&model.Batch{}).Where("org_id = ? AND product_id = ?", orgID, productID)
	err := saleable(q).Select("COALESCE(SUM(quantity), 0)").Scan(&sum).Error
	return sum, translate(err, "calculated stock")
}

func (r *batchRepo) DecrementAvailableTx(tx *gorm.DB, orgID, id uuid.UUID, qty int) (int, bool, error) {
	res := tx.Model(&model.Batch{}).
		Where("id = ? AND org_id = ? AND quantity >= ?", id, orgID, qty).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, false, translate(res.Error, "batch "+id.String())
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	after, err := r.quantityTx(tx, id)
	return after, true, err
}

func (r *batchRepo) IncrementAvailableTx(tx *gorm.DB, orgID, id uuid.UUID, qty int) (int, error) {
	res := tx.Model(&model.Batch{}).
		Where("id = ? AND org_id = ?", id, orgID).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, translate(res.Error, "batch "+id.String())
	}
	if res.RowsAffected == 0 {
		return 0, translate(gorm.ErrRecordNotFound, "batch "+id.String())
	}
	return r.quantityTx(tx, id)
}

// quantityTx reads back the quantity of a row this transaction already holds.
func (r *batchRepo) quantityTx(tx *gorm.DB, id uuid.UUID) (int, error) {
	var q int
	err := tx.Model(&model.Batch{}).Select("quantity").Where("id = ?", id).Scan(&q).Error
	return q, translate(err, "batch "+id.String())
}
