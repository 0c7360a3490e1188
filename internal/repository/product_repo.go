package repository

import (
	"context"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type ProductRepository interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Product, error)

	// FindForUpdateTx locks the product row. Confirmations and batch selections
	// of the same product take it, so ATS is never read mid-selection.
	FindForUpdateTx(tx *gorm.DB, orgID, id uuid.UUID) (*model.Product, error)

	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) DB() *gorm.DB { return r.db }

func (r *productRepo) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("id = ? AND org_id = ? AND active = true", id, orgID).First(&p).Error
	if err != nil {
		return nil, translate(err, "product "+id.String())
	}
	return &p, nil
}

func (r *productRepo) FindForUpdateTx(tx *gorm.DB, orgID, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND org_id = ?", id, orgID).First(&p).Error
	if err != nil {
		return nil, translate(err, "product "+id.String())
	}
	return &p, nil
}
