// cmd/seed — loads a demo nursery: products, batches and one draft order.
// Usage: go run ./cmd/seed
// Rows use fixed ids, so running it twice leaves the data unchanged.
package main

import (
	"os"
	"time"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/config"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/infra"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	orgID = uuid.MustParse("00000000-0000-4000-8000-000000000001")

	buxusID    = uuid.MustParse("00000000-0000-4000-8001-000000000001")
	lavenderID = uuid.MustParse("00000000-0000-4000-8001-000000000002")
	hebeID     = uuid.MustParse("00000000-0000-4000-8001-000000000003")

	orderID = uuid.MustParse("00000000-0000-4000-8003-000000000001")
)

func intPtr(n int) *int { return &n }

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL, cfg.DBDebug)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	now := time.Now()
	weeksAgo := func(w int) time.Time { return now.AddDate(0, 0, -7*w) }

	products := []model.Product{
		{ID: buxusID, OrgID: orgID, SKU: "BUX-9", Name: "Buxus sempervirens 9cm", Active: true},
		{ID: lavenderID, OrgID: orgID, SKU: "LAV-2L", Name: "Lavandula angustifolia 2L", Active: true, AllowOversell: true, LowStockThreshold: intPtr(20)},
		{ID: hebeID, OrgID: orgID, SKU: "HEB-3L", Name: "Hebe 'Red Edge' 3L", Active: true, ATSOverride: intPtr(40)},
	}
	batches := []model.Batch{
		{ID: uuid.MustParse("00000000-0000-4000-8002-000000000001"), OrgID: orgID, ProductID: buxusID, BatchNumber: "B24-001", Variety: "sempervirens", Quantity: 120, Location: "Tunnel 1 / Bed A", Status: model.BatchReady, SalesStatus: model.SalesAvailable, PlantedAt: weeksAgo(40)},
		{ID: uuid.MustParse("00000000-0000-4000-8002-000000000002"), OrgID: orgID, ProductID: buxusID, BatchNumber: "B24-014", Variety: "sempervirens", Quantity: 80, Location: "Tunnel 1 / Bed C", Status: model.BatchGrowing, SalesStatus: model.SalesAvailable, PlantedAt: weeksAgo(22)},
		{ID: uuid.MustParse("00000000-0000-4000-8002-000000000003"), OrgID: orgID, ProductID: lavenderID, BatchNumber: "L25-003", Variety: "Hidcote", Quantity: 15, Location: "Yard 2", Status: model.BatchReady, SalesStatus: model.SalesAvailable, PlantedAt: weeksAgo(18)},
		{ID: uuid.MustParse("00000000-0000-4000-8002-000000000004"), OrgID: orgID, ProductID: lavenderID, BatchNumber: "L25-009", Variety: "Munstead", Quantity: 60, Location: "Yard 2", Status: model.BatchGrowing, SalesStatus: model.SalesOnHold, PlantedAt: weeksAgo(8)},
		{ID: uuid.MustParse("00000000-0000-4000-8002-000000000005"), OrgID: orgID, ProductID: hebeID, BatchNumber: "H24-021", Variety: "Red Edge", Quantity: 55, Location: "Tunnel 3", Status: model.BatchReady, SalesStatus: model.SalesAvailable, PlantedAt: weeksAgo(52)},
	}
	order := model.Order{ID: orderID, OrgID: orgID, OrderNumber: "SO-1001", CustomerName: "Greenfields Garden Centre", Status: model.OrderDraft}
	items := []model.OrderItem{
		{ID: uuid.MustParse("00000000-0000-4000-8004-000000000001"), OrgID: orgID, OrderID: orderID, ProductID: buxusID, Quantity: 50, UnitPrice: decimal.RequireFromString("3.20")},
		{ID: uuid.MustParse("00000000-0000-4000-8004-000000000002"), OrgID: orgID, OrderID: orderID, ProductID: lavenderID, Quantity: 24, UnitPrice: decimal.RequireFromString("6.50")},
		{ID: uuid.MustParse("00000000-0000-4000-8004-000000000003"), OrgID: orgID, OrderID: orderID, ProductID: hebeID, Quantity: 10, UnitPrice: decimal.RequireFromString("8.95")},
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		ignore := tx.Clauses(clause.OnConflict{DoNothing: true})
		if err := ignore.Create(&products).Error; err != nil {
			return err
		}
		if err := ignore.Create(&batches).Error; err != nil {
			return err
		}
		if err := ignore.Omit(clause.Associations).Create(&order).Error; err != nil {
			return err
		}
		return ignore.Omit(clause.Associations).Create(&items).Error
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	log.Info().
		Str("org_id", orgID.String()).
		Str("order_id", orderID.String()).
		Int("products", len(products)).
		Int("batches", len(batches)).
		Msg("demo nursery seeded")
}
