package infra

import (
	"fmt"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, installs the
// OpenTelemetry plugin and brings the allocation schema up to date (see RunMigrations).
func NewDatabase(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Silent
	if debug {
		level = logger.Warn
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	// Query spans go to the global tracer provider (a no-op until one is installed).
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		log.Warn().Err(err).Msg("otelgorm plugin not installed")
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates the tables from the models, then applies the constraints
// GORM cannot express. Used by NewDatabase and by the integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Product{},
		&model.Batch{},
		&model.Order{},
		&model.OrderItem{},
		&model.Allocation{},
		&model.StockMovement{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot handle: CHECK
// constraints and partial indexes. Each statement is guarded by an existence
// check so re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// The conditional decrement never lets quantity go negative; this constraint
		// catches any other writer. repository.translate maps it to a stock error.
		{"batches quantity >= 0", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'batches_quantity_nonnegative') THEN
    ALTER TABLE batches ADD CONSTRAINT batches_quantity_nonnegative CHECK (quantity >= 0);
  END IF;
END $$`},
		{"allocation tier/batch consistency", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'allocation_ledger_tier_batch') THEN
    ALTER TABLE allocation_ledger ADD CONSTRAINT allocation_ledger_tier_batch CHECK (
      (tier = 'product' AND batch_id IS NULL) OR (tier = 'batch' AND batch_id IS NOT NULL)
    );
  END IF;
END $$`},
		{"allocation status domain", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'allocation_ledger_status') THEN
    ALTER TABLE allocation_ledger ADD CONSTRAINT allocation_ledger_status CHECK (
      status IN ('reserved', 'allocated', 'picked', 'shipped', 'cancelled')
    );
  END IF;
END $$`},
		{"allocation quantities", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'allocation_ledger_quantities') THEN
    ALTER TABLE allocation_ledger ADD CONSTRAINT allocation_ledger_quantities CHECK (
      quantity > 0 AND (picked_quantity IS NULL OR (picked_quantity >= 0 AND picked_quantity <= quantity))
    );
  END IF;
END $$`},
		// One live allocation per order item: a second ConfirmOrder racing the first
		// fails with a unique violation instead of double reserving.
		{"one active allocation per order item", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_allocation_ledger_active_item') THEN
    CREATE UNIQUE INDEX idx_allocation_ledger_active_item
        ON allocation_ledger (order_item_id)
        WHERE status <> 'cancelled';
  END IF;
END $$`},
		// ATS sums reserved product tier rows per product.
		{"reserved product tier index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_allocation_ledger_reserved') THEN
    CREATE INDEX idx_allocation_ledger_reserved
        ON allocation_ledger (org_id, product_id)
        WHERE tier = 'product' AND status = 'reserved';
  END IF;
END $$`},
		{"saleable batches index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_batches_saleable') THEN
    CREATE INDEX idx_batches_saleable
        ON batches (org_id, product_id, planted_at)
        WHERE sales_status = 'available' AND status <> 'archived' AND quantity > 0;
  END IF;
END $$`},
		{"unique order number per organization", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_orders_org_number') THEN
    CREATE UNIQUE INDEX idx_orders_org_number ON orders (org_id, order_number);
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
