package router

import (
	"time"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/config"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/handler"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/infra"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/middleware"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/repository"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Actions ← Service ← Repository ← DB/Redis
// rdb may be nil: the view cache is then disabled.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())

	// ── Infrastructure ───────────────────────────────────────────────────────
	var cacheCB *infra.CircuitBreaker
	var viewCache service.ViewCache
	if rdb != nil && cfg.CacheTTL() > 0 {
		cacheCB = infra.NewCircuitBreaker(infra.DefaultCBConfig())
		viewCache = infra.NewViewCache(rdb, cacheCB, cfg.CacheTTL())
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	allocationSvc := service.NewAllocationService(
		orderRepo, productRepo, batchRepo, allocationRepo, movementRepo, cfg.DefaultLowStockThreshold,
	)
	actions := service.NewAllocationActions(allocationSvc, viewCache)
	reportSvc := service.NewReportService(allocationSvc, batchRepo, movementRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	allocH := handler.NewAllocationsHandler(actions)
	reportsH := handler.NewReportsHandler(reportSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, cacheCB))

	// Protected routes. The limiter runs after auth so it can key by user.
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute))
	{
		// Roles: picker, sales, manager, admin — declared per-endpoint
		anyone := middleware.RequireRole(middleware.RolePicker, middleware.RoleSales, middleware.RoleManager, middleware.RoleAdmin)
		sales := middleware.RequireRole(middleware.RoleSales, middleware.RoleManager, middleware.RoleAdmin)
		floor := middleware.RequireRole(middleware.RolePicker, middleware.RoleManager, middleware.RoleAdmin)

		orders := v1.Group("/orders")
		{
			orders.POST("/:id/confirm", sales, allocH.ConfirmOrder)
			orders.POST("/:id/cancel", sales, allocH.CancelOrder)
			orders.POST("/:id/start-picking", floor, allocH.StartPicking)
			orders.POST("/:id/dispatch", floor, allocH.DispatchOrder)
			orders.GET("/:id/allocations", anyone, allocH.OrderAllocations)
			orders.GET("/:id/pick-list.pdf", anyone, reportsH.PickList)
			orders.GET("/:id/allocations.xlsx", sales, reportsH.AllocationsExport)
		}

		allocations := v1.Group("/allocations")
		{
			allocations.POST("/:id/select-batch", floor, allocH.SelectBatch)
			allocations.POST("/:id/picked", floor, allocH.MarkPicked)
			allocations.POST("/:id/cancel", anyone, allocH.CancelAllocation)
		}

		products := v1.Group("/products", anyone)
		{
			products.GET("/:id/batches", allocH.AvailableBatches)
			products.GET("/:id/stock-status", allocH.StockStatus)
		}

		v1.GET("/batches/:id/movements", middleware.RequireRole(middleware.RoleManager, middleware.RoleAdmin), reportsH.BatchMovements)
	}

	// Swagger UI — only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
