package handler

import (
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/dto"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/service"

	"github.com/gin-gonic/gin"
)

// AllocationsHandler exposes the allocation actions. Every endpoint answers with
// the action result; the HTTP status mirrors its error kind.
type AllocationsHandler struct{ actions service.AllocationActions }

func NewAllocationsHandler(actions service.AllocationActions) *AllocationsHandler {
	return &AllocationsHandler{actions: actions}
}

// ConfirmOrder godoc
// @Summary      Confirm an order
// @Description  Reserves every order line against product ATS (tier 1). Lines that oversell an allow-oversell product come back as warnings.
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Order UUID"
// @Success      200  {object} dto.ConfirmOrderResult
// @Failure      409  {object} dto.ConfirmOrderResult
// @Failure      422  {object} dto.ConfirmOrderResult
// @Router       /v1/orders/{id}/confirm [post]
func (h *AllocationsHandler) ConfirmOrder(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	res := h.actions.ConfirmOrderWithAllocations(c.Request.Context(), sess, c.Param("id"))
	c.JSON(statusFor(res.ActionResult), res)
}

// StartPicking godoc
// @Summary      Start picking an order
// @Description  Moves a confirmed order to picking and lists the reservations still waiting for a batch. Calling it again returns the remaining ones.
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Order UUID"
// @Success      200  {object} dto.StartPickingResult
// @Failure      422  {object} dto.StartPickingResult
// @Router       /v1/orders/{id}/start-picking [post]
func (h *AllocationsHandler) StartPicking(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	res := h.actions.StartPickingOrder(c.Request.Context(), sess, c.Param("id"))
	c.JSON(statusFor(res.ActionResult), res)
}

// DispatchOrder godoc
// @Summary      Dispatch an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Order UUID"
// @Success      200  {object} dto.OrderTransitionResult
// @Failure      422  {object} dto.OrderTransitionResult
// @Router       /v1/orders/{id}/dispatch [post]
func (h *AllocationsHandler) DispatchOrder(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	res := h.actions.DispatchOrder(c.Request.Context(), sess, c.Param("id"))
	c.JSON(statusFor(res.ActionResult), res)
}

// CancelOrder godoc
// @Summary      Cancel an order
// @Description  Cancels every live allocation of the order, returning batch stock, then cancels the order.
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Order UUID"
// @Success      200  {object} dto.OrderTransitionResult
// @Failure      422  {object} dto.OrderTransitionResult
// @Router       /v1/orders/{id}/cancel [post]
func (h *AllocationsHandler) CancelOrder(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	res := h.actions.CancelOrder(c.Request.Context(), sess, c.Param("id"))
	c.JSON(statusFor(res.ActionResult), res)
}

// OrderAllocations godoc
// @Summary      Allocation ledger of an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Order UUID"
// @Success      200  {object} dto.OrderAllocationsResult
// @Failure      404  {object} dto.OrderAllocationsResult
// @Router       /v1/orders/{id}/allocations [get]
func (h *AllocationsHandler) OrderAllocations(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	res := h.actions.GetOrderAllocations(c.Request.Context(), sess, c.Param("id"))
	c.JSON(statusFor(res.ActionResult), res)
}

// SelectBatch godoc
// @Summary      Bind a reservation to a batch
// @Description  Atomically takes the reserved quantity off the batch. Fails with 409 when the batch no longer holds enough plants.
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                 true "Allocation UUID"
// @Param        body body     dto.SelectBatchRequest true "Chosen batch"
// @Success      200  {object} dto.SelectBatchResult
// @Failure      409  {object} dto.SelectBatchResult
// @Failure      422  {object} dto.SelectBatchResult
// @Router       /v1/allocations/{id}/select-batch [post]
func (h *AllocationsHandler) SelectBatch(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req dto.SelectBatchRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res := h.actions.SelectBatchForAllocation(c.Request.Context(), sess, c.Param("id"), req)
	c.JSON(statusFor(res.ActionResult), res)
}

// MarkPicked godoc
// @Summary      Record a pick
// @Description  Records the picked quantity. Short picks are accepted and reported as a shortage.
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                true "Allocation UUID"
// @Param        body body     dto.MarkPickedRequest true "Picked quantity"
// @Success      200  {object} dto.MarkPickedResult
// @Failure      422  {object} dto.MarkPickedResult
// @Router       /v1/allocations/{id}/picked [post]
func (h *AllocationsHandler) MarkPicked(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req dto.MarkPickedRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res := h.actions.MarkAllocationPicked(c.Request.Context(), sess, c.Param("id"), req)
	c.JSON(statusFor(res.ActionResult), res)
}

// CancelAllocation godoc
// @Summary      Cancel an allocation
// @Description  Idempotent. Batch tier allocations return their plants to the batch.
// @Tags         allocations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Allocation UUID"
// @Success      200  {object} dto.CancelAllocationResult
// @Failure      422  {object} dto.CancelAllocationResult
// @Router       /v1/allocations/{id}/cancel [post]
func (h *AllocationsHandler) CancelAllocation(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	res := h.actions.CancelAllocation(c.Request.Context(), sess, c.Param("id"))
	c.JSON(statusFor(res.ActionResult), res)
}

// AvailableBatches godoc
// @Summary      Batches a picker can choose for a product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Product UUID"
// @Success      200  {object} dto.AvailableBatchesResult
// @Failure      404  {object} dto.AvailableBatchesResult
// @Router       /v1/products/{id}/batches [get]
func (h *AllocationsHandler) AvailableBatches(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	res := h.actions.GetAvailableBatches(c.Request.Context(), sess, c.Param("id"))
	c.JSON(statusFor(res.ActionResult), res)
}

// StockStatus godoc
// @Summary      Available-to-sell status of a product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Product UUID"
// @Success      200  {object} dto.ProductStockStatusResult
// @Failure      404  {object} dto.ProductStockStatusResult
// @Router       /v1/products/{id}/stock-status [get]
func (h *AllocationsHandler) StockStatus(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	res := h.actions.GetProductStockStatus(c.Request.Context(), sess, c.Param("id"))
	c.JSON(statusFor(res.ActionResult), res)
}
