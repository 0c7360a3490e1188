package handler

import (
	"fmt"
	"net/http"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/allocation"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/dto"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportsHandler struct{ svc service.ReportService }

func NewReportsHandler(svc service.ReportService) *ReportsHandler { return &ReportsHandler{svc: svc} }

func parsePathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, fmt.Errorf("%w: id is not a valid id", allocation.ErrValidation))
		return uuid.Nil, false
	}
	return id, true
}

// PickList godoc
// @Summary      Pick list PDF
// @Tags         reports
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path     string true "Order UUID"
// @Success      200  {file}   binary
// @Failure      404  {object} dto.ActionResult
// @Router       /v1/orders/{id}/pick-list.pdf [get]
func (h *ReportsHandler) PickList(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := parsePathID(c)
	if !ok {
		return
	}
	b, name, err := h.svc.PickListPDF(c.Request.Context(), sess, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, name))
	c.Data(http.StatusOK, "application/pdf", b)
}

// AllocationsExport godoc
// @Summary      Allocation ledger export (XLSX)
// @Tags         reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        id   path     string true "Order UUID"
// @Success      200  {file}   binary
// @Failure      404  {object} dto.ActionResult
// @Router       /v1/orders/{id}/allocations.xlsx [get]
func (h *ReportsHandler) AllocationsExport(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := parsePathID(c)
	if !ok {
		return
	}
	b, name, err := h.svc.AllocationsXLSX(c.Request.Context(), sess, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, b)
}

// BatchMovements godoc
// @Summary      Stock movements of a batch
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        id    path     string true  "Batch UUID"
// @Param        page  query    int    false "Page (default 1)"
// @Param        limit query    int    false "Page size (default 50, max 500)"
// @Success      200   {object} dto.StockMovementListResponse
// @Failure      404   {object} dto.ActionResult
// @Router       /v1/batches/{id}/movements [get]
func (h *ReportsHandler) BatchMovements(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := parsePathID(c)
	if !ok {
		return
	}
	var filter dto.MovementFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondError(c, fmt.Errorf("%w: %s", allocation.ErrValidation, err.Error()))
		return
	}
	if !validateStruct(c, &filter) {
		return
	}
	resp, err := h.svc.BatchMovements(c.Request.Context(), sess, id, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
