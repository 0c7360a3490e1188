package infra

import (
	"bytes"
	"fmt"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/dto"

	"github.com/xuri/excelize/v2"
)

const allocationSheet = "Allocations"

var allocationHeadings = []string{
	"Allocation", "Product", "Tier", "Status", "Batch", "Location",
	"Quantity", "Picked", "Shortage", "Unit price", "Line total", "Reserved at",
}

// GenerateAllocationsXLSX exports the allocation ledger of an order as a single
// sheet workbook.
func GenerateAllocationsXLSX(view dto.OrderAllocationsResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", allocationSheet); err != nil {
		return nil, fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	for i, h := range allocationHeadings {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(allocationSheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(allocationHeadings), 1)
		f.SetCellStyle(allocationSheet, "A1", last, style)
	}

	for r, a := range view.Allocations {
		row := []any{
			a.ID,
			a.ProductName,
			a.Tier,
			a.Status,
			deref(a.BatchNumber),
			deref(a.Location),
			a.Quantity,
			derefInt(a.PickedQuantity),
			derefInt(a.Shortage),
			a.UnitPrice.InexactFloat64(),
			a.LineTotal.InexactFloat64(),
			a.ReservedAt,
		}
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(allocationSheet, cell, v)
		}
	}

	totalRow := len(view.Allocations) + 3
	label, _ := excelize.CoordinatesToCellName(10, totalRow)
	value, _ := excelize.CoordinatesToCellName(11, totalRow)
	f.SetCellValue(allocationSheet, label, "Total")
	f.SetCellValue(allocationSheet, value, view.TotalValue.InexactFloat64())

	f.SetColWidth(allocationSheet, "A", "A", 38)
	f.SetColWidth(allocationSheet, "B", "B", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: write workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// derefInt returns "" for nil so empty cells stay empty instead of showing 0.
func derefInt(n *int) any {
	if n == nil {
		return ""
	}
	return *n
}
