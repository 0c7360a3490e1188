package infra

// pdf.go — Pick list generation using go-pdf/fpdf.
// One A4 page per order with:
//   - Order number, customer and print timestamp
//   - One row per active allocation: product, batch, location, quantity, picked
//   - Empty "picked" column for product tier rows so pickers can write it in
//   - Line value total
//
// The document is returned as bytes; handlers stream it to the client.

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/dto"

	"github.com/go-pdf/fpdf"
)

// GeneratePickListPDF renders the pick list of one order.
func GeneratePickListPDF(view dto.OrderAllocationsResult, printedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	renderPickList(pdf, view, printedAt)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render pick list: %w", err)
	}
	return buf.Bytes(), nil
}

func renderPickList(pdf *fpdf.Fpdf, view dto.OrderAllocationsResult, printedAt time.Time) {
	// Core fonts are cp1252; names typed in UTF-8 (cultivars, customers) go through tr.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetMargins(12, 12, 12)
	pdf.SetTitle("Pick list "+view.OrderNumber, true)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 24

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Pick list", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW/2, 6, "Order: "+tr(view.OrderNumber), "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, printedAt.Format("02/01/2006 15:04"), "", 1, "R", false, 0, "")
	pdf.CellFormat(contentW/2, 6, "Customer: "+tr(view.Customer), "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, "Status: "+view.OrderStatus, "", 1, "R", false, 0, "")
	pdf.Ln(4)

	// ── Table header ─────────────────────────────────────────────────────────
	cols := []struct {
		title string
		w     float64
		align string
	}{
		{"Product", contentW * 0.32, "L"},
		{"Batch", contentW * 0.16, "L"},
		{"Location", contentW * 0.18, "L"},
		{"Qty", contentW * 0.10, "C"},
		{"Picked", contentW * 0.10, "C"},
		{"Status", contentW * 0.14, "C"},
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 236, 228)
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		pdf.CellFormat(c.w, 7, c.title, "1", ln, c.align, true, 0, "")
	}

	// ── Rows ─────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 9)
	lines := 0
	for _, a := range view.Allocations {
		if a.Status == "cancelled" {
			continue
		}
		batch, location, picked := "-", "-", ""
		if a.BatchNumber != nil {
			batch = *a.BatchNumber
		}
		if a.Location != nil {
			location = *a.Location
		}
		if a.PickedQuantity != nil {
			picked = fmt.Sprintf("%d", *a.PickedQuantity)
		}
		cells := []string{tr(truncate(a.ProductName, 34)), tr(batch), tr(location), fmt.Sprintf("%d", a.Quantity), picked, a.Status}
		for i, c := range cols {
			ln := 0
			if i == len(cols)-1 {
				ln = 1
			}
			pdf.CellFormat(c.w, 7, cells[i], "1", ln, c.align, false, 0, "")
		}
		lines++
	}
	if lines == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(contentW, 7, "Nothing to pick", "1", 1, "C", false, 0, "")
	}

	// ── Footer ───────────────────────────────────────────────────────────────
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW*0.8, 6, "Order value:", "", 0, "R", false, 0, "")
	pdf.CellFormat(contentW*0.2, 6, view.TotalValue.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW/2, 6, "Picked by: ____________________", "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, "Checked by: ____________________", "", 1, "R", false, 0, "")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	// core fonts are cp1252, so no ellipsis rune
	return string(r[:n-3]) + "..."
}
