package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/allocation"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/dto"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newReportFixture(t *testing.T) (*fixture, ReportService, model.Order, model.Batch) {
	t.Helper()
	f := newFixture()
	reports := NewReportService(f.svc, &stubBatchRepo{f.store}, &stubMovementRepo{f.store})

	p := f.seedProduct("Buxus 9cm")
	b := f.seedBatch(p.ID, "B24-001", 100, 20)
	o, pending := f.pickingOrder(t, line{p.ID, 25})
	_, err := f.svc.SelectBatch(context.Background(), f.sess, mustParse(t, pending[0].AllocationID), b.ID)
	require.NoError(t, err)
	return f, reports, o, b
}

func TestPickListPDF(t *testing.T) {
	f, reports, o, _ := newReportFixture(t)

	pdf, name, err := reports.PickListPDF(context.Background(), f.sess, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "pick-list-"+o.OrderNumber+".pdf", name)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestAllocationsXLSX(t *testing.T) {
	f, reports, o, _ := newReportFixture(t)

	raw, name, err := reports.AllocationsXLSX(context.Background(), f.sess, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "allocations-"+o.OrderNumber+".xlsx", name)

	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Allocations")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Contains(t, rows[1], "B24-001")
}

func TestReportsUnknownOrder(t *testing.T) {
	f, reports, _, _ := newReportFixture(t)

	_, _, err := reports.PickListPDF(context.Background(), f.sess, uuid.New())
	assert.Equal(t, allocation.KindNotFound, allocation.KindOf(err))
}

func TestBatchMovements(t *testing.T) {
	f, reports, _, b := newReportFixture(t)

	list, err := reports.BatchMovements(context.Background(), f.sess, b.ID, dto.MovementFilter{Page: 1, Limit: 50})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, model.MovementAllocation, list.Data[0].Kind)
	assert.Equal(t, -25, list.Data[0].Delta)
	assert.Equal(t, 75, list.Data[0].QuantityAfter)
	require.NotNil(t, list.Data[0].AllocationID)

	other := f.sess
	other.OrgID = uuid.New()
	_, err = reports.BatchMovements(context.Background(), other, b.ID, dto.MovementFilter{Page: 1, Limit: 50})
	assert.Equal(t, allocation.KindNotFound, allocation.KindOf(err))
}
