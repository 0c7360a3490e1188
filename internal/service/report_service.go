package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/dto"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/infra"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportService renders documents for the dispatch floor: the pick list an
// operator walks the benches with, the allocation export for the office, and the
// movement trail of a batch.
type ReportService interface {
	PickListPDF(ctx context.Context, sess dto.Session, orderID uuid.UUID) ([]byte, string, error)
	AllocationsXLSX(ctx context.Context, sess dto.Session, orderID uuid.UUID) ([]byte, string, error)
	BatchMovements(ctx context.Context, sess dto.Session, batchID uuid.UUID, filter dto.MovementFilter) (*dto.StockMovementListResponse, error)
}

type reportService struct {
	allocations AllocationService
	batches     repository.BatchRepository
	movements   repository.StockMovementRepository
}

func NewReportService(allocations AllocationService, batches repository.BatchRepository, movements repository.StockMovementRepository) ReportService {
	return &reportService{allocations: allocations, batches: batches, movements: movements}
}

func (s *reportService) orderView(ctx context.Context, sess dto.Session, orderID uuid.UUID) (dto.OrderAllocationsResult, error) {
	order, rows, err := s.allocations.OrderAllocations(ctx, sess, orderID)
	if err != nil {
		return dto.OrderAllocationsResult{}, err
	}
	return BuildOrderAllocations(order, rows), nil
}

func (s *reportService) PickListPDF(ctx context.Context, sess dto.Session, orderID uuid.UUID) ([]byte, string, error) {
	view, err := s.orderView(ctx, sess, orderID)
	if err != nil {
		return nil, "", err
	}
	b, err := infra.GeneratePickListPDF(view, time.Now())
	if err != nil {
		return nil, "", err
	}
	return b, fmt.Sprintf("pick-list-%s.pdf", view.OrderNumber), nil
}

func (s *reportService) AllocationsXLSX(ctx context.Context, sess dto.Session, orderID uuid.UUID) ([]byte, string, error) {
	view, err := s.orderView(ctx, sess, orderID)
	if err != nil {
		return nil, "", err
	}
	b, err := infra.GenerateAllocationsXLSX(view)
	if err != nil {
		return nil, "", err
	}
	return b, fmt.Sprintf("allocations-%s.xlsx", view.OrderNumber), nil
}

func (s *reportService) BatchMovements(ctx context.Context, sess dto.Session, batchID uuid.UUID, filter dto.MovementFilter) (*dto.StockMovementListResponse, error) {
	var reader *gorm.DB
	if db := s.batches.DB(); db != nil {
		reader = db.WithContext(ctx)
	}
	// scopes the listing to the caller's organization
	if _, err := s.batches.FindByIDTx(reader, sess.OrgID, batchID); err != nil {
		return nil, err
	}

	movements, total, err := s.movements.List(ctx, sess.OrgID, repository.StockMovementFilter{
		BatchID: batchID,
		Page:    filter.Page,
		Limit:   filter.Limit,
	})
	if err != nil {
		return nil, err
	}

	data := make([]dto.StockMovementResponse, 0, len(movements))
	for _, m := range movements {
		r := dto.StockMovementResponse{
			ID:            m.ID.String(),
			BatchID:       m.BatchID.String(),
			Kind:          m.Kind,
			Delta:         m.Delta,
			QuantityAfter: m.QuantityAfter,
			Reason:        m.Reason,
			CreatedAt:     m.CreatedAt.Format(time.RFC3339),
		}
		if m.AllocationID != nil {
			id := m.AllocationID.String()
			r.AllocationID = &id
		}
		data = append(data, r)
	}
	return &dto.StockMovementListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}
