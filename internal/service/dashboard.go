package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/repository"
)

// Overview is the landing-page summary across every module.
type Overview struct {
	ProjectsByStatus         map[model.ProjectStatus]int    `json:"projects_by_status"`
	ActiveProjects           int                            `json:"active_projects"`
	EquipmentByStatus        map[model.EquipmentStatus]int  `json:"equipment_by_status"`
	LowStockItems            []model.InventoryItem          `json:"low_stock_items"`
	PendingInventoryRequests int                            `json:"pending_inventory_requests"`
	PendingPurchaseRequests  int                            `json:"pending_purchase_requests"`
	OpenNCRs                 int                            `json:"open_ncrs"`
	TodayAttendance          map[model.AttendanceStatus]int `json:"today_attendance"`
}

// GetOverview runs one aggregate per table concurrently.
func (s *Service) GetOverview(ctx context.Context) (Overview, error) {
	var (
		ov       Overview
		requests []model.InventoryRequest
		purchase map[model.PurchaseStatus]int
		ncrs     map[string]int
	)
	today := s.today()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { ov.ProjectsByStatus, err = s.projects.CountByStatus(gctx); return })
	g.Go(func() (err error) { ov.EquipmentByStatus, err = s.equipment.CountByStatus(gctx); return })
	g.Go(func() (err error) {
		ov.LowStockItems, err = s.inventory.ListItems(gctx, repository.ItemFilter{LowStock: true})
		return
	})
	g.Go(func() (err error) {
		requests, err = s.inventory.ListRequests(gctx, repository.RequestFilter{Status: model.RequestPending})
		return
	})
	g.Go(func() (err error) { purchase, err = s.purchases.CountByStatus(gctx); return })
	g.Go(func() (err error) { ncrs, err = s.quality.CountNCRsByStatus(gctx, 0); return })
	g.Go(func() (err error) {
		ov.TodayAttendance, err = s.attendance.CountByStatus(gctx, repository.AttendanceFilter{From: today, To: today})
		return
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	ov.ActiveProjects = ov.ProjectsByStatus[model.ProjectActive]
	ov.PendingInventoryRequests = len(requests)
	ov.PendingPurchaseRequests = purchase[model.PurchasePending]
	for st, n := range ncrs {
		if st != string(model.NCRClosed) {
			ov.OpenNCRs += n
		}
	}
	return ov, nil
}
