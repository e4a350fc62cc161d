package service

import (
	"context"
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/repository"
)

// Exportable lists the datasets ExportCSV accepts.
var Exportable = []string{"projects", "equipment", "inventory", "attendance", "ncrs", "purchases"}

// table is a header row plus the rows under it, all as text.
type table struct {
	header []string
	rows   [][]string
}

// ExportCSV writes dataset as comma-separated text: a header row, then one
// row per record in list order.  Fields containing commas, quotes or line
// breaks are quoted (RFC 4180).
func (s *Service) ExportCSV(ctx context.Context, dataset string, w io.Writer) error {
	var (
		t   table
		err error
	)
	switch dataset {
	case "projects":
		t, err = s.projectTable(ctx)
	case "equipment":
		t, err = s.equipmentTable(ctx)
	case "inventory":
		t, err = s.inventoryTable(ctx)
	case "attendance":
		t, err = s.attendanceTable(ctx)
	case "ncrs":
		t, err = s.ncrTable(ctx)
	case "purchases":
		t, err = s.purchaseTable(ctx)
	default:
		return invalid("unknown export %q", dataset)
	}
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.rows); err != nil {
		return err
	}
	return cw.Error()
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }
func i64(v int64) string  { return strconv.FormatInt(v, 10) }

func optDateText(d *model.Date) string {
	if d == nil {
		return ""
	}
	return string(*d)
}

func millisText(ms *int64) string {
	if ms == nil {
		return ""
	}
	return time.UnixMilli(*ms).UTC().Format(time.RFC3339)
}

func strPtrText(p *string) string { return lo.FromPtr(p) }

func (s *Service) projectTable(ctx context.Context) (table, error) {
	rows, err := s.projects.List(ctx, repository.ProjectFilter{})
	if err != nil {
		return table{}, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return table{
		header: []string{"ID", "Project ID", "Name", "Client", "Location", "Start Date", "End Date", "Budget", "Currency", "Status", "Documents"},
		rows: lo.Map(rows, func(p model.Project, _ int) []string {
			return []string{u64(p.ID), p.ProjectID, p.Name, p.Client.Name, p.Location, string(p.StartDate), string(p.EndDate),
				p.Budget.StringFixed(2), p.Currency, string(p.Status), strconv.Itoa(p.DocumentCount())}
		}),
	}, nil
}

func (s *Service) equipmentTable(ctx context.Context) (table, error) {
	rows, err := s.equipment.List(ctx, repository.EquipmentFilter{})
	if err != nil {
		return table{}, err
	}
	return table{
		header: []string{"ID", "Name", "Type", "Serial Number", "Status", "Location", "Last Maintenance", "Notes"},
		rows: lo.Map(rows, func(e model.Equipment, _ int) []string {
			return []string{u64(e.ID), e.Name, e.Type, e.SerialNumber, string(e.Status), e.Location, optDateText(e.LastMaintenance), e.Notes}
		}),
	}, nil
}

func (s *Service) inventoryTable(ctx context.Context) (table, error) {
	rows, err := s.inventory.ListItems(ctx, repository.ItemFilter{})
	if err != nil {
		return table{}, err
	}
	return table{
		header: []string{"ID", "Name", "SKU", "Category", "Unit", "Quantity", "Min Quantity", "Location", "Unit Cost", "Low Stock"},
		rows: lo.Map(rows, func(i model.InventoryItem, _ int) []string {
			return []string{u64(i.ID), i.Name, i.SKU, i.Category, i.Unit, i64(i.Quantity), i64(i.MinQuantity), i.Location,
				i.UnitCost.StringFixed(2), strconv.FormatBool(i.LowStock())}
		}),
	}, nil
}

func (s *Service) attendanceTable(ctx context.Context) (table, error) {
	rows, err := s.ListAttendance(ctx, AttendanceFilter{})
	if err != nil {
		return table{}, err
	}
	return table{
		header: []string{"ID", "User", "Date", "Check In", "Check Out", "Status", "Location", "Notes"},
		rows: lo.Map(rows, func(a AttendanceView, _ int) []string {
			return []string{u64(a.ID), a.UserName, string(a.Date), millisText(a.CheckIn), millisText(a.CheckOut), string(a.Status), a.Location, a.Notes}
		}),
	}, nil
}

func (s *Service) ncrTable(ctx context.Context) (table, error) {
	rows, err := s.ListNCRs(ctx, QualityFilter{})
	if err != nil {
		return table{}, err
	}
	return table{
		header: []string{"ID", "Project", "Title", "Category", "Severity", "Status", "Detected By", "Assigned To", "Detected Date", "Closed Date", "Description", "Corrective Action"},
		rows: lo.Map(rows, func(n NCRView, _ int) []string {
			return []string{u64(n.ID), n.ProjectName, n.Title, n.Category, n.Severity, string(n.Status), n.DetectedByName,
				strPtrText(n.AssignedToName), string(n.DetectedDate), optDateText(n.ClosedDate), n.Description, n.CorrectiveAction}
		}),
	}, nil
}

func (s *Service) purchaseTable(ctx context.Context) (table, error) {
	rows, err := s.ListPurchaseRequests(ctx, PurchaseFilter{})
	if err != nil {
		return table{}, err
	}
	return table{
		header: []string{"ID", "Title", "Lines", "Total Estimated Cost", "Status", "Requested By", "Approved By", "Approved At", "Project", "Justification"},
		rows: lo.Map(rows, func(p PurchaseView, _ int) []string {
			return []string{u64(p.ID), p.Title, strconv.Itoa(len(p.Items)), p.TotalEstimatedCost.StringFixed(2), string(p.Status),
				p.RequestedByName, strPtrText(p.ApprovedByName), millisText(p.ApprovedAt), strPtrText(p.ProjectName), p.Justification}
		}),
	}, nil
}
