package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/queue"
)

func TestUserEmailIsUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "dup@site.test", "staff")

	_, err := f.svc.CreateUser(ctx, UserInput{Email: "DUP@site.test", FullName: "Again"}, 4)
	assert.True(t, isConflict(err), "got %v", err)

	_, err = f.svc.CreateUser(ctx, UserInput{Email: "not-an-email", FullName: "x"}, 4)
	assert.True(t, isValidation(err), "got %v", err)

	id, err := f.svc.CreateUser(ctx, UserInput{Email: "plain@site.test", FullName: "Plain"}, 4)
	require.NoError(t, err)
	u, err := f.svc.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, u.Role)
	assert.True(t, u.IsActive)
}

func TestDispatchLifecycleMovesEquipment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.user(t, "mgr@site.test", "manager")
	crew := f.user(t, "crew@site.test", "staff")
	pid := f.project(t, mgr, "2025-01-01", "2025-12-31")

	eq, err := f.svc.CreateEquipment(ctx, EquipmentInput{Name: "Excavator 3", Type: "excavator", SerialNumber: "EX-3"})
	require.NoError(t, err)

	did, err := f.svc.CreateDispatch(ctx, DispatchInput{EquipmentID: eq, ProjectID: pid, RequestedBy: crew, DispatchDate: "2025-03-11"})
	require.NoError(t, err)

	d, err := f.svc.UpdateDispatchStatus(ctx, did, "Approved", mgr)
	require.NoError(t, err)
	require.NotNil(t, d.ApprovedBy)
	assert.Equal(t, mgr, *d.ApprovedBy)

	_, err = f.svc.UpdateDispatchStatus(ctx, did, "Dispatched", mgr)
	require.NoError(t, err)
	e, err := f.svc.GetEquipment(ctx, eq)
	require.NoError(t, err)
	assert.Equal(t, model.EquipmentInUse, e.Status)

	// in-use equipment cannot be dispatched again
	_, err = f.svc.CreateDispatch(ctx, DispatchInput{EquipmentID: eq, ProjectID: pid, RequestedBy: crew, DispatchDate: "2025-03-12"})
	assert.True(t, isConflict(err), "got %v", err)

	d, err = f.svc.UpdateDispatchStatus(ctx, did, "Returned", mgr)
	require.NoError(t, err)
	assert.NotNil(t, d.ReturnedAt)
	e, err = f.svc.GetEquipment(ctx, eq)
	require.NoError(t, err)
	assert.Equal(t, model.EquipmentAvailable, e.Status)

	evs := f.events.ofType(queue.DispatchStatusChanged)
	require.Len(t, evs, 3)
	assert.Equal(t, "Dispatched", evs[2].From)
	assert.Equal(t, "Returned", evs[2].To)

	view, err := f.svc.GetDispatch(ctx, did)
	require.NoError(t, err)
	assert.Equal(t, "Excavator 3", view.EquipmentName)

	_, err = f.svc.UpdateDispatchStatus(ctx, did, "Lost", mgr)
	assert.True(t, isValidation(err), "got %v", err)
}

func TestCancelPendingDispatchKeepsEquipment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.user(t, "mgr@site.test", "manager")
	pid := f.project(t, mgr, "2025-01-01", "2025-12-31")

	crane, err := f.svc.CreateEquipment(ctx, EquipmentInput{Name: "Tower crane"})
	require.NoError(t, err)
	d1, err := f.svc.CreateDispatch(ctx, DispatchInput{EquipmentID: crane, ProjectID: pid, RequestedBy: mgr, DispatchDate: "2025-03-11"})
	require.NoError(t, err)
	d2, err := f.svc.CreateDispatch(ctx, DispatchInput{EquipmentID: crane, ProjectID: pid, RequestedBy: mgr, DispatchDate: "2025-03-12"})
	require.NoError(t, err)

	_, err = f.svc.UpdateDispatchStatus(ctx, d1, "Dispatched", mgr)
	require.NoError(t, err)
	_, err = f.svc.UpdateDispatchStatus(ctx, d2, "Cancelled", mgr)
	require.NoError(t, err)
	e, err := f.svc.GetEquipment(ctx, crane)
	require.NoError(t, err)
	assert.Equal(t, model.EquipmentInUse, e.Status)

	_, err = f.svc.UpdateDispatchStatus(ctx, d1, "Cancelled", mgr)
	require.NoError(t, err)
	e, err = f.svc.GetEquipment(ctx, crane)
	require.NoError(t, err)
	assert.Equal(t, model.EquipmentAvailable, e.Status)

	pump, err := f.svc.CreateEquipment(ctx, EquipmentInput{Name: "Concrete pump"})
	require.NoError(t, err)
	d3, err := f.svc.CreateDispatch(ctx, DispatchInput{EquipmentID: pump, ProjectID: pid, RequestedBy: mgr, DispatchDate: "2025-03-11"})
	require.NoError(t, err)
	_, err = f.svc.UpdateEquipment(ctx, pump, EquipmentPatch{Status: ptr("Maintenance")})
	require.NoError(t, err)
	_, err = f.svc.UpdateDispatchStatus(ctx, d3, "Cancelled", mgr)
	require.NoError(t, err)
	e, err = f.svc.GetEquipment(ctx, pump)
	require.NoError(t, err)
	assert.Equal(t, model.EquipmentMaintenance, e.Status)
}

func TestDispatchDatesValidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.user(t, "mgr@site.test", "manager")
	pid := f.project(t, mgr, "2025-01-01", "2025-12-31")
	eq, err := f.svc.CreateEquipment(ctx, EquipmentInput{Name: "Crane"})
	require.NoError(t, err)

	back := "2025-03-01"
	_, err = f.svc.CreateDispatch(ctx, DispatchInput{EquipmentID: eq, ProjectID: pid, RequestedBy: mgr, DispatchDate: "2025-03-11", ReturnDate: &back})
	assert.True(t, isValidation(err), "got %v", err)
}

func TestPurchaseTotalIsPerUnitCost(t *testing.T) {
	lines := []model.PurchaseLine{
		{Name: "Rebar", Quantity: 10, EstimatedCost: decimal.RequireFromString("12.50")},
		{Name: "Mesh", Quantity: 3, EstimatedCost: decimal.RequireFromString("0.10")},
	}
	assert.Equal(t, "125.30", PurchaseTotal(lines).StringFixed(2))
	assert.True(t, PurchaseTotal(nil).IsZero())
}

func TestPurchaseRequestApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.user(t, "mgr@site.test", "manager")
	crew := f.user(t, "crew@site.test", "staff")

	id, err := f.svc.CreatePurchaseRequest(ctx, PurchaseInput{
		Items:       []model.PurchaseLine{{Name: "Safety boots", Quantity: 4, EstimatedCost: decimal.RequireFromString("45")}},
		RequestedBy: crew,
	})
	require.NoError(t, err)

	p, err := f.svc.GetPurchaseRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Safety boots", p.Title)
	assert.Equal(t, model.PurchasePending, p.Status)
	assert.Equal(t, "180.00", p.TotalEstimatedCost.StringFixed(2))

	got, err := f.svc.UpdatePurchaseRequestStatus(ctx, id, "Approved", mgr)
	require.NoError(t, err)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, mgr, *got.ApprovedBy)
	assert.NotNil(t, got.ApprovedAt)

	_, err = f.svc.CreatePurchaseRequest(ctx, PurchaseInput{RequestedBy: crew})
	assert.True(t, isValidation(err), "got %v", err)
}

func TestPunchInOncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	crew := f.user(t, "crew@site.test", "staff")

	a, err := f.svc.PunchIn(ctx, crew, "Gate 2")
	require.NoError(t, err)
	assert.Equal(t, model.Date("2025-03-10"), a.Date)
	// 10:30 is after the 09:00 start
	assert.Equal(t, model.AttendanceLate, a.Status)

	_, err = f.svc.PunchIn(ctx, crew, "Gate 2")
	assert.True(t, isConflict(err), "got %v", err)

	*f.clock = fixedNow.Add(8 * time.Hour)
	out, err := f.svc.PunchOut(ctx, crew)
	require.NoError(t, err)
	require.NotNil(t, out.CheckOut)
	assert.Equal(t, fixedNow.Add(8*time.Hour).UnixMilli(), *out.CheckOut)

	_, err = f.svc.PunchOut(ctx, crew)
	assert.True(t, isConflict(err), "got %v", err)
}

func TestEarlyPunchInIsPresent(t *testing.T) {
	f := newFixture(t)
	*f.clock = time.Date(2025, 3, 10, 7, 45, 0, 0, time.UTC)
	crew := f.user(t, "crew@site.test", "staff")

	a, err := f.svc.PunchIn(context.Background(), crew, "")
	require.NoError(t, err)
	assert.Equal(t, model.AttendancePresent, a.Status)
}

func TestAttendanceSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	crew := f.user(t, "crew@site.test", "staff")

	for day, st := range map[string]string{"2025-03-03": "Present", "2025-03-04": "Absent", "2025-03-05": "Leave", "2025-02-28": "Present"} {
		_, err := f.svc.MarkAttendance(ctx, MarkAttendanceInput{UserID: crew, Date: day, Status: st})
		require.NoError(t, err)
	}
	_, err := f.svc.MarkAttendance(ctx, MarkAttendanceInput{UserID: crew, Date: "2025-03-03", Status: "Absent"})
	assert.True(t, isConflict(err), "got %v", err)

	sum, err := f.svc.GetAttendanceSummary(ctx, crew, "")
	require.NoError(t, err)
	assert.Equal(t, "2025-03", sum.Month)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.ByStatus[model.AttendanceAbsent])
	assert.Equal(t, 0, sum.ByStatus[model.AttendanceLate])

	_, err = f.svc.GetAttendanceSummary(ctx, crew, "March")
	assert.True(t, isValidation(err), "got %v", err)
}

func TestNCRClosingStampsDateAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	qa := f.user(t, "qa@site.test", "staff")
	pid := f.project(t, qa, "2025-01-01", "2025-12-31")

	id, err := f.svc.CreateNCR(ctx, NCRInput{ProjectID: pid, Title: "Honeycombing in column C4", Severity: "major", DetectedBy: qa})
	require.NoError(t, err)

	n, err := f.svc.GetNCR(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.NCROpen, n.Status)
	assert.Equal(t, model.Date("2025-03-10"), n.DetectedDate)
	assert.Nil(t, n.ClosedDate)

	closed := "Closed"
	got, err := f.svc.UpdateNCR(ctx, id, NCRPatch{Status: &closed}, qa)
	require.NoError(t, err)
	require.NotNil(t, got.ClosedDate)
	assert.Equal(t, model.Date("2025-03-10"), *got.ClosedDate)

	evs := f.events.ofType(queue.NCRStatusChanged)
	require.Len(t, evs, 1)
	assert.Equal(t, "Open", evs[0].From)
	assert.Equal(t, "Closed", evs[0].To)
}

func TestQualityStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	qa := f.user(t, "qa@site.test", "staff")
	pid := f.project(t, qa, "2025-01-01", "2025-12-31")

	for _, st := range []string{"Open", "Under Investigation", "Closed"} {
		_, err := f.svc.CreateNCR(ctx, NCRInput{ProjectID: pid, Title: "ncr " + st, Status: st, DetectedBy: qa})
		require.NoError(t, err)
	}
	for _, r := range []string{"Pass", "Pass", "Fail"} {
		_, err := f.svc.CreateInspection(ctx, InspectionInput{ProjectID: pid, Material: "Cement", Result: r, InspectedBy: qa, InspectionDate: "2025-03-09"})
		require.NoError(t, err)
	}

	st, err := f.svc.GetQualityStats(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, 2, st.OpenNCRs)
	assert.Equal(t, 1, st.NCRsByStatus["Closed"])
	assert.Equal(t, 3, st.Inspections)
	assert.Equal(t, 66.7, st.InspectionPassRate)
	assert.Equal(t, 0, st.Tests)
	assert.Equal(t, float64(0), st.TestPassRate)
}

func TestQualityListFiltersTrimStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	qa := f.user(t, "qa@site.test", "staff")
	pid := f.project(t, qa, "2025-01-01", "2025-12-31")

	_, err := f.svc.CreateNCR(ctx, NCRInput{ProjectID: pid, Title: "Cracked slab", Status: "Open", DetectedBy: qa})
	require.NoError(t, err)
	_, err = f.svc.CreateNCR(ctx, NCRInput{ProjectID: pid, Title: "Loose rebar", Status: "Closed", DetectedBy: qa})
	require.NoError(t, err)
	_, err = f.svc.CreateInspection(ctx, InspectionInput{ProjectID: pid, Material: "Sand", Result: "Fail", InspectedBy: qa, InspectionDate: "2025-03-09"})
	require.NoError(t, err)

	ncrs, err := f.svc.ListNCRs(ctx, QualityFilter{Status: " Open "})
	require.NoError(t, err)
	require.Len(t, ncrs, 1)
	assert.Equal(t, "Cracked slab", ncrs[0].Title)

	ins, err := f.svc.ListInspections(ctx, QualityFilter{Status: "Fail "})
	require.NoError(t, err)
	assert.Len(t, ins, 1)

	_, err = f.svc.ListNCRs(ctx, QualityFilter{Status: "open"})
	assert.True(t, isValidation(err), "got %v", err)
}

func TestContractorDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateContractor(ctx, ContractorInput{Name: "Bolt & Co", Specialty: "Electrical", Email: "Ops@Bolt.test"})
	require.NoError(t, err)

	c, err := f.svc.GetContractor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ContractorActive, c.Status)
	assert.Equal(t, "ops@bolt.test", c.Email)
	assert.Nil(t, c.ProjectName)

	_, err = f.svc.CreateContractor(ctx, ContractorInput{Name: "x", Status: "Retired"})
	assert.True(t, isValidation(err), "got %v", err)
}

func TestExportQuotesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@site.test", "admin")
	_, err := f.svc.CreateProject(ctx, ProjectInput{
		Name:      `Dock "North", Phase 2`,
		Client:    model.ClientInfo{Name: "Port\nAuthority"},
		StartDate: "2025-01-01",
		EndDate:   "2025-06-30",
		Budget:    decimal.RequireFromString("1000"),
		CreatedBy: admin,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportCSV(ctx, "projects", &buf))
	assert.Contains(t, buf.String(), `"Dock ""North"", Phase 2"`)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Name", rows[0][2])
	assert.Equal(t, `Dock "North", Phase 2`, rows[1][2])
	assert.Equal(t, "Port\nAuthority", rows[1][3])
	assert.Equal(t, "1000.00", rows[1][7])

	err = f.svc.ExportCSV(ctx, "payroll", &buf)
	assert.True(t, isValidation(err), "got %v", err)
}

func TestOverviewCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.user(t, "mgr@site.test", "manager")
	f.project(t, mgr, "2025-01-01", "2025-12-31")
	_, err := f.svc.CreateItem(ctx, ItemInput{Name: "Nails", Quantity: 2, MinQuantity: 5, CreatedBy: mgr})
	require.NoError(t, err)

	ov, err := f.svc.GetOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ov.ProjectsByStatus[model.ProjectPlanning])
	assert.Equal(t, 0, ov.ActiveProjects)
	require.Len(t, ov.LowStockItems, 1)
	assert.Equal(t, "Nails", ov.LowStockItems[0].Name)
}
