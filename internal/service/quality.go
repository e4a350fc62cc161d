package service

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/queue"
	"github.com/iliyamo/fieldops/internal/repository"
)

// ---- NCR ----

type NCRInput struct {
	ProjectID        uint64  `json:"project_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	Severity         string  `json:"severity"`
	Status           string  `json:"status"`
	DetectedBy       uint64  `json:"detected_by"`
	AssignedTo       *uint64 `json:"assigned_to"`
	CorrectiveAction string  `json:"corrective_action"`
	DetectedDate     string  `json:"detected_date"`
}

type NCRPatch struct {
	Title            *string `json:"title"`
	Description      *string `json:"description"`
	Category         *string `json:"category"`
	Severity         *string `json:"severity"`
	Status           *string `json:"status"`
	AssignedTo       *uint64 `json:"assigned_to"`
	CorrectiveAction *string `json:"corrective_action"`
	DetectedDate     *string `json:"detected_date"`
	ClosedDate       *string `json:"closed_date"`
}

type QualityFilter struct {
	ProjectID uint64
	Status    string
	Severity  string
}

type NCRView struct {
	model.NCR
	ProjectName    string  `json:"project_name"`
	DetectedByName string  `json:"detected_by_name"`
	AssignedToName *string `json:"assigned_to_name"`
}

func (s *Service) CreateNCR(ctx context.Context, in NCRInput) (uint64, error) {
	n := model.NCR{
		ProjectID:        in.ProjectID,
		Description:      strings.TrimSpace(in.Description),
		Category:         strings.TrimSpace(in.Category),
		Severity:         strings.TrimSpace(in.Severity),
		DetectedBy:       in.DetectedBy,
		AssignedTo:       in.AssignedTo,
		CorrectiveAction: strings.TrimSpace(in.CorrectiveAction),
	}
	var err error
	if n.Title, err = required("title", in.Title); err != nil {
		return 0, err
	}
	if n.Status, err = enumOr("status", in.Status, model.NCROpen, model.ParseNCRStatus, model.NCRStatuses); err != nil {
		return 0, err
	}
	if strings.TrimSpace(in.DetectedDate) == "" {
		n.DetectedDate = s.today()
	} else if n.DetectedDate, err = date("detected_date", in.DetectedDate); err != nil {
		return 0, err
	}
	if n.Status == model.NCRClosed {
		n.ClosedDate = ptr(s.today())
	}
	if err := s.projectMustExist(ctx, s.projects, in.ProjectID); err != nil {
		return 0, err
	}
	if err := s.userMustExist(ctx, s.users, "detected_by", in.DetectedBy); err != nil {
		return 0, err
	}
	if err := s.optUserMustExist(ctx, "assigned_to", in.AssignedTo); err != nil {
		return 0, err
	}
	n.CreationTime = s.nowMillis()
	if err := s.quality.CreateNCR(ctx, &n); err != nil {
		return 0, err
	}
	return n.ID, nil
}

func (s *Service) GetNCR(ctx context.Context, id uint64) (NCRView, error) {
	n, err := s.quality.GetNCR(ctx, id)
	if err != nil {
		return NCRView{}, lift(err, "ncr", id)
	}
	views, err := s.ncrViews(ctx, []model.NCR{n})
	if err != nil {
		return NCRView{}, err
	}
	return views[0], nil
}

// UpdateNCR applies p.  Moving into Closed stamps today's date unless the
// patch supplies closed_date.  A status change is published with actorID.
func (s *Service) UpdateNCR(ctx context.Context, id uint64, p NCRPatch, actorID uint64) (model.NCR, error) {
	n, err := s.quality.GetNCR(ctx, id)
	if err != nil {
		return n, lift(err, "ncr", id)
	}
	from := n.Status
	if p.Title != nil {
		if n.Title, err = required("title", *p.Title); err != nil {
			return n, err
		}
	}
	if p.Status != nil {
		if n.Status, err = enum("status", *p.Status, model.ParseNCRStatus, model.NCRStatuses); err != nil {
			return n, err
		}
	}
	if p.DetectedDate != nil {
		if n.DetectedDate, err = date("detected_date", *p.DetectedDate); err != nil {
			return n, err
		}
	}
	if p.ClosedDate != nil {
		if n.ClosedDate, err = optDate("closed_date", p.ClosedDate); err != nil {
			return n, err
		}
	} else if n.Status == model.NCRClosed && (from != model.NCRClosed || n.ClosedDate == nil) {
		n.ClosedDate = ptr(s.today())
	}
	if p.AssignedTo != nil {
		if err := s.optUserMustExist(ctx, "assigned_to", p.AssignedTo); err != nil {
			return n, err
		}
		n.AssignedTo = p.AssignedTo
	}
	setTrim(&n.Description, p.Description)
	setTrim(&n.Category, p.Category)
	setTrim(&n.Severity, p.Severity)
	setTrim(&n.CorrectiveAction, p.CorrectiveAction)
	if err := s.quality.UpdateNCR(ctx, &n); err != nil {
		return n, err
	}
	if n.Status != from {
		s.publish(ctx, queue.Event{
			Type:      queue.NCRStatusChanged,
			EntityID:  n.ID,
			ActorID:   actorID,
			ProjectID: &n.ProjectID,
			From:      string(from),
			To:        string(n.Status),
			Summary:   n.Title,
		})
	}
	return n, nil
}

func (s *Service) DeleteNCR(ctx context.Context, id uint64) error {
	return lift(s.quality.DeleteNCR(ctx, id), "ncr", id)
}

func (s *Service) ListNCRs(ctx context.Context, f QualityFilter) ([]NCRView, error) {
	rf := repository.QualityFilter{ProjectID: f.ProjectID, Severity: strings.TrimSpace(f.Severity)}
	if f.Status != "" {
		st, err := enum("status", f.Status, model.ParseNCRStatus, model.NCRStatuses)
		if err != nil {
			return nil, err
		}
		rf.Status = string(st)
	}
	rows, err := s.quality.ListNCRs(ctx, rf)
	if err != nil {
		return nil, err
	}
	return s.ncrViews(ctx, rows)
}

func (s *Service) ncrViews(ctx context.Context, rows []model.NCR) ([]NCRView, error) {
	var r refs
	for _, n := range rows {
		r.project(n.ProjectID)
		r.user(n.DetectedBy)
		r.optUser(n.AssignedTo)
	}
	nm, err := s.resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(n model.NCR, _ int) NCRView {
		return NCRView{
			NCR:            n,
			ProjectName:    nm.project(n.ProjectID),
			DetectedByName: nm.user(n.DetectedBy),
			AssignedToName: nm.optUser(n.AssignedTo),
		}
	}), nil
}

// ---- Material inspections ----

type InspectionInput struct {
	ProjectID      uint64 `json:"project_id"`
	Material       string `json:"material"`
	Supplier       string `json:"supplier"`
	BatchNumber    string `json:"batch_number"`
	Quantity       string `json:"quantity"`
	Result         string `json:"result"`
	InspectedBy    uint64 `json:"inspected_by"`
	InspectionDate string `json:"inspection_date"`
	Notes          string `json:"notes"`
}

type InspectionPatch struct {
	Material       *string `json:"material"`
	Supplier       *string `json:"supplier"`
	BatchNumber    *string `json:"batch_number"`
	Quantity       *string `json:"quantity"`
	Result         *string `json:"result"`
	InspectionDate *string `json:"inspection_date"`
	Notes          *string `json:"notes"`
}

type InspectionView struct {
	model.MaterialInspection
	ProjectName     string `json:"project_name"`
	InspectedByName string `json:"inspected_by_name"`
}

func (s *Service) CreateInspection(ctx context.Context, in InspectionInput) (uint64, error) {
	m := model.MaterialInspection{
		ProjectID:   in.ProjectID,
		Supplier:    strings.TrimSpace(in.Supplier),
		BatchNumber: strings.TrimSpace(in.BatchNumber),
		Quantity:    strings.TrimSpace(in.Quantity),
		InspectedBy: in.InspectedBy,
		Notes:       strings.TrimSpace(in.Notes),
	}
	var err error
	if m.Material, err = required("material", in.Material); err != nil {
		return 0, err
	}
	if m.Result, err = enum("result", in.Result, model.ParseInspectionResult, model.InspectionResults); err != nil {
		return 0, err
	}
	if m.InspectionDate, err = date("inspection_date", in.InspectionDate); err != nil {
		return 0, err
	}
	if err := s.projectMustExist(ctx, s.projects, in.ProjectID); err != nil {
		return 0, err
	}
	if err := s.userMustExist(ctx, s.users, "inspected_by", in.InspectedBy); err != nil {
		return 0, err
	}
	m.CreationTime = s.nowMillis()
	if err := s.quality.CreateInspection(ctx, &m); err != nil {
		return 0, err
	}
	return m.ID, nil
}

func (s *Service) GetInspection(ctx context.Context, id uint64) (InspectionView, error) {
	m, err := s.quality.GetInspection(ctx, id)
	if err != nil {
		return InspectionView{}, lift(err, "inspection", id)
	}
	views, err := s.inspectionViews(ctx, []model.MaterialInspection{m})
	if err != nil {
		return InspectionView{}, err
	}
	return views[0], nil
}

func (s *Service) UpdateInspection(ctx context.Context, id uint64, p InspectionPatch) (model.MaterialInspection, error) {
	m, err := s.quality.GetInspection(ctx, id)
	if err != nil {
		return m, lift(err, "inspection", id)
	}
	if p.Material != nil {
		if m.Material, err = required("material", *p.Material); err != nil {
			return m, err
		}
	}
	if p.Result != nil {
		if m.Result, err = enum("result", *p.Result, model.ParseInspectionResult, model.InspectionResults); err != nil {
			return m, err
		}
	}
	if p.InspectionDate != nil {
		if m.InspectionDate, err = date("inspection_date", *p.InspectionDate); err != nil {
			return m, err
		}
	}
	setTrim(&m.Supplier, p.Supplier)
	setTrim(&m.BatchNumber, p.BatchNumber)
	setTrim(&m.Quantity, p.Quantity)
	setTrim(&m.Notes, p.Notes)
	if err := s.quality.UpdateInspection(ctx, &m); err != nil {
		return m, err
	}
	return m, nil
}

func (s *Service) DeleteInspection(ctx context.Context, id uint64) error {
	return lift(s.quality.DeleteInspection(ctx, id), "inspection", id)
}

func (s *Service) ListInspections(ctx context.Context, f QualityFilter) ([]InspectionView, error) {
	rf := repository.QualityFilter{ProjectID: f.ProjectID}
	if f.Status != "" {
		res, err := enum("result", f.Status, model.ParseInspectionResult, model.InspectionResults)
		if err != nil {
			return nil, err
		}
		rf.Status = string(res)
	}
	rows, err := s.quality.ListInspections(ctx, rf)
	if err != nil {
		return nil, err
	}
	return s.inspectionViews(ctx, rows)
}

func (s *Service) inspectionViews(ctx context.Context, rows []model.MaterialInspection) ([]InspectionView, error) {
	var r refs
	for _, m := range rows {
		r.project(m.ProjectID)
		r.user(m.InspectedBy)
	}
	n, err := s.resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(m model.MaterialInspection, _ int) InspectionView {
		return InspectionView{MaterialInspection: m, ProjectName: n.project(m.ProjectID), InspectedByName: n.user(m.InspectedBy)}
	}), nil
}

// ---- Test results ----

type TestInput struct {
	ProjectID      uint64 `json:"project_id"`
	TestType       string `json:"test_type"`
	SampleLocation string `json:"sample_location"`
	Value          string `json:"value"`
	Unit           string `json:"unit"`
	Specification  string `json:"specification"`
	Result         string `json:"result"`
	TestedBy       uint64 `json:"tested_by"`
	TestDate       string `json:"test_date"`
	Notes          string `json:"notes"`
}

type TestPatch struct {
	TestType       *string `json:"test_type"`
	SampleLocation *string `json:"sample_location"`
	Value          *string `json:"value"`
	Unit           *string `json:"unit"`
	Specification  *string `json:"specification"`
	Result         *string `json:"result"`
	TestDate       *string `json:"test_date"`
	Notes          *string `json:"notes"`
}

type TestView struct {
	model.TestResult
	ProjectName  string `json:"project_name"`
	TestedByName string `json:"tested_by_name"`
}

func (s *Service) CreateTestResult(ctx context.Context, in TestInput) (uint64, error) {
	t := model.TestResult{
		ProjectID:      in.ProjectID,
		SampleLocation: strings.TrimSpace(in.SampleLocation),
		Value:          strings.TrimSpace(in.Value),
		Unit:           strings.TrimSpace(in.Unit),
		Specification:  strings.TrimSpace(in.Specification),
		TestedBy:       in.TestedBy,
		Notes:          strings.TrimSpace(in.Notes),
	}
	var err error
	if t.TestType, err = required("test_type", in.TestType); err != nil {
		return 0, err
	}
	if t.Result, err = enumOr("result", in.Result, model.TestPending, model.ParseTestOutcome, model.TestOutcomes); err != nil {
		return 0, err
	}
	if t.TestDate, err = date("test_date", in.TestDate); err != nil {
		return 0, err
	}
	if err := s.projectMustExist(ctx, s.projects, in.ProjectID); err != nil {
		return 0, err
	}
	if err := s.userMustExist(ctx, s.users, "tested_by", in.TestedBy); err != nil {
		return 0, err
	}
	t.CreationTime = s.nowMillis()
	if err := s.quality.CreateTest(ctx, &t); err != nil {
		return 0, err
	}
	return t.ID, nil
}

func (s *Service) GetTestResult(ctx context.Context, id uint64) (TestView, error) {
	t, err := s.quality.GetTest(ctx, id)
	if err != nil {
		return TestView{}, lift(err, "test result", id)
	}
	views, err := s.testViews(ctx, []model.TestResult{t})
	if err != nil {
		return TestView{}, err
	}
	return views[0], nil
}

func (s *Service) UpdateTestResult(ctx context.Context, id uint64, p TestPatch) (model.TestResult, error) {
	t, err := s.quality.GetTest(ctx, id)
	if err != nil {
		return t, lift(err, "test result", id)
	}
	if p.TestType != nil {
		if t.TestType, err = required("test_type", *p.TestType); err != nil {
			return t, err
		}
	}
	if p.Result != nil {
		if t.Result, err = enum("result", *p.Result, model.ParseTestOutcome, model.TestOutcomes); err != nil {
			return t, err
		}
	}
	if p.TestDate != nil {
		if t.TestDate, err = date("test_date", *p.TestDate); err != nil {
			return t, err
		}
	}
	setTrim(&t.SampleLocation, p.SampleLocation)
	setTrim(&t.Value, p.Value)
	setTrim(&t.Unit, p.Unit)
	setTrim(&t.Specification, p.Specification)
	setTrim(&t.Notes, p.Notes)
	if err := s.quality.UpdateTest(ctx, &t); err != nil {
		return t, err
	}
	return t, nil
}

func (s *Service) DeleteTestResult(ctx context.Context, id uint64) error {
	return lift(s.quality.DeleteTest(ctx, id), "test result", id)
}

func (s *Service) ListTestResults(ctx context.Context, f QualityFilter) ([]TestView, error) {
	rf := repository.QualityFilter{ProjectID: f.ProjectID}
	if f.Status != "" {
		res, err := enum("result", f.Status, model.ParseTestOutcome, model.TestOutcomes)
		if err != nil {
			return nil, err
		}
		rf.Status = string(res)
	}
	rows, err := s.quality.ListTests(ctx, rf)
	if err != nil {
		return nil, err
	}
	return s.testViews(ctx, rows)
}

func (s *Service) testViews(ctx context.Context, rows []model.TestResult) ([]TestView, error) {
	var r refs
	for _, t := range rows {
		r.project(t.ProjectID)
		r.user(t.TestedBy)
	}
	n, err := s.resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(t model.TestResult, _ int) TestView {
		return TestView{TestResult: t, ProjectName: n.project(t.ProjectID), TestedByName: n.user(t.TestedBy)}
	}), nil
}

// ---- Stats ----

type QualityStats struct {
	OpenNCRs           int            `json:"open_ncrs"`
	NCRsByStatus       map[string]int `json:"ncrs_by_status"`
	Inspections        int            `json:"inspections"`
	InspectionPassRate float64        `json:"inspection_pass_rate"`
	Tests              int            `json:"tests"`
	TestPassRate       float64        `json:"test_pass_rate"`
}

// GetQualityStats aggregates the three quality tables, optionally for one
// project.  Pass rates are percentages of all rows, zero when there are none.
func (s *Service) GetQualityStats(ctx context.Context, projectID uint64) (QualityStats, error) {
	var ncrs, insp, tests map[string]int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { ncrs, err = s.quality.CountNCRsByStatus(gctx, projectID); return })
	g.Go(func() (err error) { insp, err = s.quality.CountInspectionsByResult(gctx, projectID); return })
	g.Go(func() (err error) { tests, err = s.quality.CountTestsByResult(gctx, projectID); return })
	if err := g.Wait(); err != nil {
		return QualityStats{}, err
	}
	st := QualityStats{NCRsByStatus: map[string]int{}}
	for _, ns := range model.NCRStatuses {
		st.NCRsByStatus[string(ns)] = ncrs[string(ns)]
		if ns != model.NCRClosed {
			st.OpenNCRs += ncrs[string(ns)]
		}
	}
	st.Inspections = lo.Sum(lo.Values(insp))
	st.InspectionPassRate = percent(insp[string(model.InspectionPass)], st.Inspections)
	st.Tests = lo.Sum(lo.Values(tests))
	st.TestPassRate = percent(tests[string(model.TestPass)], st.Tests)
	return st, nil
}

// percent returns part/whole*100 rounded to one decimal place.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(int(float64(part)*1000/float64(whole)+0.5)) / 10
}
