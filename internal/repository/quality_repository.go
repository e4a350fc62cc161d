package repository

import (
	"context"

	"github.com/iliyamo/fieldops/internal/model"
)

// QualityFilter narrows the three quality lists.  Status matches the NCR
// status or the inspection/test result column depending on the table.
// Severity only applies to NCRs.
type QualityFilter struct {
	ProjectID uint64
	Status    string
	Severity  string
}

// QualityRepo covers ncrs, material_inspections and test_results.
type QualityRepo struct{ db DBTX }

func NewQualityRepo(db DBTX) *QualityRepo { return &QualityRepo{db: db} }

func (f QualityFilter) where(statusCol string) *where {
	w := &where{}
	if f.ProjectID != 0 {
		w.eq("project_id", f.ProjectID)
	}
	if f.Status != "" {
		w.eq(statusCol, f.Status)
	}
	if f.Severity != "" {
		w.eq("severity", f.Severity)
	}
	return w
}

// countBy runs SELECT col, COUNT(*) ... GROUP BY col.
func (r *QualityRepo) countBy(ctx context.Context, table, col string, projectID uint64) (map[string]int, error) {
	w := QualityFilter{ProjectID: projectID}.where(col)
	rows, err := r.db.QueryContext(ctx, "SELECT "+col+", COUNT(*) FROM "+table+w.String()+" GROUP BY "+col, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			k string
			n int
		)
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

// ---- NCR ----

const ncrCols = `id, project_id, title, description, category, severity, status, detected_by, assigned_to,
	corrective_action, detected_date, closed_date, creation_time`

func scanNCR(s scanner) (model.NCR, error) {
	var n model.NCR
	err := s.Scan(&n.ID, &n.ProjectID, &n.Title, &n.Description, &n.Category, &n.Severity, &n.Status, &n.DetectedBy,
		&n.AssignedTo, &n.CorrectiveAction, &n.DetectedDate, &n.ClosedDate, &n.CreationTime)
	return n, err
}

func (r *QualityRepo) CreateNCR(ctx context.Context, n *model.NCR) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO ncrs (project_id, title, description, category, severity, status, detected_by, assigned_to,
		 corrective_action, detected_date, closed_date, creation_time) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		n.ProjectID, n.Title, n.Description, n.Category, n.Severity, n.Status, n.DetectedBy, n.AssignedTo,
		n.CorrectiveAction, n.DetectedDate, n.ClosedDate, n.CreationTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

func (r *QualityRepo) GetNCR(ctx context.Context, id uint64) (model.NCR, error) {
	n, err := scanNCR(r.db.QueryRowContext(ctx, "SELECT "+ncrCols+" FROM ncrs WHERE id = ?", id))
	return n, notFound(err)
}

func (r *QualityRepo) UpdateNCR(ctx context.Context, n *model.NCR) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE ncrs SET title=?, description=?, category=?, severity=?, status=?, assigned_to=?,
		 corrective_action=?, detected_date=?, closed_date=? WHERE id=?`,
		n.Title, n.Description, n.Category, n.Severity, n.Status, n.AssignedTo,
		n.CorrectiveAction, n.DetectedDate, n.ClosedDate, n.ID)
	return err
}

func (r *QualityRepo) DeleteNCR(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM ncrs WHERE id = ?", id))
}

func (r *QualityRepo) ListNCRs(ctx context.Context, f QualityFilter) ([]model.NCR, error) {
	w := f.where("status")
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ncrCols+" FROM ncrs"+w.String()+" ORDER BY creation_time DESC, id DESC", w.args...)
	return collect(rows, err, scanNCR)
}

func (r *QualityRepo) CountNCRsByStatus(ctx context.Context, projectID uint64) (map[string]int, error) {
	return r.countBy(ctx, "ncrs", "status", projectID)
}

// ---- Material inspections ----

const inspectionCols = `id, project_id, material, supplier, batch_number, quantity, result, inspected_by,
	inspection_date, notes, creation_time`

func scanInspection(s scanner) (model.MaterialInspection, error) {
	var m model.MaterialInspection
	err := s.Scan(&m.ID, &m.ProjectID, &m.Material, &m.Supplier, &m.BatchNumber, &m.Quantity, &m.Result, &m.InspectedBy,
		&m.InspectionDate, &m.Notes, &m.CreationTime)
	return m, err
}

func (r *QualityRepo) CreateInspection(ctx context.Context, m *model.MaterialInspection) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO material_inspections (project_id, material, supplier, batch_number, quantity, result, inspected_by,
		 inspection_date, notes, creation_time) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		m.ProjectID, m.Material, m.Supplier, m.BatchNumber, m.Quantity, m.Result, m.InspectedBy,
		m.InspectionDate, m.Notes, m.CreationTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

func (r *QualityRepo) GetInspection(ctx context.Context, id uint64) (model.MaterialInspection, error) {
	m, err := scanInspection(r.db.QueryRowContext(ctx, "SELECT "+inspectionCols+" FROM material_inspections WHERE id = ?", id))
	return m, notFound(err)
}

func (r *QualityRepo) UpdateInspection(ctx context.Context, m *model.MaterialInspection) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE material_inspections SET material=?, supplier=?, batch_number=?, quantity=?, result=?,
		 inspection_date=?, notes=? WHERE id=?`,
		m.Material, m.Supplier, m.BatchNumber, m.Quantity, m.Result, m.InspectionDate, m.Notes, m.ID)
	return err
}

func (r *QualityRepo) DeleteInspection(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM material_inspections WHERE id = ?", id))
}

func (r *QualityRepo) ListInspections(ctx context.Context, f QualityFilter) ([]model.MaterialInspection, error) {
	w := f.where("result")
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+inspectionCols+" FROM material_inspections"+w.String()+" ORDER BY creation_time DESC, id DESC", w.args...)
	return collect(rows, err, scanInspection)
}

func (r *QualityRepo) CountInspectionsByResult(ctx context.Context, projectID uint64) (map[string]int, error) {
	return r.countBy(ctx, "material_inspections", "result", projectID)
}

// ---- Test results ----

const testCols = `id, project_id, test_type, sample_location, value, unit, specification, result, tested_by,
	test_date, notes, creation_time`

func scanTest(s scanner) (model.TestResult, error) {
	var t model.TestResult
	err := s.Scan(&t.ID, &t.ProjectID, &t.TestType, &t.SampleLocation, &t.Value, &t.Unit, &t.Specification, &t.Result,
		&t.TestedBy, &t.TestDate, &t.Notes, &t.CreationTime)
	return t, err
}

func (r *QualityRepo) CreateTest(ctx context.Context, t *model.TestResult) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO test_results (project_id, test_type, sample_location, value, unit, specification, result, tested_by,
		 test_date, notes, creation_time) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ProjectID, t.TestType, t.SampleLocation, t.Value, t.Unit, t.Specification, t.Result, t.TestedBy,
		t.TestDate, t.Notes, t.CreationTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

func (r *QualityRepo) GetTest(ctx context.Context, id uint64) (model.TestResult, error) {
	t, err := scanTest(r.db.QueryRowContext(ctx, "SELECT "+testCols+" FROM test_results WHERE id = ?", id))
	return t, notFound(err)
}

func (r *QualityRepo) UpdateTest(ctx context.Context, t *model.TestResult) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE test_results SET test_type=?, sample_location=?, value=?, unit=?, specification=?, result=?,
		 test_date=?, notes=? WHERE id=?`,
		t.TestType, t.SampleLocation, t.Value, t.Unit, t.Specification, t.Result, t.TestDate, t.Notes, t.ID)
	return err
}

func (r *QualityRepo) DeleteTest(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM test_results WHERE id = ?", id))
}

func (r *QualityRepo) ListTests(ctx context.Context, f QualityFilter) ([]model.TestResult, error) {
	w := f.where("result")
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+testCols+" FROM test_results"+w.String()+" ORDER BY creation_time DESC, id DESC", w.args...)
	return collect(rows, err, scanTest)
}

func (r *QualityRepo) CountTestsByResult(ctx context.Context, projectID uint64) (map[string]int, error) {
	return r.countBy(ctx, "test_results", "result", projectID)
}
