package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/fieldops/internal/model"
)

// ProjectFilter narrows ListProjects.
type ProjectFilter struct {
	Status model.ProjectStatus
	Search string
}

// ProjectRepo covers projects and their two child tables, assignments and
// milestones.  Children are keyed by project id and are never removed when
// the project is.
type ProjectRepo struct{ db DBTX }

func NewProjectRepo(db DBTX) *ProjectRepo { return &ProjectRepo{db: db} }

func (r *ProjectRepo) WithTx(tx *sql.Tx) *ProjectRepo { return &ProjectRepo{db: tx} }

const projectCols = `id, name, project_code, client_name, client_contact, client_email, client_phone,
	location, start_date, end_date, budget, currency, status, description,
	drawings, boq, legal_docs, safety_certs, created_by, creation_time`

func scanProject(s scanner) (model.Project, error) {
	var p model.Project
	err := s.Scan(&p.ID, &p.Name, &p.ProjectID, &p.Client.Name, &p.Client.Contact, &p.Client.Email, &p.Client.Phone,
		&p.Location, &p.StartDate, &p.EndDate, &p.Budget, &p.Currency, &p.Status, &p.Description,
		&p.Drawings, &p.BOQ, &p.LegalDocs, &p.SafetyCerts, &p.CreatedBy, &p.CreationTime)
	return p, err
}

// Create inserts p and populates its ID.
func (r *ProjectRepo) Create(ctx context.Context, p *model.Project) error {
	const q = `INSERT INTO projects (name, project_code, client_name, client_contact, client_email, client_phone,
		location, start_date, end_date, budget, currency, status, description,
		drawings, boq, legal_docs, safety_certs, created_by, creation_time)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, p.Name, p.ProjectID, p.Client.Name, p.Client.Contact, p.Client.Email, p.Client.Phone,
		p.Location, p.StartDate, p.EndDate, p.Budget, p.Currency, p.Status, p.Description,
		p.Drawings, p.BOQ, p.LegalDocs, p.SafetyCerts, p.CreatedBy, p.CreationTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id uint64) (model.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, "SELECT "+projectCols+" FROM projects WHERE id = ?", id))
	return p, notFound(err)
}

func (r *ProjectRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	return exists(ctx, r.db, "projects", id)
}

// Update rewrites every mutable column from p.
func (r *ProjectRepo) Update(ctx context.Context, p *model.Project) error {
	const q = `UPDATE projects SET name=?, project_code=?, client_name=?, client_contact=?, client_email=?, client_phone=?,
		location=?, start_date=?, end_date=?, budget=?, currency=?, status=?, description=?,
		drawings=?, boq=?, legal_docs=?, safety_certs=? WHERE id=?`
	_, err := r.db.ExecContext(ctx, q, p.Name, p.ProjectID, p.Client.Name, p.Client.Contact, p.Client.Email, p.Client.Phone,
		p.Location, p.StartDate, p.EndDate, p.Budget, p.Currency, p.Status, p.Description,
		p.Drawings, p.BOQ, p.LegalDocs, p.SafetyCerts, p.ID)
	return err
}

func (r *ProjectRepo) Delete(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id))
}

// List returns projects newest first.
func (r *ProjectRepo) List(ctx context.Context, f ProjectFilter) ([]model.Project, error) {
	var w where
	if f.Status != "" {
		w.eq("status", f.Status)
	}
	w.search(f.Search, "name", "project_code", "client_name", "location")
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+projectCols+" FROM projects"+w.String()+" ORDER BY creation_time DESC, id DESC", w.args...)
	return collect(rows, err, scanProject)
}

// CountByStatus returns the number of projects per status.
func (r *ProjectRepo) CountByStatus(ctx context.Context) (map[model.ProjectStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM projects GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.ProjectStatus]int{}
	for rows.Next() {
		var (
			st model.ProjectStatus
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, rows.Err()
}

// NamesByID resolves project ids to names in one query.
func (r *ProjectRepo) NamesByID(ctx context.Context, ids []uint64) (map[uint64]string, error) {
	return lookupNames(ctx, r.db, "projects", "name", ids)
}

// ---- Assignments ----

const assignmentCols = "id, project_id, role, user_id, name, contact, creation_time"

func scanAssignment(s scanner) (model.ProjectAssignment, error) {
	var a model.ProjectAssignment
	err := s.Scan(&a.ID, &a.ProjectID, &a.Role, &a.UserID, &a.Name, &a.Contact, &a.CreationTime)
	return a, err
}

func (r *ProjectRepo) CreateAssignment(ctx context.Context, a *model.ProjectAssignment) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO project_assignments (project_id, role, user_id, name, contact, creation_time) VALUES (?,?,?,?,?,?)",
		a.ProjectID, a.Role, a.UserID, a.Name, a.Contact, a.CreationTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// ListAssignments returns assignments in insertion order; projectID 0 means all.
func (r *ProjectRepo) ListAssignments(ctx context.Context, projectID uint64) ([]model.ProjectAssignment, error) {
	var w where
	if projectID != 0 {
		w.eq("project_id", projectID)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+assignmentCols+" FROM project_assignments"+w.String()+" ORDER BY id", w.args...)
	return collect(rows, err, scanAssignment)
}

func (r *ProjectRepo) DeleteAssignment(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM project_assignments WHERE id = ?", id))
}

// ---- Milestones ----

const milestoneCols = "id, project_id, title, description, due_date, status, completed_date, creation_time"

func scanMilestone(s scanner) (model.ProjectMilestone, error) {
	var m model.ProjectMilestone
	err := s.Scan(&m.ID, &m.ProjectID, &m.Title, &m.Description, &m.DueDate, &m.Status, &m.CompletedDate, &m.CreationTime)
	return m, err
}

func (r *ProjectRepo) CreateMilestone(ctx context.Context, m *model.ProjectMilestone) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO project_milestones (project_id, title, description, due_date, status, completed_date, creation_time) VALUES (?,?,?,?,?,?,?)",
		m.ProjectID, m.Title, m.Description, m.DueDate, m.Status, m.CompletedDate, m.CreationTime)
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

func (r *ProjectRepo) GetMilestone(ctx context.Context, id uint64) (model.ProjectMilestone, error) {
	m, err := scanMilestone(r.db.QueryRowContext(ctx, "SELECT "+milestoneCols+" FROM project_milestones WHERE id = ?", id))
	return m, notFound(err)
}

func (r *ProjectRepo) UpdateMilestone(ctx context.Context, m *model.ProjectMilestone) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE project_milestones SET title=?, description=?, due_date=?, status=?, completed_date=? WHERE id=?",
		m.Title, m.Description, m.DueDate, m.Status, m.CompletedDate, m.ID)
	return err
}

func (r *ProjectRepo) DeleteMilestone(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM project_milestones WHERE id = ?", id))
}

// ListMilestones returns a project's milestones in insertion order so that
// due-date ties resolve the same way on every read.
func (r *ProjectRepo) ListMilestones(ctx context.Context, projectID uint64) ([]model.ProjectMilestone, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+milestoneCols+" FROM project_milestones WHERE project_id = ? ORDER BY id", projectID)
	return collect(rows, err, scanMilestone)
}
