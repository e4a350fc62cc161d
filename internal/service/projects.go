package service

import (
	"context"
	"database/sql"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/repository"
)

type ProjectInput struct {
	Name        string           `json:"name"`
	ProjectID   string           `json:"project_id"`
	Client      model.ClientInfo `json:"client"`
	Location    string           `json:"location"`
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	Budget      decimal.Decimal  `json:"budget"`
	Currency    string           `json:"currency"`
	Status      string           `json:"status"`
	Description string           `json:"description"`
	Drawings    []string         `json:"drawings"`
	BOQ         []string         `json:"boq"`
	LegalDocs   []string         `json:"legal_docs"`
	SafetyCerts []string         `json:"safety_certs"`
	CreatedBy   uint64           `json:"created_by"`
}

type ProjectPatch struct {
	Name        *string           `json:"name"`
	ProjectID   *string           `json:"project_id"`
	Client      *model.ClientInfo `json:"client"`
	Location    *string           `json:"location"`
	StartDate   *string           `json:"start_date"`
	EndDate     *string           `json:"end_date"`
	Budget      *decimal.Decimal  `json:"budget"`
	Currency    *string           `json:"currency"`
	Status      *string           `json:"status"`
	Description *string           `json:"description"`
}

type ProjectFilter struct {
	Status string
	Search string
}

// ProjectDetail is a project loaded together with its children.
type ProjectDetail struct {
	model.Project
	CreatedByName string                   `json:"created_by_name"`
	Assignments   []AssignmentView         `json:"assignments"`
	Milestones    []model.ProjectMilestone `json:"milestones"`
}

type AssignmentView struct {
	model.ProjectAssignment
	ProjectName string  `json:"project_name"`
	UserName    *string `json:"user_name"`
}

// ProjectStats is the dashboard card of one project, computed at read time.
type ProjectStats struct {
	DocumentCount       int                     `json:"document_count"`
	DaysRemaining       int                     `json:"days_remaining"`
	DaysElapsed         int                     `json:"days_elapsed"`
	TotalDays           int                     `json:"total_days"`
	AssignmentCount     int                     `json:"assignment_count"`
	MilestoneCount      int                     `json:"milestone_count"`
	CompletedMilestones int                     `json:"completed_milestones"`
	MilestoneProgress   int                     `json:"milestone_progress"` // percent, rounded down
	NextMilestone       *model.ProjectMilestone `json:"next_milestone"`
	Budget              decimal.Decimal         `json:"budget"`
	Currency            string                  `json:"currency"`
	Status              model.ProjectStatus     `json:"status"`
}

const defaultCurrency = "USD"

func currency(s string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(s))
	if c == "" {
		return defaultCurrency, nil
	}
	if len(c) != 3 || strings.IndexFunc(c, func(r rune) bool { return !unicode.IsLetter(r) }) >= 0 {
		return "", invalid("invalid currency %q (expected a three-letter code)", s)
	}
	return c, nil
}

func checkRange(start, end model.Date) error {
	if end.Before(start) {
		return invalid("end_date %s is before start_date %s", end, start)
	}
	return nil
}

func (s *Service) CreateProject(ctx context.Context, in ProjectInput) (uint64, error) {
	var (
		p   model.Project
		err error
	)
	if p.Name, err = required("name", in.Name); err != nil {
		return 0, err
	}
	if p.StartDate, err = date("start_date", in.StartDate); err != nil {
		return 0, err
	}
	if p.EndDate, err = date("end_date", in.EndDate); err != nil {
		return 0, err
	}
	if err := checkRange(p.StartDate, p.EndDate); err != nil {
		return 0, err
	}
	if p.Status, err = enumOr("status", in.Status, model.ProjectPlanning, model.ParseProjectStatus, model.ProjectStatuses); err != nil {
		return 0, err
	}
	if p.Currency, err = currency(in.Currency); err != nil {
		return 0, err
	}
	if err := nonNegative("budget", in.Budget); err != nil {
		return 0, err
	}
	if err := s.userMustExist(ctx, s.users, "created_by", in.CreatedBy); err != nil {
		return 0, err
	}
	p.ProjectID = strings.TrimSpace(in.ProjectID)
	p.Client = in.Client
	p.Location = strings.TrimSpace(in.Location)
	p.Budget = in.Budget
	p.Description = in.Description
	p.Drawings = model.NewOrderedSet(in.Drawings...)
	p.BOQ = model.NewOrderedSet(in.BOQ...)
	p.LegalDocs = model.NewOrderedSet(in.LegalDocs...)
	p.SafetyCerts = model.NewOrderedSet(in.SafetyCerts...)
	p.CreatedBy = in.CreatedBy
	p.CreationTime = s.nowMillis()
	if err := s.projects.Create(ctx, &p); err != nil {
		return 0, err
	}
	return p.ID, nil
}

// GetProject loads the project with its assignments and milestones inline.
func (s *Service) GetProject(ctx context.Context, id uint64) (ProjectDetail, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return ProjectDetail{}, lift(err, "project", id)
	}
	assignments, err := s.ListProjectAssignments(ctx, id)
	if err != nil {
		return ProjectDetail{}, err
	}
	milestones, err := s.projects.ListMilestones(ctx, id)
	if err != nil {
		return ProjectDetail{}, err
	}
	n, err := s.resolve(ctx, refs{users: []uint64{p.CreatedBy}})
	if err != nil {
		return ProjectDetail{}, err
	}
	return ProjectDetail{
		Project:       p,
		CreatedByName: n.user(p.CreatedBy),
		Assignments:   assignments,
		Milestones:    milestones,
	}, nil
}

func (s *Service) UpdateProject(ctx context.Context, id uint64, patch ProjectPatch) (model.Project, error) {
	var out model.Project
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		projects := s.projects.WithTx(tx)
		p, err := projects.GetByID(ctx, id)
		if err != nil {
			return lift(err, "project", id)
		}
		if patch.Name != nil {
			if p.Name, err = required("name", *patch.Name); err != nil {
				return err
			}
		}
		if patch.StartDate != nil {
			if p.StartDate, err = date("start_date", *patch.StartDate); err != nil {
				return err
			}
		}
		if patch.EndDate != nil {
			if p.EndDate, err = date("end_date", *patch.EndDate); err != nil {
				return err
			}
		}
		if err := checkRange(p.StartDate, p.EndDate); err != nil {
			return err
		}
		if patch.Status != nil {
			if p.Status, err = enum("status", *patch.Status, model.ParseProjectStatus, model.ProjectStatuses); err != nil {
				return err
			}
		}
		if patch.Currency != nil {
			if p.Currency, err = currency(*patch.Currency); err != nil {
				return err
			}
		}
		if patch.Budget != nil {
			if err := nonNegative("budget", *patch.Budget); err != nil {
				return err
			}
			p.Budget = *patch.Budget
		}
		setTrim(&p.ProjectID, patch.ProjectID)
		setTrim(&p.Location, patch.Location)
		set(&p.Client, patch.Client)
		set(&p.Description, patch.Description)
		if err := projects.Update(ctx, &p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// DeleteProject removes the project row only.  Assignments, milestones and
// every other row pointing at it stay and render as "Unknown Project".
func (s *Service) DeleteProject(ctx context.Context, id uint64) error {
	return lift(s.projects.Delete(ctx, id), "project", id)
}

func (s *Service) ListProjects(ctx context.Context, f ProjectFilter) ([]model.Project, error) {
	rf := repository.ProjectFilter{Search: f.Search}
	if f.Status != "" {
		st, err := enum("status", f.Status, model.ParseProjectStatus, model.ProjectStatuses)
		if err != nil {
			return nil, err
		}
		rf.Status = st
	}
	return s.projects.List(ctx, rf)
}

// ---- Documents ----

// AddProjectDocument appends ref to the category's document set.  Adding a
// reference that is already present is a no-op.
func (s *Service) AddProjectDocument(ctx context.Context, projectID uint64, category, ref string) (model.RefSet, error) {
	cat, err := enum("category", category, model.ParseDocumentCategory, model.DocumentCategories)
	if err != nil {
		return nil, err
	}
	if ref, err = required("reference_id", ref); err != nil {
		return nil, err
	}
	if s.objects != nil {
		ok, err := s.objects.Exists(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, notFound("document %s not found", ref)
		}
	}
	return s.mutateDocuments(ctx, projectID, cat, func(docs model.RefSet) (model.RefSet, error) {
		docs, _ = docs.Add(ref)
		return docs, nil
	})
}

func (s *Service) RemoveProjectDocument(ctx context.Context, projectID uint64, category, ref string) (model.RefSet, error) {
	cat, err := enum("category", category, model.ParseDocumentCategory, model.DocumentCategories)
	if err != nil {
		return nil, err
	}
	return s.mutateDocuments(ctx, projectID, cat, func(docs model.RefSet) (model.RefSet, error) {
		docs, ok := docs.Remove(ref)
		if !ok {
			return nil, notFound("document %s not attached to project %d", ref, projectID)
		}
		return docs, nil
	})
}

func (s *Service) mutateDocuments(ctx context.Context, projectID uint64, cat model.DocumentCategory,
	fn func(model.RefSet) (model.RefSet, error)) (model.RefSet, error) {
	var out model.RefSet
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		projects := s.projects.WithTx(tx)
		p, err := projects.GetByID(ctx, projectID)
		if err != nil {
			return lift(err, "project", projectID)
		}
		docs := p.Documents(cat)
		next, err := fn(*docs)
		if err != nil {
			return err
		}
		*docs = next
		out = next
		return projects.Update(ctx, &p)
	})
	return out, err
}

// GetProjectDashboardStats computes the project card from current rows.
func (s *Service) GetProjectDashboardStats(ctx context.Context, id uint64) (ProjectStats, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return ProjectStats{}, lift(err, "project", id)
	}
	assignments, err := s.projects.ListAssignments(ctx, id)
	if err != nil {
		return ProjectStats{}, err
	}
	milestones, err := s.projects.ListMilestones(ctx, id)
	if err != nil {
		return ProjectStats{}, err
	}
	now := s.now()
	st := ProjectStats{
		DocumentCount:   p.DocumentCount(),
		DaysRemaining:   model.WholeDaysUntil(p.EndDate, now),
		DaysElapsed:     model.WholeDaysBetween(p.StartDate.UnixMilli(), now.UnixMilli()),
		TotalDays:       model.WholeDaysBetween(p.StartDate.UnixMilli(), p.EndDate.UnixMilli()),
		AssignmentCount: len(assignments),
		MilestoneCount:  len(milestones),
		NextMilestone:   model.NextMilestone(milestones),
		Budget:          p.Budget,
		Currency:        p.Currency,
		Status:          p.Status,
	}
	for _, m := range milestones {
		if m.Status == model.MilestoneCompleted {
			st.CompletedMilestones++
		}
	}
	if st.MilestoneCount > 0 {
		st.MilestoneProgress = st.CompletedMilestones * 100 / st.MilestoneCount
	}
	return st, nil
}

// ---- Assignments ----

type AssignmentInput struct {
	ProjectID uint64  `json:"project_id"`
	Role      string  `json:"role"`
	UserID    *uint64 `json:"user_id"`
	Name      string  `json:"name"`
	Contact   string  `json:"contact"`
}

func (s *Service) CreateProjectAssignment(ctx context.Context, in AssignmentInput) (uint64, error) {
	role, err := required("role", in.Role)
	if err != nil {
		return 0, err
	}
	if in.UserID == nil && strings.TrimSpace(in.Name) == "" {
		return 0, invalid("either user_id or name is required")
	}
	if err := s.projectMustExist(ctx, s.projects, in.ProjectID); err != nil {
		return 0, err
	}
	if err := s.optUserMustExist(ctx, "user_id", in.UserID); err != nil {
		return 0, err
	}
	a := model.ProjectAssignment{
		ProjectID:    in.ProjectID,
		Role:         role,
		UserID:       in.UserID,
		Name:         strings.TrimSpace(in.Name),
		Contact:      strings.TrimSpace(in.Contact),
		CreationTime: s.nowMillis(),
	}
	if err := s.projects.CreateAssignment(ctx, &a); err != nil {
		return 0, err
	}
	return a.ID, nil
}

// ListProjectAssignments lists one project's assignments, or every
// assignment when projectID is 0.  Assignments of deleted projects are
// still returned, with "Unknown Project" as the project name.
func (s *Service) ListProjectAssignments(ctx context.Context, projectID uint64) ([]AssignmentView, error) {
	rows, err := s.projects.ListAssignments(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var r refs
	for _, a := range rows {
		r.project(a.ProjectID)
		r.optUser(a.UserID)
	}
	n, err := s.resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	out := make([]AssignmentView, len(rows))
	for i, a := range rows {
		out[i] = AssignmentView{ProjectAssignment: a, ProjectName: n.project(a.ProjectID), UserName: n.optUser(a.UserID)}
	}
	return out, nil
}

func (s *Service) DeleteProjectAssignment(ctx context.Context, id uint64) error {
	return lift(s.projects.DeleteAssignment(ctx, id), "assignment", id)
}

// ---- Milestones ----

type MilestoneInput struct {
	ProjectID     uint64  `json:"project_id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	DueDate       string  `json:"due_date"`
	Status        string  `json:"status"`
	CompletedDate *string `json:"completed_date"`
}

type MilestonePatch struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	DueDate       *string `json:"due_date"`
	Status        *string `json:"status"`
	CompletedDate *string `json:"completed_date"`
}

func (s *Service) CreateProjectMilestone(ctx context.Context, in MilestoneInput) (uint64, error) {
	m := model.ProjectMilestone{ProjectID: in.ProjectID, Description: in.Description}
	var err error
	if m.Title, err = required("title", in.Title); err != nil {
		return 0, err
	}
	if m.DueDate, err = date("due_date", in.DueDate); err != nil {
		return 0, err
	}
	if m.Status, err = enumOr("status", in.Status, model.MilestonePending, model.ParseMilestoneStatus, model.MilestoneStatuses); err != nil {
		return 0, err
	}
	if m.CompletedDate, err = optDate("completed_date", in.CompletedDate); err != nil {
		return 0, err
	}
	if m.Status == model.MilestoneCompleted && m.CompletedDate == nil {
		m.CompletedDate = ptr(model.DateOf(s.now()))
	}
	if err := s.projectMustExist(ctx, s.projects, in.ProjectID); err != nil {
		return 0, err
	}
	m.CreationTime = s.nowMillis()
	if err := s.projects.CreateMilestone(ctx, &m); err != nil {
		return 0, err
	}
	return m.ID, nil
}

// UpdateProjectMilestone applies p.  Moving into Completed without an
// explicit completed_date stamps today's date.
func (s *Service) UpdateProjectMilestone(ctx context.Context, id uint64, p MilestonePatch) (model.ProjectMilestone, error) {
	var out model.ProjectMilestone
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		projects := s.projects.WithTx(tx)
		m, err := projects.GetMilestone(ctx, id)
		if err != nil {
			return lift(err, "milestone", id)
		}
		prev := m.Status
		if p.Title != nil {
			if m.Title, err = required("title", *p.Title); err != nil {
				return err
			}
		}
		if p.DueDate != nil {
			if m.DueDate, err = date("due_date", *p.DueDate); err != nil {
				return err
			}
		}
		if p.Status != nil {
			if m.Status, err = enum("status", *p.Status, model.ParseMilestoneStatus, model.MilestoneStatuses); err != nil {
				return err
			}
		}
		set(&m.Description, p.Description)
		if p.CompletedDate != nil {
			if m.CompletedDate, err = optDate("completed_date", p.CompletedDate); err != nil {
				return err
			}
		} else if m.Status == model.MilestoneCompleted && (prev != model.MilestoneCompleted || m.CompletedDate == nil) {
			m.CompletedDate = ptr(model.DateOf(s.now()))
		}
		if err := projects.UpdateMilestone(ctx, &m); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

func (s *Service) DeleteProjectMilestone(ctx context.Context, id uint64) error {
	return lift(s.projects.DeleteMilestone(ctx, id), "milestone", id)
}

func (s *Service) ListProjectMilestones(ctx context.Context, projectID uint64) ([]model.ProjectMilestone, error) {
	return s.projects.ListMilestones(ctx, projectID)
}

// GetNextMilestone returns the project's open milestone with the earliest
// due date, or nil when none is left.
func (s *Service) GetNextMilestone(ctx context.Context, projectID uint64) (*model.ProjectMilestone, error) {
	ms, err := s.projects.ListMilestones(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return model.NextMilestone(ms), nil
}
