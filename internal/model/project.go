package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ClientInfo is the client block nested in a project.  It is flattened
// into client_* columns.
type ClientInfo struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// Project is a row of `projects`.  The four document arrays hold storage
// reference ids; assignments and milestones live in their own tables.
type Project struct {
	ID           uint64          `json:"id"`
	Name         string          `json:"name"`
	ProjectID    string          `json:"project_id"` // external id string
	Client       ClientInfo      `json:"client"`
	Location     string          `json:"location"`
	StartDate    Date            `json:"start_date"`
	EndDate      Date            `json:"end_date"`
	Budget       decimal.Decimal `json:"budget"`
	Currency     string          `json:"currency"`
	Status       ProjectStatus   `json:"status"`
	Description  string          `json:"description"`
	Drawings     RefSet          `json:"drawings"`
	BOQ          RefSet          `json:"boq"`
	LegalDocs    RefSet          `json:"legal_docs"`
	SafetyCerts  RefSet          `json:"safety_certs"`
	CreatedBy    uint64          `json:"created_by"`
	CreationTime int64           `json:"creation_time"`
}

// Documents returns a pointer to the document array named by cat.
func (p *Project) Documents(cat DocumentCategory) *RefSet {
	switch cat {
	case DocDrawings:
		return &p.Drawings
	case DocBOQ:
		return &p.BOQ
	case DocLegal:
		return &p.LegalDocs
	case DocSafetyCerts:
		return &p.SafetyCerts
	}
	return nil
}

// DocumentCount is the total number of references across all four arrays.
func (p *Project) DocumentCount() int {
	return p.Drawings.Len() + p.BOQ.Len() + p.LegalDocs.Len() + p.SafetyCerts.Len()
}

// ProjectAssignment is a row of `project_assignments`.  UserID is optional:
// external people are recorded by name and contact only.
type ProjectAssignment struct {
	ID           uint64  `json:"id"`
	ProjectID    uint64  `json:"project_id"`
	Role         string  `json:"role"`
	UserID       *uint64 `json:"user_id"`
	Name         string  `json:"name"`
	Contact      string  `json:"contact"`
	CreationTime int64   `json:"creation_time"`
}

// ProjectMilestone is a row of `project_milestones`.
type ProjectMilestone struct {
	ID            uint64          `json:"id"`
	ProjectID     uint64          `json:"project_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	DueDate       Date            `json:"due_date"`
	Status        MilestoneStatus `json:"status"`
	CompletedDate *Date           `json:"completed_date"`
	CreationTime  int64           `json:"creation_time"`
}

// NextMilestone returns the open milestone with the earliest due date, or
// nil when every milestone is completed.  Equal due dates keep input order.
func NextMilestone(ms []ProjectMilestone) *ProjectMilestone {
	open := make([]ProjectMilestone, 0, len(ms))
	for _, m := range ms {
		if m.Status != MilestoneCompleted {
			open = append(open, m)
		}
	}
	if len(open) == 0 {
		return nil
	}
	sort.SliceStable(open, func(i, j int) bool { return open[i].DueDate.Before(open[j].DueDate) })
	next := open[0]
	return &next
}
