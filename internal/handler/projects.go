package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fieldops/internal/service"
)

// ProjectHandler serves projects and the rows hanging off them:
// documents, assignments and milestones.
type ProjectHandler struct {
	Svc *service.Service
}

func NewProjectHandler(svc *service.Service) *ProjectHandler { return &ProjectHandler{Svc: svc} }

func (h *ProjectHandler) Create(c echo.Context) error {
	var in service.ProjectInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	orCaller(c, &in.CreatedBy)
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Svc.CreateProject(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, id)
}

// Get returns the project with its assignments and milestones inline.
func (h *ProjectHandler) Get(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		p, err := h.Svc.GetProject(ctx, id)
		return one(c, p, err)
	})(c)
}

func (h *ProjectHandler) Update(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var p service.ProjectPatch
		if err := c.Bind(&p); err != nil {
			return badRequest(c, "invalid body")
		}
		out, err := h.Svc.UpdateProject(ctx, id, p)
		return one(c, out, err)
	})(c)
}

func (h *ProjectHandler) Delete(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		return deleted(c, h.Svc.DeleteProject(ctx, id))
	})(c)
}

// List accepts ?status=&search=.
func (h *ProjectHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListProjects(ctx, service.ProjectFilter{Status: query(c, "status"), Search: query(c, "search")})
	return list(c, rows, err)
}

func (h *ProjectHandler) Stats(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		st, err := h.Svc.GetProjectDashboardStats(ctx, id)
		return one(c, st, err)
	})(c)
}

type documentReq struct {
	Category    string `json:"category"`
	ReferenceID string `json:"reference_id"`
}

// AddDocument attaches a stored object to one of the project's document
// sets and returns the updated set.
func (h *ProjectHandler) AddDocument(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var req documentReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
		refs, err := h.Svc.AddProjectDocument(ctx, id, req.Category, req.ReferenceID)
		return list(c, []string(refs), err)
	})(c)
}

// RemoveDocument takes the category and reference from the path.
func (h *ProjectHandler) RemoveDocument(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		refs, err := h.Svc.RemoveProjectDocument(ctx, id, c.Param("category"), c.Param("ref"))
		return list(c, []string(refs), err)
	})(c)
}

func (h *ProjectHandler) CreateAssignment(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var in service.AssignmentInput
		if err := c.Bind(&in); err != nil {
			return badRequest(c, "invalid body")
		}
		in.ProjectID = id
		aid, err := h.Svc.CreateProjectAssignment(ctx, in)
		if err != nil {
			return fail(c, err)
		}
		return created(c, aid)
	})(c)
}

// ListAssignments serves both /projects/:id/assignments and
// /assignments?project_id=.
func (h *ProjectHandler) ListAssignments(c echo.Context) error {
	projectID, err := queryUint(c, "project_id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if c.Param("id") != "" {
		if projectID, err = pathID(c, "id"); err != nil {
			return badRequest(c, err.Error())
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListProjectAssignments(ctx, projectID)
	return list(c, rows, err)
}

func (h *ProjectHandler) DeleteAssignment(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		return deleted(c, h.Svc.DeleteProjectAssignment(ctx, id))
	})(c)
}

func (h *ProjectHandler) CreateMilestone(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var in service.MilestoneInput
		if err := c.Bind(&in); err != nil {
			return badRequest(c, "invalid body")
		}
		in.ProjectID = id
		mid, err := h.Svc.CreateProjectMilestone(ctx, in)
		if err != nil {
			return fail(c, err)
		}
		return created(c, mid)
	})(c)
}

func (h *ProjectHandler) ListMilestones(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		rows, err := h.Svc.ListProjectMilestones(ctx, id)
		return list(c, rows, err)
	})(c)
}

// NextMilestone answers 204 when every milestone is done.
func (h *ProjectHandler) NextMilestone(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		m, err := h.Svc.GetNextMilestone(ctx, id)
		if err != nil {
			return fail(c, err)
		}
		if m == nil {
			return c.NoContent(http.StatusNoContent)
		}
		return c.JSON(http.StatusOK, m)
	})(c)
}

func (h *ProjectHandler) UpdateMilestone(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var p service.MilestonePatch
		if err := c.Bind(&p); err != nil {
			return badRequest(c, "invalid body")
		}
		m, err := h.Svc.UpdateProjectMilestone(ctx, id, p)
		return one(c, m, err)
	})(c)
}

func (h *ProjectHandler) DeleteMilestone(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		return deleted(c, h.Svc.DeleteProjectMilestone(ctx, id))
	})(c)
}
