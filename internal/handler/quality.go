package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fieldops/internal/service"
)

// QualityHandler serves NCRs, material inspections, test results and
// their aggregate stats.
type QualityHandler struct {
	Svc *service.Service
}

func NewQualityHandler(svc *service.Service) *QualityHandler { return &QualityHandler{Svc: svc} }

// qualityFilter reads ?project_id= plus the named status-like parameter.
func qualityFilter(c echo.Context, statusParam string) (service.QualityFilter, error) {
	projectID, err := queryUint(c, "project_id")
	if err != nil {
		return service.QualityFilter{}, err
	}
	return service.QualityFilter{
		ProjectID: projectID,
		Status:    query(c, statusParam),
		Severity:  query(c, "severity"),
	}, nil
}

// ---- NCRs ----

func (h *QualityHandler) CreateNCR(c echo.Context) error {
	var in service.NCRInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	orCaller(c, &in.DetectedBy)
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Svc.CreateNCR(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, id)
}

func (h *QualityHandler) GetNCR(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		v, err := h.Svc.GetNCR(ctx, id)
		return one(c, v, err)
	})(c)
}

func (h *QualityHandler) UpdateNCR(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var p service.NCRPatch
		if err := c.Bind(&p); err != nil {
			return badRequest(c, "invalid body")
		}
		uid, err := getUserID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		n, err := h.Svc.UpdateNCR(ctx, id, p, uid)
		return one(c, n, err)
	})(c)
}

func (h *QualityHandler) DeleteNCR(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		return deleted(c, h.Svc.DeleteNCR(ctx, id))
	})(c)
}

// ListNCRs accepts ?project_id=&status=&severity=.
func (h *QualityHandler) ListNCRs(c echo.Context) error {
	f, err := qualityFilter(c, "status")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListNCRs(ctx, f)
	return list(c, rows, err)
}

// ---- Material inspections ----

func (h *QualityHandler) CreateInspection(c echo.Context) error {
	var in service.InspectionInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	orCaller(c, &in.InspectedBy)
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Svc.CreateInspection(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, id)
}

func (h *QualityHandler) GetInspection(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		v, err := h.Svc.GetInspection(ctx, id)
		return one(c, v, err)
	})(c)
}

func (h *QualityHandler) UpdateInspection(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var p service.InspectionPatch
		if err := c.Bind(&p); err != nil {
			return badRequest(c, "invalid body")
		}
		v, err := h.Svc.UpdateInspection(ctx, id, p)
		return one(c, v, err)
	})(c)
}

func (h *QualityHandler) DeleteInspection(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		return deleted(c, h.Svc.DeleteInspection(ctx, id))
	})(c)
}

// ListInspections accepts ?project_id=&result=.
func (h *QualityHandler) ListInspections(c echo.Context) error {
	f, err := qualityFilter(c, "result")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListInspections(ctx, f)
	return list(c, rows, err)
}

// ---- Test results ----

func (h *QualityHandler) CreateTest(c echo.Context) error {
	var in service.TestInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	orCaller(c, &in.TestedBy)
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Svc.CreateTestResult(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, id)
}

func (h *QualityHandler) GetTest(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		v, err := h.Svc.GetTestResult(ctx, id)
		return one(c, v, err)
	})(c)
}

func (h *QualityHandler) UpdateTest(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var p service.TestPatch
		if err := c.Bind(&p); err != nil {
			return badRequest(c, "invalid body")
		}
		v, err := h.Svc.UpdateTestResult(ctx, id, p)
		return one(c, v, err)
	})(c)
}

func (h *QualityHandler) DeleteTest(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		return deleted(c, h.Svc.DeleteTestResult(ctx, id))
	})(c)
}

// ListTests accepts ?project_id=&result=.
func (h *QualityHandler) ListTests(c echo.Context) error {
	f, err := qualityFilter(c, "result")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListTestResults(ctx, f)
	return list(c, rows, err)
}

// Stats accepts an optional ?project_id=.
func (h *QualityHandler) Stats(c echo.Context) error {
	projectID, err := queryUint(c, "project_id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.Svc.GetQualityStats(ctx, projectID)
	return one(c, st, err)
}
