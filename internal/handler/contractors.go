package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fieldops/internal/service"
)

type ContractorHandler struct {
	Svc *service.Service
}

func NewContractorHandler(svc *service.Service) *ContractorHandler {
	return &ContractorHandler{Svc: svc}
}

func (h *ContractorHandler) Create(c echo.Context) error {
	var in service.ContractorInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Svc.CreateContractor(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, id)
}

func (h *ContractorHandler) Get(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		v, err := h.Svc.GetContractor(ctx, id)
		return one(c, v, err)
	})(c)
}

func (h *ContractorHandler) Update(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var p service.ContractorPatch
		if err := c.Bind(&p); err != nil {
			return badRequest(c, "invalid body")
		}
		v, err := h.Svc.UpdateContractor(ctx, id, p)
		return one(c, v, err)
	})(c)
}

func (h *ContractorHandler) Delete(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		return deleted(c, h.Svc.DeleteContractor(ctx, id))
	})(c)
}

// List accepts ?status=&specialty=&project_id=&search=.
func (h *ContractorHandler) List(c echo.Context) error {
	projectID, err := queryUint(c, "project_id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListContractors(ctx, service.ContractorFilter{
		Status:    query(c, "status"),
		Specialty: query(c, "specialty"),
		ProjectID: projectID,
		Search:    query(c, "search"),
	})
	return list(c, rows, err)
}
