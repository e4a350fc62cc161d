package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fieldops/internal/service"
)

type PurchaseHandler struct {
	Svc *service.Service
}

func NewPurchaseHandler(svc *service.Service) *PurchaseHandler { return &PurchaseHandler{Svc: svc} }

func (h *PurchaseHandler) Create(c echo.Context) error {
	var in service.PurchaseInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	orCaller(c, &in.RequestedBy)
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Svc.CreatePurchaseRequest(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, id)
}

func (h *PurchaseHandler) Get(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		v, err := h.Svc.GetPurchaseRequest(ctx, id)
		return one(c, v, err)
	})(c)
}

func (h *PurchaseHandler) UpdateStatus(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var req statusReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
		uid, err := getUserID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		p, err := h.Svc.UpdatePurchaseRequestStatus(ctx, id, req.Status, uid)
		return one(c, p, err)
	})(c)
}

func (h *PurchaseHandler) Delete(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		return deleted(c, h.Svc.DeletePurchaseRequest(ctx, id))
	})(c)
}

// List accepts ?status=&project_id=&requested_by=.
func (h *PurchaseHandler) List(c echo.Context) error {
	projectID, err := queryUint(c, "project_id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	requestedBy, err := queryUint(c, "requested_by")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListPurchaseRequests(ctx, service.PurchaseFilter{
		Status:      query(c, "status"),
		ProjectID:   projectID,
		RequestedBy: requestedBy,
	})
	return list(c, rows, err)
}
