package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fieldops/internal/service"
)

// EquipmentHandler serves the equipment register and dispatches.
type EquipmentHandler struct {
	Svc *service.Service
}

func NewEquipmentHandler(svc *service.Service) *EquipmentHandler {
	return &EquipmentHandler{Svc: svc}
}

func (h *EquipmentHandler) Create(c echo.Context) error {
	var in service.EquipmentInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Svc.CreateEquipment(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, id)
}

func (h *EquipmentHandler) Get(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		e, err := h.Svc.GetEquipment(ctx, id)
		return one(c, e, err)
	})(c)
}

func (h *EquipmentHandler) Update(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var p service.EquipmentPatch
		if err := c.Bind(&p); err != nil {
			return badRequest(c, "invalid body")
		}
		e, err := h.Svc.UpdateEquipment(ctx, id, p)
		return one(c, e, err)
	})(c)
}

func (h *EquipmentHandler) Delete(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		return deleted(c, h.Svc.DeleteEquipment(ctx, id))
	})(c)
}

// List accepts ?status=&type=&search=.
func (h *EquipmentHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListEquipment(ctx, service.EquipmentFilter{
		Status: query(c, "status"),
		Type:   query(c, "type"),
		Search: query(c, "search"),
	})
	return list(c, rows, err)
}

func (h *EquipmentHandler) CreateDispatch(c echo.Context) error {
	var in service.DispatchInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	orCaller(c, &in.RequestedBy)
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Svc.CreateDispatch(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, id)
}

// UpdateDispatchStatus records the caller as the actor.
func (h *EquipmentHandler) UpdateDispatchStatus(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var req statusReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
		uid, err := getUserID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		d, err := h.Svc.UpdateDispatchStatus(ctx, id, req.Status, uid)
		return one(c, d, err)
	})(c)
}

func (h *EquipmentHandler) GetDispatch(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		d, err := h.Svc.GetDispatch(ctx, id)
		return one(c, d, err)
	})(c)
}

func (h *EquipmentHandler) DeleteDispatch(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		return deleted(c, h.Svc.DeleteDispatch(ctx, id))
	})(c)
}

// ListDispatches accepts ?status=&project_id=&equipment_id=.
func (h *EquipmentHandler) ListDispatches(c echo.Context) error {
	projectID, err := queryUint(c, "project_id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	equipmentID, err := queryUint(c, "equipment_id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListDispatches(ctx, service.DispatchFilter{
		Status:      query(c, "status"),
		ProjectID:   projectID,
		EquipmentID: equipmentID,
	})
	return list(c, rows, err)
}
