package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/service"
)

// InventoryHandler serves items, stock movements, the ledger and
// inventory requests.
type InventoryHandler struct {
	Svc *service.Service
}

func NewInventoryHandler(svc *service.Service) *InventoryHandler {
	return &InventoryHandler{Svc: svc}
}

func (h *InventoryHandler) CreateItem(c echo.Context) error {
	var in service.ItemInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	orCaller(c, &in.CreatedBy)
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Svc.CreateItem(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, id)
}

func (h *InventoryHandler) GetItem(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		v, err := h.Svc.GetItem(ctx, id)
		return one(c, v, err)
	})(c)
}

// UpdateItem never touches quantity; stock moves go through the ledger
// endpoints.
func (h *InventoryHandler) UpdateItem(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var p service.ItemPatch
		if err := c.Bind(&p); err != nil {
			return badRequest(c, "invalid body")
		}
		v, err := h.Svc.UpdateItem(ctx, id, p)
		return one(c, v, err)
	})(c)
}

func (h *InventoryHandler) DeleteItem(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		return deleted(c, h.Svc.DeleteItem(ctx, id))
	})(c)
}

// ListItems accepts ?category=&location=&search=&low_stock=.
func (h *InventoryHandler) ListItems(c echo.Context) error {
	low, err := queryBool(c, "low_stock")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListItems(ctx, service.ItemFilter{
		Category: query(c, "category"),
		Location: query(c, "location"),
		Search:   query(c, "search"),
		LowStock: low != nil && *low,
	})
	return list(c, rows, err)
}

type stockFunc func(context.Context, service.StockInput) (model.InventoryItem, error)

// stock binds a movement on item :id, attributed to the caller.
func (h *InventoryHandler) stock(c echo.Context, fn stockFunc) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var in service.StockInput
		if err := c.Bind(&in); err != nil {
			return badRequest(c, "invalid body")
		}
		in.ItemID = id
		orCaller(c, &in.UserID)
		v, err := fn(ctx, in)
		return one(c, v, err)
	})(c)
}

func (h *InventoryHandler) Deduct(c echo.Context) error {
	return h.stock(c, h.Svc.DeductStock)
}

func (h *InventoryHandler) Add(c echo.Context) error {
	return h.stock(c, h.Svc.AddStock)
}

// Adjust sets the quantity to the body's absolute value.
func (h *InventoryHandler) Adjust(c echo.Context) error {
	return h.stock(c, h.Svc.AdjustStock)
}

// Transfer answers with both the source and the destination item.
func (h *InventoryHandler) Transfer(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var in service.TransferInput
		if err := c.Bind(&in); err != nil {
			return badRequest(c, "invalid body")
		}
		in.ItemID = id
		orCaller(c, &in.UserID)
		src, dst, err := h.Svc.TransferStock(ctx, in)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"from": src, "to": dst})
	})(c)
}

// ListLogs accepts ?item_id=&type=.
func (h *InventoryHandler) ListLogs(c echo.Context) error {
	itemID, err := queryUint(c, "item_id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListInventoryLogs(ctx, service.LogFilter{ItemID: itemID, Type: query(c, "type")})
	return list(c, rows, err)
}

func (h *InventoryHandler) CreateRequest(c echo.Context) error {
	var in service.InventoryRequestInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	orCaller(c, &in.RequestedBy)
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Svc.CreateInventoryRequest(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, id)
}

// UpdateRequestStatus deducts stock for every line on the move to
// Fulfilled.
func (h *InventoryHandler) UpdateRequestStatus(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var req statusReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
		uid, err := getUserID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		r, err := h.Svc.UpdateInventoryRequestStatus(ctx, id, req.Status, uid)
		return one(c, r, err)
	})(c)
}

func (h *InventoryHandler) GetRequest(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		r, err := h.Svc.GetInventoryRequest(ctx, id)
		return one(c, r, err)
	})(c)
}

func (h *InventoryHandler) DeleteRequest(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		return deleted(c, h.Svc.DeleteInventoryRequest(ctx, id))
	})(c)
}

// ListRequests accepts ?status=&project_id=&requested_by=.
func (h *InventoryHandler) ListRequests(c echo.Context) error {
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
	rows, err := h.Svc.ListInventoryRequests(ctx, service.RequestFilter{
		Status:      query(c, "status"),
		ProjectID:   projectID,
		RequestedBy: requestedBy,
	})
	return list(c, rows, err)
}
