package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fieldops/internal/service"
)

// UserHandler serves the user directory.  Writes are admin-only at the
// router.
type UserHandler struct {
	Svc        *service.Service
	BcryptCost int
}

func NewUserHandler(svc *service.Service, bcryptCost int) *UserHandler {
	return &UserHandler{Svc: svc, BcryptCost: bcryptCost}
}

func (h *UserHandler) Create(c echo.Context) error {
	var in service.UserInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Svc.CreateUser(ctx, in, h.BcryptCost)
	if err != nil {
		return fail(c, err)
	}
	return created(c, id)
}

func (h *UserHandler) Get(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		u, err := h.Svc.GetUser(ctx, id)
		return one(c, u, err)
	})(c)
}

func (h *UserHandler) Update(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var p service.UserPatch
		if err := c.Bind(&p); err != nil {
			return badRequest(c, "invalid body")
		}
		u, err := h.Svc.UpdateUser(ctx, id, p, h.BcryptCost)
		return one(c, u, err)
	})(c)
}

func (h *UserHandler) Delete(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		if uid, _ := getUserID(c); uid == id {
			return c.JSON(http.StatusConflict, echo.Map{"error": "cannot delete yourself"})
		}
		return deleted(c, h.Svc.DeleteUser(ctx, id))
	})(c)
}

// List accepts ?role=&department=&active=&search=.
func (h *UserHandler) List(c echo.Context) error {
	active, err := queryBool(c, "active")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListUsers(ctx, service.UserFilter{
		Role:       query(c, "role"),
		Department: query(c, "department"),
		Active:     active,
		Search:     query(c, "search"),
	})
	return list(c, rows, err)
}
