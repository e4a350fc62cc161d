package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fieldops/internal/middleware"
	"github.com/iliyamo/fieldops/internal/service"
)

// requestTimeout bounds every service call made by a handler.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// fail maps service errors to a status code and an {"error": msg} body.
// Anything outside the taxonomy is a 500 and its text stays in the log.
func fail(c echo.Context, err error) error {
	var (
		ve *service.ValidationError
		ne *service.NotFoundError
		ae *service.AuthorizationError
		ce *service.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Msg})
	case errors.As(err, &ne):
		return c.JSON(http.StatusNotFound, echo.Map{"error": ne.Msg})
	case errors.As(err, &ae):
		return c.JSON(http.StatusForbidden, echo.Map{"error": ae.Msg})
	case errors.As(err, &ce):
		return c.JSON(http.StatusConflict, echo.Map{"error": ce.Msg})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "request timed out"})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// items wraps a list response the same way everywhere.
func items[T any](c echo.Context, v []T) error {
	if v == nil {
		v = []T{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": v})
}

func created(c echo.Context, id uint64) error {
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// getUserID returns the authenticated caller set by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok || id == 0 {
		return 0, errors.New("invalid user_id in context")
	}
	return id, nil
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// queryUint parses an optional positive id from the query string; absent
// means 0.
func queryUint(c echo.Context, name string) (uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

// queryBool accepts true/false/1/0; absent means nil.
func queryBool(c echo.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.New("invalid " + name)
	}
	return &b, nil
}

func query(c echo.Context, name string) string { return strings.TrimSpace(c.QueryParam(name)) }

// orCaller fills an unset actor field with the authenticated user.
func orCaller(c echo.Context, id *uint64) {
	if *id == 0 {
		if uid, err := getUserID(c); err == nil {
			*id = uid
		}
	}
}

// statusReq is the body of every PATCH .../status endpoint.
type statusReq struct {
	Status string `json:"status"`
}

// idHandler is the signature shared by every handler addressed by :id.
type idHandler func(c echo.Context, ctx context.Context, id uint64) error

// byID parses :id and sets up the request context before calling fn.
func byID(fn idHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return badRequest(c, err.Error())
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		return fn(c, ctx, id)
	}
}

// deleted answers a successful DELETE.
func deleted(c echo.Context, err error) error {
	if err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// one answers a single-row GET or PATCH.
func one[T any](c echo.Context, v T, err error) error {
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// list answers a list GET.
func list[T any](c echo.Context, v []T, err error) error {
	if err != nil {
		return fail(c, err)
	}
	return items(c, v)
}
