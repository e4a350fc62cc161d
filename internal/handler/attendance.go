package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fieldops/internal/middleware"
	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/service"
)

// AttendanceHandler serves punch in/out for the caller and attendance
// records for supervisors.
type AttendanceHandler struct {
	Svc *service.Service
}

func NewAttendanceHandler(svc *service.Service) *AttendanceHandler {
	return &AttendanceHandler{Svc: svc}
}

var errOtherUser = errors.New("only admins and managers can read other users' attendance")

// subjectUser picks ?user_id, defaulting to the caller.  Staff and
// contractors may only name themselves.
func subjectUser(c echo.Context) (uint64, error) {
	uid, err := getUserID(c)
	if err != nil {
		return 0, err
	}
	asked, err := queryUint(c, "user_id")
	if err != nil {
		return 0, err
	}
	if asked == 0 || asked == uid {
		return uid, nil
	}
	if r := middleware.Role(c); r != model.RoleAdmin && r != model.RoleManager {
		return 0, errOtherUser
	}
	return asked, nil
}

func subjectError(c echo.Context, err error) error {
	if errors.Is(err, errOtherUser) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	}
	return badRequest(c, err.Error())
}

type punchReq struct {
	Location string `json:"location"`
}

func (h *AttendanceHandler) PunchIn(c echo.Context) error {
	var req punchReq
	_ = c.Bind(&req)
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Svc.PunchIn(ctx, uid, req.Location)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *AttendanceHandler) PunchOut(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Svc.PunchOut(ctx, uid)
	return one(c, a, err)
}

// Today answers 204 when the caller has no row yet.
func (h *AttendanceHandler) Today(c echo.Context) error {
	uid, err := subjectUser(c)
	if err != nil {
		return subjectError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Svc.GetTodayAttendance(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	if a == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, a)
}

// Mark records a day by hand, e.g. Absent or Leave.
func (h *AttendanceHandler) Mark(c echo.Context) error {
	var in service.MarkAttendanceInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Svc.MarkAttendance(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, id)
}

func (h *AttendanceHandler) Update(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		var p service.AttendancePatch
		if err := c.Bind(&p); err != nil {
			return badRequest(c, "invalid body")
		}
		a, err := h.Svc.UpdateAttendance(ctx, id, p)
		return one(c, a, err)
	})(c)
}

func (h *AttendanceHandler) Delete(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		return deleted(c, h.Svc.DeleteAttendance(ctx, id))
	})(c)
}

// List accepts ?user_id=&status=&from=&to=.  Without user_id, admins and
// managers see everyone and other roles see themselves.
func (h *AttendanceHandler) List(c echo.Context) error {
	f := service.AttendanceFilter{Status: query(c, "status"), From: query(c, "from"), To: query(c, "to")}
	r := middleware.Role(c)
	if query(c, "user_id") != "" || (r != model.RoleAdmin && r != model.RoleManager) {
		uid, err := subjectUser(c)
		if err != nil {
			return subjectError(c, err)
		}
		f.UserID = uid
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListAttendance(ctx, f)
	return list(c, rows, err)
}

// Summary accepts ?user_id=&month=YYYY-MM.
func (h *AttendanceHandler) Summary(c echo.Context) error {
	uid, err := subjectUser(c)
	if err != nil {
		return subjectError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sum, err := h.Svc.GetAttendanceSummary(ctx, uid, query(c, "month"))
	return one(c, sum, err)
}
