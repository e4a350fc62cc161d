package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fieldops/internal/service"
)

// CommunicationHandler serves notices, direct messages and broadcasts.
// The sender is always the authenticated caller.
type CommunicationHandler struct {
	Svc *service.Service
}

func NewCommunicationHandler(svc *service.Service) *CommunicationHandler {
	return &CommunicationHandler{Svc: svc}
}

type sendFunc func(context.Context, service.CommunicationInput) (uint64, error)

func (h *CommunicationHandler) send(c echo.Context, fn sendFunc) error {
	var in service.CommunicationInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	in.FromUserID = uid
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := fn(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, id)
}

func (h *CommunicationHandler) CreateNotice(c echo.Context) error {
	return h.send(c, h.Svc.CreateNotice)
}

func (h *CommunicationHandler) SendMessage(c echo.Context) error {
	return h.send(c, h.Svc.SendMessage)
}

// Broadcast sends to every user active right now.
func (h *CommunicationHandler) Broadcast(c echo.Context) error {
	var in service.BroadcastInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	in.FromUserID = uid
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Svc.BroadcastAnnouncement(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, id)
}

func (h *CommunicationHandler) MarkAsRead(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		uid, err := getUserID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		if err := h.Svc.MarkAsRead(ctx, id, uid); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	})(c)
}

func (h *CommunicationHandler) Get(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		v, err := h.Svc.GetCommunication(ctx, id)
		return one(c, v, err)
	})(c)
}

func (h *CommunicationHandler) Delete(c echo.Context) error {
	return byID(func(c echo.Context, ctx context.Context, id uint64) error {
		return deleted(c, h.Svc.DeleteCommunication(ctx, id))
	})(c)
}

// List accepts ?type=&priority=&project_id=.
func (h *CommunicationHandler) List(c echo.Context) error {
	projectID, err := queryUint(c, "project_id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListNotices(ctx, service.CommunicationFilter{
		Type:      query(c, "type"),
		Priority:  query(c, "priority"),
		ProjectID: projectID,
	})
	return list(c, rows, err)
}

// Inbox lists what the caller received; ?unread=true drops read rows.
func (h *CommunicationHandler) Inbox(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	unread, err := queryBool(c, "unread")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListInbox(ctx, uid, unread != nil && *unread)
	return list(c, rows, err)
}

func (h *CommunicationHandler) UnreadCount(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Svc.UnreadCount(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

func (h *CommunicationHandler) Sent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Svc.ListSent(ctx, uid)
	return list(c, rows, err)
}
