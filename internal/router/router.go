// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fieldops/internal/handler"
	"github.com/iliyamo/fieldops/internal/middleware"
	"github.com/iliyamo/fieldops/internal/model"
)

// Handlers groups every handler the API serves.
type Handlers struct {
	Auth           *handler.AuthHandler
	Users          *handler.UserHandler
	Projects       *handler.ProjectHandler
	Contractors    *handler.ContractorHandler
	Communications *handler.CommunicationHandler
	Equipment      *handler.EquipmentHandler
	Inventory      *handler.InventoryHandler
	Purchases      *handler.PurchaseHandler
	Attendance     *handler.AttendanceHandler
	Quality        *handler.QualityHandler
	Reports        *handler.ReportHandler
	Files          *handler.FileHandler
}

// Options are the middlewares shared by the protected group.  Nil entries
// are skipped.
type Options struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

var (
	adminOnly    = middleware.RequireRole(model.RoleAdmin)
	supervisors  = middleware.RequireRole(model.RoleAdmin, model.RoleManager)
	siteStaff    = middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff)
	anyoneSigned = middleware.RequireRole(model.Roles...)
)

// RegisterPublic registers routes that need no token: health and metrics.
func RegisterPublic(e *echo.Echo, health echo.HandlerFunc, reports *handler.ReportHandler) {
	e.GET("/healthz", health)
	e.GET("/metrics", reports.Scrape)
}

// RegisterAuth registers token issuing under /v1/auth.  Logout accepts a
// refresh token in the body or, failing that, a bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, o Options) {
	g := e.Group("/v1/auth", use(o.RateLimit)...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(o.JWTSecret))
}

// RegisterAPI registers every authenticated route under /v1.  Reads are
// open to any signed-in role; writes are narrowed per route.
func RegisterAPI(e *echo.Echo, h Handlers, o Options) {
	mw := []echo.MiddlewareFunc{middleware.JWTAuth(o.JWTSecret), anyoneSigned}
	mw = append(mw, use(o.RateLimit, o.Cache)...)
	g := e.Group("/v1", mw...)

	g.GET("/me", h.Auth.Me)

	// ---- Users ----
	g.GET("/users", h.Users.List)
	g.GET("/users/:id", h.Users.Get)
	g.POST("/users", h.Users.Create, adminOnly)
	g.PATCH("/users/:id", h.Users.Update, adminOnly)
	g.DELETE("/users/:id", h.Users.Delete, adminOnly)

	// ---- Projects ----
	g.GET("/projects", h.Projects.List)
	g.GET("/projects/:id", h.Projects.Get)
	g.GET("/projects/:id/stats", h.Projects.Stats)
	g.POST("/projects", h.Projects.Create, supervisors)
	g.PATCH("/projects/:id", h.Projects.Update, supervisors)
	g.DELETE("/projects/:id", h.Projects.Delete, supervisors)
	g.POST("/projects/:id/documents", h.Projects.AddDocument, siteStaff)
	g.DELETE("/projects/:id/documents/:category/:ref", h.Projects.RemoveDocument, siteStaff)
	g.GET("/projects/:id/assignments", h.Projects.ListAssignments)
	g.POST("/projects/:id/assignments", h.Projects.CreateAssignment, supervisors)
	g.GET("/assignments", h.Projects.ListAssignments)
	g.DELETE("/assignments/:id", h.Projects.DeleteAssignment, supervisors)
	g.GET("/projects/:id/milestones", h.Projects.ListMilestones)
	g.GET("/projects/:id/milestones/next", h.Projects.NextMilestone)
	g.POST("/projects/:id/milestones", h.Projects.CreateMilestone, supervisors)
	g.PATCH("/milestones/:id", h.Projects.UpdateMilestone, supervisors)
	g.DELETE("/milestones/:id", h.Projects.DeleteMilestone, supervisors)

	// ---- Contractors ----
	g.GET("/contractors", h.Contractors.List)
	g.GET("/contractors/:id", h.Contractors.Get)
	g.POST("/contractors", h.Contractors.Create, supervisors)
	g.PATCH("/contractors/:id", h.Contractors.Update, supervisors)
	g.DELETE("/contractors/:id", h.Contractors.Delete, supervisors)

	// ---- Communications ----
	g.GET("/communications", h.Communications.List)
	g.GET("/communications/inbox", h.Communications.Inbox)
	g.GET("/communications/unread-count", h.Communications.UnreadCount)
	g.GET("/communications/sent", h.Communications.Sent)
	g.GET("/communications/:id", h.Communications.Get)
	g.POST("/communications/notices", h.Communications.CreateNotice)
	g.POST("/communications/messages", h.Communications.SendMessage)
	g.POST("/communications/broadcasts", h.Communications.Broadcast, supervisors)
	g.POST("/communications/:id/read", h.Communications.MarkAsRead)
	g.DELETE("/communications/:id", h.Communications.Delete, supervisors)

	// ---- Equipment ----
	g.GET("/equipment", h.Equipment.List)
	g.GET("/equipment/:id", h.Equipment.Get)
	g.POST("/equipment", h.Equipment.Create, supervisors)
	g.PATCH("/equipment/:id", h.Equipment.Update, supervisors)
	g.DELETE("/equipment/:id", h.Equipment.Delete, supervisors)
	g.GET("/dispatches", h.Equipment.ListDispatches)
	g.GET("/dispatches/:id", h.Equipment.GetDispatch)
	g.POST("/dispatches", h.Equipment.CreateDispatch, siteStaff)
	g.PATCH("/dispatches/:id/status", h.Equipment.UpdateDispatchStatus, supervisors)
	g.DELETE("/dispatches/:id", h.Equipment.DeleteDispatch, supervisors)

	// ---- Inventory ----
	g.GET("/inventory/items", h.Inventory.ListItems)
	g.GET("/inventory/items/:id", h.Inventory.GetItem)
	g.POST("/inventory/items", h.Inventory.CreateItem, supervisors)
	g.PATCH("/inventory/items/:id", h.Inventory.UpdateItem, supervisors)
	g.DELETE("/inventory/items/:id", h.Inventory.DeleteItem, supervisors)
	g.POST("/inventory/items/:id/deduct", h.Inventory.Deduct, siteStaff)
	g.POST("/inventory/items/:id/add", h.Inventory.Add, siteStaff)
	g.POST("/inventory/items/:id/adjust", h.Inventory.Adjust, supervisors)
	g.POST("/inventory/items/:id/transfer", h.Inventory.Transfer, siteStaff)
	g.GET("/inventory/logs", h.Inventory.ListLogs)
	g.GET("/inventory/requests", h.Inventory.ListRequests)
	g.GET("/inventory/requests/:id", h.Inventory.GetRequest)
	g.POST("/inventory/requests", h.Inventory.CreateRequest)
	g.PATCH("/inventory/requests/:id/status", h.Inventory.UpdateRequestStatus, supervisors)
	g.DELETE("/inventory/requests/:id", h.Inventory.DeleteRequest, supervisors)

	// ---- Purchases ----
	g.GET("/purchases", h.Purchases.List)
	g.GET("/purchases/:id", h.Purchases.Get)
	g.POST("/purchases", h.Purchases.Create)
	g.PATCH("/purchases/:id/status", h.Purchases.UpdateStatus, supervisors)
	g.DELETE("/purchases/:id", h.Purchases.Delete, supervisors)

	// ---- Attendance ----
	g.POST("/attendance/punch-in", h.Attendance.PunchIn)
	g.POST("/attendance/punch-out", h.Attendance.PunchOut)
	g.GET("/attendance/today", h.Attendance.Today)
	g.GET("/attendance/summary", h.Attendance.Summary)
	g.GET("/attendance", h.Attendance.List)
	g.POST("/attendance", h.Attendance.Mark, supervisors)
	g.PATCH("/attendance/:id", h.Attendance.Update, supervisors)
	g.DELETE("/attendance/:id", h.Attendance.Delete, supervisors)

	// ---- Quality ----
	g.GET("/quality/stats", h.Quality.Stats)
	g.GET("/quality/ncrs", h.Quality.ListNCRs)
	g.GET("/quality/ncrs/:id", h.Quality.GetNCR)
	g.POST("/quality/ncrs", h.Quality.CreateNCR, siteStaff)
	g.PATCH("/quality/ncrs/:id", h.Quality.UpdateNCR, siteStaff)
	g.DELETE("/quality/ncrs/:id", h.Quality.DeleteNCR, supervisors)
	g.GET("/quality/inspections", h.Quality.ListInspections)
	g.GET("/quality/inspections/:id", h.Quality.GetInspection)
	g.POST("/quality/inspections", h.Quality.CreateInspection, siteStaff)
	g.PATCH("/quality/inspections/:id", h.Quality.UpdateInspection, siteStaff)
	g.DELETE("/quality/inspections/:id", h.Quality.DeleteInspection, supervisors)
	g.GET("/quality/tests", h.Quality.ListTests)
	g.GET("/quality/tests/:id", h.Quality.GetTest)
	g.POST("/quality/tests", h.Quality.CreateTest, siteStaff)
	g.PATCH("/quality/tests/:id", h.Quality.UpdateTest, siteStaff)
	g.DELETE("/quality/tests/:id", h.Quality.DeleteTest, supervisors)

	// ---- Reports ----
	g.GET("/dashboard", h.Reports.Dashboard)
	g.GET("/export/:dataset", h.Reports.Export, supervisors)

	// ---- Files ----
	g.POST("/files/handles", h.Files.NewHandle)
	g.POST("/files/uploads/:handle", h.Files.Upload)
	g.GET("/files/:ref", h.Files.Open)
}

func use(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
