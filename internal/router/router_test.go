package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fieldops/internal/config"
	"github.com/iliyamo/fieldops/internal/database"
	"github.com/iliyamo/fieldops/internal/handler"
	"github.com/iliyamo/fieldops/internal/middleware"
	"github.com/iliyamo/fieldops/internal/repository"
	"github.com/iliyamo/fieldops/internal/service"
	"github.com/iliyamo/fieldops/internal/storage"
)

type app struct {
	e   *echo.Echo
	svc *service.Service
}

func newApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	db, err := database.OpenSQLite(filepath.Join(dir, "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))

	store, err := storage.NewDiskStore(filepath.Join(dir, "uploads"), 1<<20, time.Minute)
	require.NoError(t, err)

	cfg := config.Config{JWTSecret: "router-test", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	svc := service.New(db, service.WithObjectStore(store))
	metrics := middleware.NewMetrics()

	e := echo.New()
	e.Use(metrics.Middleware())
	h := Handlers{
		Auth:           handler.NewAuthHandler(cfg, svc, repository.NewUserRepo(db), repository.NewTokenRepo(db)),
		Users:          handler.NewUserHandler(svc, cfg.BcryptCost),
		Projects:       handler.NewProjectHandler(svc),
		Contractors:    handler.NewContractorHandler(svc),
		Communications: handler.NewCommunicationHandler(svc),
		Equipment:      handler.NewEquipmentHandler(svc),
		Inventory:      handler.NewInventoryHandler(svc),
		Purchases:      handler.NewPurchaseHandler(svc),
		Attendance:     handler.NewAttendanceHandler(svc),
		Quality:        handler.NewQualityHandler(svc),
		Reports:        handler.NewReportHandler(svc, metrics),
		Files:          handler.NewFileHandler(store, 1<<20),
	}
	o := Options{JWTSecret: cfg.JWTSecret}
	RegisterPublic(e, handler.Health(db), h.Reports)
	RegisterAuth(e, h.Auth, o)
	RegisterAPI(e, h, o)
	return &app{e: e, svc: svc}
}

func (a *app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func idOf(t *testing.T, rec *httptest.ResponseRecorder) uint64 {
	t.Helper()
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return uint64(decode(t, rec)["id"].(float64))
}

// login seeds a user with role through the service and returns an access
// token for it.
func (a *app) login(t *testing.T, email, role string) (uint64, string) {
	t.Helper()
	id, err := a.svc.CreateUser(context.Background(), service.UserInput{
		Email: email, FullName: strings.Split(email, "@")[0], Role: role, Password: "pa55word",
	}, 4)
	require.NoError(t, err)
	rec := a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email, "password": "pa55word"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	access := decode(t, rec)["access"].(map[string]any)
	return id, access["token"].(string)
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	a := newApp(t)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/healthz", "", nil).Code)

	rec := a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fieldops_open_ncrs")
}

func TestRegisterCannotClaimAdmin(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "eve@site.test", "password": "secret1", "full_name": "Eve", "role": "admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "staff", user["role"])

	rec = a.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "eve@site.test", "password": "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "eve@site.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "r@site.test", "password": "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	refresh := decode(t, rec)["refresh"].(map[string]any)["token"].(string)

	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decode(t, rec)["refresh"].(map[string]any)["token"].(string)

	// the old refresh token is spent
	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/logout", "", map[string]string{"refresh_token": rotated})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/auth/refresh-access", "", map[string]string{"refresh_token": rotated})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	a := newApp(t)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/v1/projects", "", nil).Code)
}

func TestProjectFlow(t *testing.T) {
	a := newApp(t)
	_, mgr := a.login(t, "mgr@site.test", "manager")
	_, crew := a.login(t, "crew@site.test", "staff")

	body := map[string]any{"name": "Depot Extension", "start_date": "2025-01-01", "end_date": "2025-12-31", "budget": 250000}
	rec := a.do(t, http.MethodPost, "/v1/projects", crew, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	pid := idOf(t, a.do(t, http.MethodPost, "/v1/projects", mgr, body))
	base := "/v1/projects/" + strconv.FormatUint(pid, 10)

	rec = a.do(t, http.MethodPost, "/v1/projects", mgr, map[string]any{"name": "Bad", "start_date": "2025-02-01", "end_date": "2025-01-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "end_date")

	idOf(t, a.do(t, http.MethodPost, base+"/milestones", mgr, map[string]any{"title": "Piling", "due_date": "2025-04-01"}))
	idOf(t, a.do(t, http.MethodPost, base+"/assignments", mgr, map[string]any{"role": "Foreman", "name": "J. Doe"}))

	rec = a.do(t, http.MethodGet, base, crew, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "Depot Extension", got["name"])
	assert.Equal(t, "USD", got["currency"])
	assert.Equal(t, "Planning", got["status"])
	assert.Len(t, got["milestones"], 1)
	assert.Len(t, got["assignments"], 1)

	rec = a.do(t, http.MethodGet, base+"/milestones/next", crew, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Piling", decode(t, rec)["title"])

	rec = a.do(t, http.MethodGet, "/v1/projects", crew, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, base, mgr, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, base, mgr, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodDelete, base, mgr, nil).Code)

	rec = a.do(t, http.MethodGet, "/v1/assignments", crew, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Unknown Project", items[0].(map[string]any)["project_name"])
}

func TestUploadThenAttachDocument(t *testing.T) {
	a := newApp(t)
	_, mgr := a.login(t, "mgr@site.test", "manager")
	pid := idOf(t, a.do(t, http.MethodPost, "/v1/projects", mgr, map[string]any{"name": "P", "start_date": "2025-01-01", "end_date": "2025-02-01"}))

	rec := a.do(t, http.MethodPost, "/v1/files/handles", mgr, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	handle := decode(t, rec)["upload_handle"].(string)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "drawing.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF-1.4\n%%EOF\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/files/uploads/"+handle, &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+mgr)
	up := httptest.NewRecorder()
	a.e.ServeHTTP(up, req)
	require.Equal(t, http.StatusCreated, up.Code, up.Body.String())
	ref := decode(t, up)["reference_id"].(string)

	docs := "/v1/projects/" + strconv.FormatUint(pid, 10) + "/documents"
	rec = a.do(t, http.MethodPost, docs, mgr, map[string]string{"category": "drawings", "reference_id": ref})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []any{ref}, decode(t, rec)["items"])

	rec = a.do(t, http.MethodPost, docs, mgr, map[string]string{"category": "drawings", "reference_id": "not-uploaded"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/files/"+ref, mgr, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
}

func TestMessagesAndReadReceipts(t *testing.T) {
	a := newApp(t)
	_, mgr := a.login(t, "mgr@site.test", "manager")
	crewID, crew := a.login(t, "crew@site.test", "staff")
	_, other := a.login(t, "other@site.test", "staff")

	id := idOf(t, a.do(t, http.MethodPost, "/v1/communications/notices", mgr, map[string]any{
		"to_user_ids": []uint64{crewID}, "title": "Hot works", "content": "Permit required", "priority": "Critical",
	}))
	path := "/v1/communications/" + strconv.FormatUint(id, 10)

	rec := a.do(t, http.MethodGet, "/v1/communications/unread-count", crew, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["unread"])

	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPost, path+"/read", other, nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodPost, path+"/read", crew, nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodPost, path+"/read", crew, nil).Code)

	rec = a.do(t, http.MethodGet, path, crew, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "high", got["priority"])
	assert.Equal(t, []any{float64(crewID)}, got["read_by"])

	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPost, "/v1/communications/broadcasts", crew, map[string]string{"content": "x"}).Code)
}

func TestStockDeductionOverHTTP(t *testing.T) {
	a := newApp(t)
	_, mgr := a.login(t, "mgr@site.test", "manager")

	id := idOf(t, a.do(t, http.MethodPost, "/v1/inventory/items", mgr, map[string]any{"name": "Cement", "quantity": 100, "location": "Yard"}))
	item := "/v1/inventory/items/" + strconv.FormatUint(id, 10)

	rec := a.do(t, http.MethodPost, item+"/deduct", mgr, map[string]any{"quantity": 30, "reason": "pour"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(70), decode(t, rec)["quantity"])

	rec = a.do(t, http.MethodPost, item+"/deduct", mgr, map[string]any{"quantity": 71})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/inventory/logs?type=deduction", mgr, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode(t, rec)["items"].([]any)
	require.Len(t, logs, 1)
	assert.Equal(t, float64(-30), logs[0].(map[string]any)["quantity_changed"])
}

func TestAttendanceScoping(t *testing.T) {
	a := newApp(t)
	_, mgr := a.login(t, "mgr@site.test", "manager")
	crewID, crew := a.login(t, "crew@site.test", "staff")
	otherID, _ := a.login(t, "other@site.test", "staff")

	rec := a.do(t, http.MethodPost, "/v1/attendance/punch-in", crew, map[string]string{"location": "Gate 1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusConflict, a.do(t, http.MethodPost, "/v1/attendance/punch-in", crew, nil).Code)

	rec = a.do(t, http.MethodGet, "/v1/attendance/summary?user_id="+strconv.FormatUint(otherID, 10), crew, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/attendance/summary?user_id="+strconv.FormatUint(crewID, 10), mgr, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), decode(t, rec)["total"])
}

func TestExportCSV(t *testing.T) {
	a := newApp(t)
	_, mgr := a.login(t, "mgr@site.test", "manager")
	_, crew := a.login(t, "crew@site.test", "staff")
	idOf(t, a.do(t, http.MethodPost, "/v1/equipment", mgr, map[string]any{"name": "Loader, 5t"}))

	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/v1/export/equipment", crew, nil).Code)

	rec := a.do(t, http.MethodGet, "/v1/export/equipment", mgr, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/csv"))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "equipment.csv")
	assert.Contains(t, rec.Body.String(), `"Loader, 5t"`)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/v1/export/salaries", mgr, nil).Code)
}
