package handler

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/fieldops/internal/middleware"
	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/service"
)

// ReportHandler serves the dashboard overview, CSV exports and the
// Prometheus scrape endpoint.
type ReportHandler struct {
	Svc     *service.Service
	Metrics *middleware.Metrics

	projects  *prometheus.GaugeVec
	equipment *prometheus.GaugeVec
	lowStock  prometheus.Gauge
	pending   *prometheus.GaugeVec
	openNCRs  prometheus.Gauge
}

// NewReportHandler registers the domain gauges on m's registry.  They are
// refreshed from the database on every scrape.
func NewReportHandler(svc *service.Service, m *middleware.Metrics) *ReportHandler {
	h := &ReportHandler{
		Svc:     svc,
		Metrics: m,
		projects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fieldops_projects",
			Help: "Projects by status.",
		}, []string{"status"}),
		equipment: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fieldops_equipment",
			Help: "Equipment by status.",
		}, []string{"status"}),
		lowStock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fieldops_low_stock_items",
			Help: "Inventory items at or below their minimum quantity.",
		}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fieldops_pending_requests",
			Help: "Pending requests by kind.",
		}, []string{"kind"}),
		openNCRs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fieldops_open_ncrs",
			Help: "Non-conformance reports not yet closed.",
		}),
	}
	m.Registry.MustRegister(h.projects, h.equipment, h.lowStock, h.pending, h.openNCRs)
	return h
}

func (h *ReportHandler) Dashboard(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ov, err := h.Svc.GetOverview(ctx)
	return one(c, ov, err)
}

// Export streams /export/:dataset as text/csv.
func (h *ReportHandler) Export(c echo.Context) error {
	dataset := c.Param("dataset")
	ctx, cancel := reqCtx(c)
	defer cancel()
	var buf bytes.Buffer
	if err := h.Svc.ExportCSV(ctx, dataset, &buf); err != nil {
		return fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+dataset+`.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Scrape refreshes the domain gauges and serves the registry.  A failed
// refresh still serves the request metrics.
func (h *ReportHandler) Scrape(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if ov, err := h.Svc.GetOverview(ctx); err != nil {
		c.Logger().Warnf("metrics: overview failed: %v", err)
	} else {
		h.observe(ov)
	}
	h.Metrics.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

func (h *ReportHandler) observe(ov service.Overview) {
	for _, st := range model.ProjectStatuses {
		h.projects.WithLabelValues(string(st)).Set(float64(ov.ProjectsByStatus[st]))
	}
	for _, st := range model.EquipmentStatuses {
		h.equipment.WithLabelValues(string(st)).Set(float64(ov.EquipmentByStatus[st]))
	}
	h.lowStock.Set(float64(len(ov.LowStockItems)))
	h.pending.WithLabelValues("inventory").Set(float64(ov.PendingInventoryRequests))
	h.pending.WithLabelValues("purchase").Set(float64(ov.PendingPurchaseRequests))
	h.openNCRs.Set(float64(ov.OpenNCRs))
}
