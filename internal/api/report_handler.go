package api

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"goamr/adapters/excel"
	"goamr/adapters/payload"
	"goamr/app"
	"goamr/domain/core"
	"goamr/domain/metrics"
	"goamr/internal"
	"goamr/internal/errors"
	"goamr/internal/render"

	"github.com/gin-gonic/gin"
)

// maxPayloadBytes bounds submitted metrics documents
const maxPayloadBytes = 8 << 20

// ReportResponse is a report plus its target ranking, since JSON objects
// carry no order.
type ReportResponse struct {
	*metrics.Report
	SortKey metrics.SortKey `json:"sort_key"`
	Ranking []string        `json:"ranking"`
}

// ReportHandler serves the report JSON API
type ReportHandler struct {
	service *app.ReportService
	logger  *internal.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(service *app.ReportService, logger *internal.Logger) *ReportHandler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ReportHandler{service: service, logger: logger.With("api")}
}

// RegisterRoutes mounts the handler on a router
func (h *ReportHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", h.Health)

	reports := r.Group("/api/reports")
	reports.POST("", h.CreateReport)
	reports.GET("", h.ListReports)
	reports.GET("/live", h.LiveReport)
	reports.GET("/:id", h.GetReport)
	reports.GET("/:id/export", h.ExportReport)
	reports.GET("/:id/targets/*target", h.GetTarget)
}

// Health reports liveness and wiring
func (h *ReportHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"source":  h.service.SourceName(),
		"history": h.service.HistoryEnabled(),
	})
}

// CreateReport enriches a submitted metrics collection
func (h *ReportHandler) CreateReport(c *gin.Context) {
	key, ok := sortKey(c)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
				"code":  errors.CodeInvalidInput,
			})
			return
		}
		h.writeError(c, core.NewMalformedInputError(err.Error()))
		return
	}

	raw, err := payload.NewDecoder(c.Query("data_path")).Decode(body)
	if err != nil {
		h.writeError(c, err)
		return
	}

	report, err := h.service.Build(c.Request.Context(), "api", raw)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, respond(report, key))
}

// LiveReport builds a report from the configured source
func (h *ReportHandler) LiveReport(c *gin.Context) {
	key, ok := sortKey(c)
	if !ok {
		return
	}

	report, err := h.service.Generate(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, respond(report, key))
}

// ListReports returns stored report history
func (h *ReportHandler) ListReports(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer", "code": errors.CodeInvalidInput})
			return
		}
		limit = v
	}

	listings, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": listings, "history": h.service.HistoryEnabled()})
}

// GetReport returns a stored report
func (h *ReportHandler) GetReport(c *gin.Context) {
	key, ok := sortKey(c)
	if !ok {
		return
	}
	report, ok := h.loadReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, respond(report, key))
}

// GetTarget returns one target of a stored report. Target ids may contain
// slashes (trimethoprim/sulfamethoxazole), hence the catch-all parameter.
func (h *ReportHandler) GetTarget(c *gin.Context) {
	report, ok := h.loadReport(c)
	if !ok {
		return
	}

	targetID, err := core.ParseTargetID(strings.TrimPrefix(c.Param("target"), "/"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": errors.CodeInvalidInput})
		return
	}

	if rec, found := report.Target(targetID.String()); found {
		c.JSON(http.StatusOK, rec)
		return
	}
	if rec, found := report.UntrainedTarget(targetID.String()); found {
		c.JSON(http.StatusOK, rec)
		return
	}
	h.writeError(c, fmt.Errorf("%w: %s in report %s", core.ErrTargetNotFound, targetID, report.ID))
}

// ExportReport renders a stored report as markdown, HTML or xlsx
func (h *ReportHandler) ExportReport(c *gin.Context) {
	key, ok := sortKey(c)
	if !ok {
		return
	}
	report, ok := h.loadReport(c)
	if !ok {
		return
	}

	switch format := c.DefaultQuery("format", "md"); format {
	case "md":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", render.Markdown(report, render.Options{SortKey: key}))
	case "html":
		c.Data(http.StatusOK, "text/html; charset=utf-8", render.HTML(render.Markdown(report, render.Options{SortKey: key})))
	case "xlsx":
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.xlsx"`, report.ID))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Status(http.StatusOK)
		if err := excel.NewReportWriter(key).WriteTo(report, c.Writer); err != nil {
			h.logger.Error("xlsx export of %s failed: %v", report.ID, err)
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown format %q", format), "code": errors.CodeInvalidInput})
	}
}

func (h *ReportHandler) loadReport(c *gin.Context) (*metrics.Report, bool) {
	id, err := core.ParseReportID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": errors.CodeInvalidInput})
		return nil, false
	}

	report, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	return report, true
}

func (h *ReportHandler) writeError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		h.logger.Debug("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.CodeOf(err)})
}

func sortKey(c *gin.Context) (metrics.SortKey, bool) {
	key, err := metrics.ParseSortKey(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": errors.CodeInvalidInput})
		return "", false
	}
	return key, true
}

func respond(report *metrics.Report, key metrics.SortKey) ReportResponse {
	ranked := report.Ranked(key)
	ranking := make([]string, len(ranked))
	for i, rec := range ranked {
		ranking[i] = rec.TargetID
	}
	return ReportResponse{Report: report, SortKey: key, Ranking: ranking}
}
