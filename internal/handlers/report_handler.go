package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bptracker/internal/models"
	"bptracker/internal/service"
)

type ReportHandler struct {
	service  service.ReportService
	location *time.Location
	logger   *zap.Logger
}

func NewReportHandler(svc service.ReportService, location *time.Location, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		service:  svc,
		location: location,
		logger:   logger.With(zap.String("component", "report_handler")),
	}
}

// Report renders ?from&to as format=pdf (attachment, default) or html.
func (h *ReportHandler) Report(c *gin.Context) {
	dr, err := models.ParseDateRange(c.Query("from"), c.Query("to"), h.location)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out, err := h.service.Render(c.Request.Context(), dr, c.DefaultQuery("format", service.FormatPDF))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	disposition := "attachment"
	if out.ContentType != "application/pdf" {
		disposition = "inline"
	}
	send(c, out, disposition)
}

// Export downloads the readings as format=csv (default) or xlsx.
func (h *ReportHandler) Export(c *gin.Context) {
	dr, err := models.ParseDateRange(c.Query("from"), c.Query("to"), h.location)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out, err := h.service.Export(c.Request.Context(), dr, c.DefaultQuery("format", service.FormatCSV))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	send(c, out, "attachment")
}

func send(c *gin.Context, out *service.Rendered, disposition string) {
	cacheStatus := "MISS"
	if out.Cached {
		cacheStatus = "HIT"
	}
	c.Header("X-Cache", cacheStatus)
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, out.Filename))
	c.Data(http.StatusOK, out.ContentType, out.Data)
}
