package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dutywatch/dutywatch/internal/dto"
	appErrors "github.com/dutywatch/dutywatch/pkg/errors"
	"github.com/dutywatch/dutywatch/pkg/response"
)

type exportService interface {
	ScheduleCSV(table *dto.ScheduleTable) ([]byte, string, error)
	SchedulePDF(table *dto.ScheduleTable) ([]byte, string, error)
}

type tableProvider interface {
	Table(ctx context.Context, force bool) (*dto.ScheduleTable, error)
}

// ExportHandler serves the schedule table as downloadable files.
type ExportHandler struct {
	exports  exportService
	schedule tableProvider
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exportService, schedule tableProvider) *ExportHandler {
	return &ExportHandler{exports: exports, schedule: schedule}
}

// Schedule godoc
// @Summary Export the schedule table
// @Tags Export
// @Produce octet-stream
// @Param format query string false "csv or pdf (default csv)"
// @Router /export/schedule [get]
func (h *ExportHandler) Schedule(c *gin.Context) {
	if h.exports == nil || h.schedule == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}

	table, err := h.schedule.Table(c.Request.Context(), false)
	if err != nil {
		response.Error(c, err)
		return
	}

	format := c.DefaultQuery("format", "csv")
	var (
		payload     []byte
		filename    string
		contentType string
	)
	switch format {
	case "csv":
		payload, filename, err = h.exports.ScheduleCSV(table)
		contentType = "text/csv"
	case "pdf":
		payload, filename, err = h.exports.SchedulePDF(table)
		contentType = "application/pdf"
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
