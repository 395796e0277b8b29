package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dutywatch/dutywatch/internal/dto"
	appErrors "github.com/dutywatch/dutywatch/pkg/errors"
	"github.com/dutywatch/dutywatch/pkg/response"
)

type scheduleService interface {
	Table(ctx context.Context, force bool) (*dto.ScheduleTable, error)
	Refresh(ctx context.Context) (*dto.RefreshResult, error)
	HideRow(ctx context.Context, rowKey string) error
	UnhideRow(ctx context.Context, rowKey string) error
}

// ScheduleHandler wires the schedule service to HTTP endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(service scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// Table godoc
// @Summary Built duty schedule table
// @Tags Schedule
// @Produce json
// @Param force query bool false "Bypass the output cache"
// @Success 200 {object} response.Envelope
// @Router /schedule/table [get]
func (h *ScheduleHandler) Table(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	force := c.Query("force") == "true" || c.Query("force") == "1"

	table, err := h.service.Table(c.Request.Context(), force)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, table)
}

// Refresh godoc
// @Summary Pull the calendar and rebuild the snapshot
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/refresh [post]
func (h *ScheduleHandler) Refresh(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	result, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Hide godoc
// @Summary Dismiss a row from the dashboard
// @Tags Schedule
// @Param key path string true "Row key"
// @Success 204
// @Router /rows/{key}/hide [post]
func (h *ScheduleHandler) Hide(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	if err := h.service.HideRow(c.Request.Context(), key); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unhide godoc
// @Summary Restore a dismissed row
// @Tags Schedule
// @Param key path string true "Row key"
// @Success 204
// @Router /rows/{key}/hide [delete]
func (h *ScheduleHandler) Unhide(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	if err := h.service.UnhideRow(c.Request.Context(), key); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
