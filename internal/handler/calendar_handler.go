package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dutywatch/dutywatch/internal/dto"
	appErrors "github.com/dutywatch/dutywatch/pkg/errors"
	"github.com/dutywatch/dutywatch/pkg/response"
)

type calendarService interface {
	Upcoming(ctx context.Context, limit int) ([]dto.UpcomingEvent, error)
	Debug(ctx context.Context) (*dto.CalendarDebug, error)
}

// CalendarHandler exposes raw calendar views next to the built table.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(service calendarService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// Upcoming godoc
// @Summary Next raw calendar entries
// @Tags Calendar
// @Produce json
// @Param limit query int false "Maximum entries (default 20)"
// @Success 200 {object} response.Envelope
// @Router /calendar/upcoming [get]
func (h *CalendarHandler) Upcoming(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	events, err := h.service.Upcoming(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, map[string]interface{}{"count": len(events)})
}

// Debug godoc
// @Summary CalDAV discovery diagnostics
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/debug [get]
func (h *CalendarHandler) Debug(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	debug, err := h.service.Debug(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, debug)
}
