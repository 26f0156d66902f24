package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/calendar/v3"

	"github.com/noah-isme/shift-bots/internal/dto"
	"github.com/noah-isme/shift-bots/pkg/response"
)

const (
	calendarBotRunning = "Calendar Bot is running."
	noEventsToday      = "No events found for today."
	closedShiftsFound  = "Business logic executed for closed shifts."
	allShiftsOpen      = "All shift events are open."
)

type calendarShiftService interface {
	TodayEvents(ctx context.Context) ([]*calendar.Event, error)
	CheckShifts(ctx context.Context) ([]*calendar.Event, error)
}

// CalendarHandler exposes the calendar-bot endpoints.
type CalendarHandler struct {
	service calendarShiftService
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(service calendarShiftService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// Register mounts the calendar-bot routes.
func (h *CalendarHandler) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/events", h.Events)
	r.GET("/check_shifts", h.CheckShifts)
}

// Root is the health check.
func (h *CalendarHandler) Root(c *gin.Context) {
	response.OK(c, dto.StatusResponse{Message: calendarBotRunning})
}

// Events lists today's events.
func (h *CalendarHandler) Events(c *gin.Context) {
	events, err := h.service.TodayEvents(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(events) == 0 {
		response.Message(c, http.StatusOK, noEventsToday)
		return
	}
	response.OK(c, dto.EventsResponse{Events: events})
}

// CheckShifts runs the closed shift check.
func (h *CalendarHandler) CheckShifts(c *gin.Context) {
	closed, err := h.service.CheckShifts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(closed) == 0 {
		response.Message(c, http.StatusOK, allShiftsOpen)
		return
	}
	response.OK(c, dto.CheckShiftsResponse{Message: closedShiftsFound, ClosedShifts: closed})
}
