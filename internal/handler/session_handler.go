package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/weeklyworks-api/internal/models"
	"github.com/noah-isme/weeklyworks-api/internal/service"
	appErrors "github.com/noah-isme/weeklyworks-api/pkg/errors"
	"github.com/noah-isme/weeklyworks-api/pkg/response"
)

const calendarContentType = "text/calendar; charset=utf-8"

type sessionService interface {
	FetchAll(ctx context.Context) ([]models.TrainingSession, error)
	Get(ctx context.Context, id string) (*models.TrainingSession, error)
	Add(ctx context.Context, req service.SessionRequest) (*models.TrainingSession, error)
	Update(ctx context.Context, id string, req service.SessionRequest) (*models.TrainingSession, error)
	UpdateStatus(ctx context.Context, id string, req service.SessionStatusRequest) (*models.TrainingSession, error)
	Delete(ctx context.Context, id string) error
	ResetWeek(ctx context.Context) (service.ResetResult, error)
	Message(ctx context.Context, id string) (*service.SessionMessage, error)
}

type calendarService interface {
	ExportEvent(ctx context.Context, id string, opts service.ExportOptions) ([]byte, error)
	ExportAllEvents(ctx context.Context, opts service.ExportOptions) ([]byte, error)
}

// SessionHandler exposes the weekly schedule.
type SessionHandler struct {
	sessions sessionService
	calendar calendarService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions sessionService, calendar calendarService) *SessionHandler {
	return &SessionHandler{sessions: sessions, calendar: calendar}
}

// List godoc
// @Summary List sessions in weekly order
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessions.FetchAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	booked := 0
	for _, s := range sessions {
		if s.IsBooked {
			booked++
		}
	}
	response.JSON(c, http.StatusOK, sessions, map[string]interface{}{"total": len(sessions), "booked": booked})
}

// Get godoc
// @Summary Get session detail
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// Create godoc
// @Summary Add session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.SessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req service.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	session, err := h.sessions.Add(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Update godoc
// @Summary Update session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.SessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *SessionHandler) Update(c *gin.Context) {
	var req service.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	session, err := h.sessions.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// UpdateStatus godoc
// @Summary Toggle messaged/booked flags
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.SessionStatusRequest true "Flags to change"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/status [patch]
func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	var req service.SessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	session, err := h.sessions.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// Delete godoc
// @Summary Delete session
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ResetWeek godoc
// @Summary Clear messaged and booked flags on every session
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/reset-week [post]
func (h *SessionHandler) ResetWeek(c *gin.Context) {
	result, err := h.sessions.ResetWeek(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Message godoc
// @Summary Compose the confirmation message and contact link
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sessions/{id}/message [get]
func (h *SessionHandler) Message(c *gin.Context) {
	msg, err := h.sessions.Message(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msg)
}

// Calendar godoc
// @Summary Export one session as iCalendar
// @Tags Sessions
// @Produce text/calendar
// @Param id path string true "Session ID"
// @Param reminder query int false "Alarm minutes before start"
// @Success 200 {string} string "calendar document"
// @Router /sessions/{id}/calendar.ics [get]
func (h *SessionHandler) Calendar(c *gin.Context) {
	opts, ok := exportOptions(c)
	if !ok {
		return
	}
	payload, err := h.calendar.ExportEvent(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, calendarContentType, "session-"+c.Param("id")+".ics", payload)
}

// CalendarAll godoc
// @Summary Export the whole week as iCalendar
// @Tags Sessions
// @Produce text/calendar
// @Param reminder query int false "Alarm minutes before start"
// @Success 200 {string} string "calendar document"
// @Router /sessions/calendar.ics [get]
func (h *SessionHandler) CalendarAll(c *gin.Context) {
	opts, ok := exportOptions(c)
	if !ok {
		return
	}
	payload, err := h.calendar.ExportAllEvents(c.Request.Context(), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, calendarContentType, "weeklyworks.ics", payload)
}

func exportOptions(c *gin.Context) (service.ExportOptions, bool) {
	var opts service.ExportOptions
	raw := c.Query("reminder")
	if raw == "" {
		return opts, true
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes < 0 || minutes > 24*60 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "reminder must be between 0 and 1440 minutes"))
		return opts, false
	}
	opts.Reminder = time.Duration(minutes) * time.Minute
	return opts, true
}
