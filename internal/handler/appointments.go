package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/anonimouzmkt/calendar-server/internal/models"
	"github.com/anonimouzmkt/calendar-server/internal/repository"
)

type AppointmentHandler struct {
	Store repository.Store
}

func (h *AppointmentHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/appointments")
	group.GET("", h.listAppointments)
	group.POST("", h.createAppointment)
}

// @Summary List appointments
// @Tags appointments
// @Param tenant_id query string false "tenant id"
// @Param calendar_id query string false "calendar id"
// @Param status query string false "scheduled|cancelled"
// @Param since query string false "RFC3339 lower bound on start time"
// @Param until query string false "RFC3339 upper bound on start time"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/appointments [get]
func (h *AppointmentHandler) listAppointments(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	var statusPtr *models.AppointmentStatus
	if raw := strQueryPtr(c, "status"); raw != nil {
		status := models.AppointmentStatus(*raw)
		statusPtr = &status
	}
	params := repository.ListAppointmentsParams{
		Limit:      intQuery(c, "limit", 100),
		Offset:     intQuery(c, "offset", 0),
		TenantID:   strQueryPtr(c, "tenant_id"),
		CalendarID: strQueryPtr(c, "calendar_id"),
		Status:     statusPtr,
		Since:      timeQueryPtr(c, "since"),
		Until:      timeQueryPtr(c, "until"),
	}
	items, err := h.Store.ListAppointments(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Store.CountAppointments(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

type createAppointmentRequest struct {
	TenantID    string    `json:"tenant_id" binding:"required"`
	CalendarID  string    `json:"calendar_id" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	AllDay      bool      `json:"all_day"`
	Attendees   []string  `json:"attendees"`
	OwnerID     string    `json:"owner_id"`
}

// @Summary Create a locally authored appointment
// @Tags appointments
// @Accept json
// @Param body body createAppointmentRequest true "appointment"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/v1/appointments [post]
func (h *AppointmentHandler) createAppointment(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if !req.EndTime.After(req.StartTime) {
		Error(c, http.StatusBadRequest, "end_time must be after start_time", nil)
		return
	}

	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" {
		owner = models.SystemOwnerID
	}
	var attendees datatypes.JSON
	if len(req.Attendees) > 0 {
		if raw, err := json.Marshal(req.Attendees); err == nil {
			attendees = datatypes.JSON(raw)
		}
	}

	// ExternalID stays nil: the next push phase creates the remote event.
	appt := &models.Appointment{
		ID:          uuid.NewString(),
		TenantID:    req.TenantID,
		CalendarID:  req.CalendarID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		AllDay:      req.AllDay,
		Attendees:   attendees,
		Status:      models.AppointmentStatusScheduled,
		OwnerID:     owner,
	}
	if err := h.Store.CreateAppointment(c.Request.Context(), appt); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, appt, nil)
}
