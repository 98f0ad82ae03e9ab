package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-reservation-api/internal/models"
	"github.com/noah-isme/classroom-reservation-api/internal/service"
	appErrors "github.com/noah-isme/classroom-reservation-api/pkg/errors"
	"github.com/noah-isme/classroom-reservation-api/pkg/response"
)

// ScheduleHandler wires reservation services to HTTP routes.
type ScheduleHandler struct {
	schedules *service.ScheduleService
	bulk      *service.BulkScheduleService
	search    *service.SearchService
}

// NewScheduleHandler constructs a new ScheduleHandler.
func NewScheduleHandler(schedules *service.ScheduleService, bulk *service.BulkScheduleService, search *service.SearchService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, bulk: bulk, search: search}
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Param room_id query string false "Filter by room"
// @Param requester_id query string false "Filter by requester"
// @Param status query string false "Comma separated statuses"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field (start_time,end_time,status,created_at)"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	filter := models.ScheduleFilter{
		RoomID:      strings.TrimSpace(c.Query("room_id")),
		RequesterID: strings.TrimSpace(c.Query("requester_id")),
		SortBy:      c.Query("sort"),
		SortOrder:   c.Query("order"),
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := models.ScheduleStatus(strings.ToUpper(strings.TrimSpace(part)))
			if status.Valid() {
				filter.Statuses = append(filter.Statuses, status)
			}
		}
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filter.To = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	schedules, pagination, err := h.schedules.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Get godoc
// @Summary Get schedule detail
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// CreateRequest godoc
// @Summary File a reservation request
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CreateScheduleRequest true "Reservation payload"
// @Success 201 {object} response.Envelope
// @Router /schedules/requests [post]
func (h *ScheduleHandler) CreateRequest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reservation payload"))
		return
	}
	schedule, err := h.schedules.CreateRequest(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// CreateApproved godoc
// @Summary Book a slot directly as approved
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CreateScheduleRequest true "Reservation payload"
// @Success 201 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) CreateApproved(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reservation payload"))
		return
	}
	schedule, err := h.schedules.CreateApproved(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Approve godoc
// @Summary Approve a pending schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.ApproveScheduleRequest true "Approval payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/approve [post]
func (h *ScheduleHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ApproveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}
	schedule, err := h.schedules.Approve(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Reject godoc
// @Summary Reject a pending schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.RejectScheduleRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/reject [post]
func (h *ScheduleHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RejectScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
		return
	}
	schedule, err := h.schedules.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Complete godoc
// @Summary Mark an approved schedule as completed
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/complete [post]
func (h *ScheduleHandler) Complete(c *gin.Context) {
	schedule, err := h.schedules.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Cancel godoc
// @Summary Cancel a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/cancel [post]
func (h *ScheduleHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	isAdmin := claims.Role == models.RoleAdmin
	schedule, err := h.schedules.Cancel(c.Request.Context(), c.Param("id"), claims.UserID, isAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// RequestOverride godoc
// @Summary Request a one-off override of a recurring template slot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Template schedule ID"
// @Param payload body service.OverrideScheduleRequest true "Override payload"
// @Success 201 {object} response.Envelope
// @Router /schedules/{id}/override [post]
func (h *ScheduleHandler) RequestOverride(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.OverrideScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}
	schedule, err := h.schedules.RequestOverride(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// PendingForSlot godoc
// @Summary List pending requests competing for one slot
// @Tags Schedules
// @Produce json
// @Param room_id query string true "Room ID"
// @Param start query string true "RFC3339 slot start"
// @Param end query string true "RFC3339 slot end"
// @Success 200 {object} response.Envelope
// @Router /schedules/pending [get]
func (h *ScheduleHandler) PendingForSlot(c *gin.Context) {
	roomID := strings.TrimSpace(c.Query("room_id"))
	start, startErr := time.Parse(time.RFC3339, c.Query("start"))
	end, endErr := time.Parse(time.RFC3339, c.Query("end"))
	if roomID == "" || startErr != nil || endErr != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "room_id, start and end are required"))
		return
	}

	schedules, err := h.schedules.ListPendingForSlot(c.Request.Context(), roomID, start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// BulkWeekdays godoc
// @Summary Generate recurring slots on selected weekdays
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.BulkWeekdayRequest true "Weekday recurrence payload"
// @Success 201 {object} response.Envelope
// @Router /schedules/bulk/weekdays [post]
func (h *ScheduleHandler) BulkWeekdays(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.BulkWeekdayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk payload"))
		return
	}
	schedules, err := h.bulk.GenerateWeekdays(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedules)
}

// BulkPattern godoc
// @Summary Generate recurring slots at a fixed frequency
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.BulkPatternRequest true "Pattern recurrence payload"
// @Success 201 {object} response.Envelope
// @Router /schedules/bulk/pattern [post]
func (h *ScheduleHandler) BulkPattern(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.BulkPatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk payload"))
		return
	}
	schedules, err := h.bulk.GeneratePattern(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedules)
}

// Search godoc
// @Summary Free-text schedule search
// @Tags Schedules
// @Produce json
// @Param q query string true "Query; may embed a date phrase such as 'Feb 17 6:30pm'"
// @Param limit query int false "Result limit"
// @Success 200 {object} response.Envelope
// @Router /schedules/search [get]
func (h *ScheduleHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	results, err := h.search.Search(c.Request.Context(), query, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}
