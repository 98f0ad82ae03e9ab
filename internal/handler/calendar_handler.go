package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-reservation-api/internal/models"
	"github.com/noah-isme/classroom-reservation-api/internal/service"
	appErrors "github.com/noah-isme/classroom-reservation-api/pkg/errors"
	"github.com/noah-isme/classroom-reservation-api/pkg/response"
)

// CalendarHandler serves the calendar feed and tabular exports.
type CalendarHandler struct {
	calendar *service.CalendarService
}

// NewCalendarHandler constructs a new CalendarHandler.
func NewCalendarHandler(calendar *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// Events godoc
// @Summary Calendar feed of approved schedules
// @Tags Calendar
// @Produce json
// @Param room_id query string false "Filter by room"
// @Success 200 {object} response.Envelope
// @Router /schedules/calendar [get]
func (h *CalendarHandler) Events(c *gin.Context) {
	viewerID := ""
	if claims := claimsFromContext(c); claims != nil {
		viewerID = claims.UserID
	}

	events, err := h.calendar.Events(c.Request.Context(), strings.TrimSpace(c.Query("room_id")), viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Export godoc
// @Summary Export schedules as CSV or PDF
// @Tags Calendar
// @Produce octet-stream
// @Param format query string false "csv or pdf (default csv)"
// @Param room_id query string false "Filter by room"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Success 200 {file} binary
// @Router /schedules/export [get]
func (h *CalendarHandler) Export(c *gin.Context) {
	filter := models.ScheduleFilter{RoomID: strings.TrimSpace(c.Query("room_id"))}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filter.To = &to
	}

	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	artifact, err := h.calendar.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	if artifact.DownloadToken != "" {
		c.Header("X-Download-Token", artifact.DownloadToken)
		c.Header("X-Download-Expires", artifact.ExpiresAt.UTC().Format(time.RFC3339))
	}
	c.Header("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}

// Download godoc
// @Summary Fetch a previously generated export via its signed link
// @Tags Calendar
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /schedules/export/download [get]
func (h *CalendarHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "download token is required"))
		return
	}

	file, filename, err := h.calendar.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export artifact"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentTypeFor(filename), payload)
}

func contentTypeFor(filename string) string {
	if strings.HasSuffix(filename, ".pdf") {
		return "application/pdf"
	}
	return "text/csv"
}
