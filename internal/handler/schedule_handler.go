package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sevaportal/portal-api/internal/dto"
	"github.com/sevaportal/portal-api/internal/middleware"
	"github.com/sevaportal/portal-api/internal/models"
	"github.com/sevaportal/portal-api/internal/service"
	appErrors "github.com/sevaportal/portal-api/pkg/errors"
	"github.com/sevaportal/portal-api/pkg/response"
)

type scheduleService interface {
	EarliestDate() string
	GetSchedule(ctx context.Context, q dto.ScheduleQuery) (*dto.ScheduleResponse, error)
	ListAvailability(ctx context.Context, q dto.ScheduleQuery) ([]models.Availability, error)
	CreateSchedule(ctx context.Context, req dto.CreateScheduleRequest) (*dto.CreateScheduleResponse, error)
	AddStudent(ctx context.Context, actor models.UserInfo, sessionID string, req dto.MembershipRequest) (*models.Session, error)
	RemoveStudent(ctx context.Context, actor models.UserInfo, sessionID string, req dto.MembershipRequest) (*models.Session, error)
	ReplaceStudents(ctx context.Context, actor models.UserInfo, sessionID string, req dto.ReplaceStudentsRequest) (*models.Session, error)
}

type rosterExporter interface {
	Roster(ctx context.Context, q dto.ExportQuery) (*service.ExportFile, error)
}

// ScheduleHandler exposes the schedule editor endpoints.
type ScheduleHandler struct {
	service scheduleService
	export  rosterExporter
}

// NewScheduleHandler builds a schedule handler.
func NewScheduleHandler(svc scheduleService, export rosterExporter) *ScheduleHandler {
	return &ScheduleHandler{service: svc, export: export}
}

// Get godoc
// @Summary Schedule for a project day
// @Description Sessions of the day plus the students no session holds
// @Tags Schedule
// @Produce json
// @Param projectKey query string false "Project key (defaults to the request's project)"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedule [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	q, err := h.bindQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	day, err := h.service.GetSchedule(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, day.Cached)
	meta := middleware.ResponseMeta(c)
	meta["earliestDate"] = h.service.EarliestDate()
	response.JSON(c, http.StatusOK, day, meta)
}

// Availability godoc
// @Summary Availability declared for a project day
// @Tags Schedule
// @Produce json
// @Param projectKey query string false "Project key"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schedule/availability [get]
func (h *ScheduleHandler) Availability(c *gin.Context) {
	q, err := h.bindQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.ListAvailability(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

func (h *ScheduleHandler) bindQuery(c *gin.Context) (dto.ScheduleQuery, error) {
	var q dto.ScheduleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return q, bindError(err, "invalid schedule query")
	}
	key, err := projectFor(c, q.ProjectKey)
	if err != nil {
		return q, err
	}
	q.ProjectKey = key
	return q, nil
}

// Create godoc
// @Summary Create the schedule for a future date
// @Description Assigns unassigned students to available volunteers. Not idempotent: each confirmed run adds a new set of sessions.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.CreateScheduleRequest true "Schedule request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /schedule [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid schedule payload"))
		return
	}
	key, err := projectFor(c, req.ProjectKey)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.ProjectKey = key

	res, err := h.service.CreateSchedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, res, nil)
}

// AddStudent godoc
// @Summary Add a student to a session
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.MembershipRequest true "Student and expected version"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/students [post]
func (h *ScheduleHandler) AddStudent(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.MembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid membership payload"))
		return
	}
	session, err := h.service.AddStudent(c.Request.Context(), user, c.Param("id"), req)
	writeSession(c, session, err)
}

// RemoveStudent godoc
// @Summary Remove a student from a session
// @Tags Schedule
// @Produce json
// @Param id path string true "Session ID"
// @Param studentId path string true "Student ID"
// @Param version query int false "Expected session version (or If-Match)"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/students/{studentId} [delete]
func (h *ScheduleHandler) RemoveStudent(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	version, err := expectedVersion(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req := dto.MembershipRequest{StudentID: c.Param("studentId"), Version: version}
	session, err := h.service.RemoveStudent(c.Request.Context(), user, c.Param("id"), req)
	writeSession(c, session, err)
}

// ReplaceStudents godoc
// @Summary Replace the students of a session
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.ReplaceStudentsRequest true "Full student list and expected version"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/students [put]
func (h *ScheduleHandler) ReplaceStudents(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReplaceStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid membership payload"))
		return
	}
	session, err := h.service.ReplaceStudents(c.Request.Context(), user, c.Param("id"), req)
	writeSession(c, session, err)
}

// Export godoc
// @Summary Download the roster of a project day
// @Tags Schedule
// @Produce text/csv
// @Produce application/pdf
// @Param projectKey query string false "Project key"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /schedule/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err, "invalid export query"))
		return
	}
	key, err := projectFor(c, q.ProjectKey)
	if err != nil {
		response.Error(c, err)
		return
	}
	q.ProjectKey = key

	file, err := h.export.Roster(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// expectedVersion reads the caller's session version from ?version= or an If-Match header.
func expectedVersion(c *gin.Context) (int, error) {
	raw := c.Query("version")
	if raw == "" {
		raw = strings.Trim(strings.TrimPrefix(c.GetHeader("If-Match"), "W/"), `"`)
	}
	version, err := strconv.Atoi(raw)
	if err != nil || version < 1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "expected session version is required")
	}
	return version, nil
}

// writeSession responds with the session and its version as ETag.
func writeSession(c *gin.Context, session *models.Session, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("ETag", strconv.Quote(strconv.Itoa(session.Version)))
	response.JSON(c, http.StatusOK, session, nil)
}
