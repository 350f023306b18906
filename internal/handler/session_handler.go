package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sevaportal/portal-api/internal/dto"
	"github.com/sevaportal/portal-api/internal/middleware"
	"github.com/sevaportal/portal-api/internal/models"
	"github.com/sevaportal/portal-api/pkg/response"
)

type sessionService interface {
	CheckIn(ctx context.Context, actor models.UserInfo, sessionID string) (*models.Session, error)
	CheckOut(ctx context.Context, actor models.UserInfo, sessionID string) (*models.Session, error)
	SubmitReport(ctx context.Context, actor models.UserInfo, sessionID string, req dto.SubmitReportRequest) (*models.Session, error)
	ListMine(ctx context.Context, volunteerID string, q dto.MySessionsQuery) ([]models.Session, error)
	Performance(ctx context.Context, actor models.UserInfo, volunteerID, projectKey string) (*dto.PerformanceResponse, error)
}

// SessionHandler exposes the volunteer's session lifecycle.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler builds a session handler.
func NewSessionHandler(svc sessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// CheckIn godoc
// @Summary Check in to a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/check-in [post]
func (h *SessionHandler) CheckIn(c *gin.Context) {
	h.step(c, h.service.CheckIn)
}

// CheckOut godoc
// @Summary Check out of a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/check-out [post]
func (h *SessionHandler) CheckOut(c *gin.Context) {
	h.step(c, h.service.CheckOut)
}

func (h *SessionHandler) step(c *gin.Context, apply func(context.Context, models.UserInfo, string) (*models.Session, error)) {
	user, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	session, err := apply(c.Request.Context(), user, c.Param("id"))
	writeSession(c, session, err)
}

// Report godoc
// @Summary Submit the session report
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SubmitReportRequest true "Report"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/report [post]
func (h *SessionHandler) Report(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid report payload"))
		return
	}
	session, err := h.service.SubmitReport(c.Request.Context(), user, c.Param("id"), req)
	writeSession(c, session, err)
}

// Mine godoc
// @Summary My sessions
// @Tags Sessions
// @Produce json
// @Param projectKey query string false "Project key"
// @Param date query string false "Exact date"
// @Param from query string false "From date"
// @Param to query string false "To date"
// @Success 200 {object} response.Envelope
// @Router /sessions/mine [get]
func (h *SessionHandler) Mine(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var q dto.MySessionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err, "invalid session query"))
		return
	}
	items, err := h.service.ListMine(c.Request.Context(), user.ID, q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// MyPerformance godoc
// @Summary My completed and upcoming sessions
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /volunteers/me/performance [get]
func (h *SessionHandler) MyPerformance(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.performance(c, user, user.ID)
}

// Performance godoc
// @Summary A volunteer's completed and upcoming sessions
// @Tags Sessions
// @Produce json
// @Param id path string true "Volunteer ID"
// @Param projectKey query string false "Limit to one project"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /volunteers/{id}/performance [get]
func (h *SessionHandler) Performance(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.performance(c, user, c.Param("id"))
}

func (h *SessionHandler) performance(c *gin.Context, actor models.UserInfo, volunteerID string) {
	projectKey := c.Query("projectKey")
	if projectKey == "" {
		projectKey = middleware.ProjectKey(c)
	}
	res, err := h.service.Performance(c.Request.Context(), actor, volunteerID, projectKey)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
