package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sevaportal/portal-api/internal/dto"
	"github.com/sevaportal/portal-api/internal/models"
	"github.com/sevaportal/portal-api/pkg/response"
)

type availabilityService interface {
	Set(ctx context.Context, actor models.UserInfo, req dto.SetAvailabilityRequest) (*models.Availability, error)
	Delete(ctx context.Context, actor models.UserInfo, id string) error
	ListMine(ctx context.Context, volunteerID string) ([]models.Availability, error)
}

// AvailabilityHandler lets volunteers declare the days and grades they can take.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler builds an availability handler.
func NewAvailabilityHandler(svc availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Set godoc
// @Summary Declare availability for a project day
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.SetAvailabilityRequest true "Availability"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /availability [put]
func (h *AvailabilityHandler) Set(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid availability payload"))
		return
	}
	if req.ProjectKey, err = projectFor(c, req.ProjectKey); err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.service.Set(c.Request.Context(), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Withdraw an availability declaration
// @Tags Availability
// @Param id path string true "Availability ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /availability/{id} [delete]
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Mine godoc
// @Summary My upcoming availability
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /availability/mine [get]
func (h *AvailabilityHandler) Mine(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.ListMine(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
