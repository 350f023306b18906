package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/sevaportal/portal-api/internal/dto"
	"github.com/sevaportal/portal-api/internal/models"
	"github.com/sevaportal/portal-api/internal/service"
	"github.com/sevaportal/portal-api/pkg/response"
)

// AuthStateHeader lets a client that is still restoring its session ask for a verdict.
const AuthStateHeader = "X-Auth-State"

type accessService interface {
	Paths() service.AccessPaths
	Routes() []models.RoutePolicy
	Check(state models.AuthState, requestedPath string) models.AccessDecision
}

// AccessHandler exposes the route gate to the portal front-ends.
type AccessHandler struct {
	service   accessService
	validator *validator.Validate
}

// NewAccessHandler constructs an access handler.
func NewAccessHandler(svc accessService, validate *validator.Validate) *AccessHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AccessHandler{service: svc, validator: validate}
}

// Routes godoc
// @Summary Route table
// @Description Lists the client route policies and the login and unauthorized entry points
// @Tags Access
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /access/routes [get]
func (h *AccessHandler) Routes(c *gin.Context) {
	paths := h.service.Paths()
	response.JSON(c, http.StatusOK, dto.RouteTableResponse{
		LoginPath:        paths.Login,
		StudentLoginPath: paths.StudentLogin,
		UnauthorizedPath: paths.Unauthorized,
		Routes:           h.service.Routes(),
	}, nil)
}

// Check godoc
// @Summary Decide access to a client route
// @Description Returns pending, allow, or redirect for the caller. Anonymous callers are accepted.
// @Tags Access
// @Accept json
// @Produce json
// @Param X-Auth-State header string false "loading while the client restores its session"
// @Param payload body dto.AccessCheckRequest true "Requested path"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /access/check [post]
func (h *AccessHandler) Check(c *gin.Context) {
	var req dto.AccessCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid access payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, bindError(err, "path must start with /"))
		return
	}
	response.JSON(c, http.StatusOK, h.service.Check(authState(c), req.Path), nil)
}

func authState(c *gin.Context) models.AuthState {
	if strings.EqualFold(strings.TrimSpace(c.GetHeader(AuthStateHeader)), string(models.AuthLoading)) {
		return models.LoadingState()
	}
	if claims := claimsFromContext(c); claims != nil {
		return models.AuthenticatedState(claims.Info())
	}
	return models.AnonymousState()
}
