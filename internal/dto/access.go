package dto

import "github.com/sevaportal/portal-api/internal/models"

// AccessCheckRequest asks the gate for a verdict on a client route.
type AccessCheckRequest struct {
	Path string `json:"path" validate:"required,startswith=/"`
}

// RouteTableResponse lists the declarative route table with the configured entry points.
type RouteTableResponse struct {
	LoginPath        string               `json:"loginPath"`
	StudentLoginPath string               `json:"studentLoginPath"`
	UnauthorizedPath string               `json:"unauthorizedPath"`
	Routes           []models.RoutePolicy `json:"routes"`
}
