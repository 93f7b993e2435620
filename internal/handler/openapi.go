package handler

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dictatemed/dictatemed/internal/server"
)

// OpenAPIHandler serves the interactive API documentation.
type OpenAPIHandler struct {
	server *server.Server
}

func NewOpenAPIHandler(s *server.Server) *OpenAPIHandler {
	return &OpenAPIHandler{server: s}
}

// ServeOpenAPIUI serves the docs UI page. Caching is disabled so doc updates
// show up without a hard refresh.
func (h *OpenAPIHandler) ServeOpenAPIUI(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-cache")

	page, err := os.ReadFile("static/openapi.html")
	if err != nil {
		return errors.Wrap(err, "failed to read OpenAPI UI template")
	}
	return c.HTML(http.StatusOK, string(page))
}

// ServeOpenAPISpec serves the raw OpenAPI document the UI loads.
func (h *OpenAPIHandler) ServeOpenAPISpec(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-cache")

	spec, err := os.ReadFile("static/openapi.json")
	if err != nil {
		return errors.Wrap(err, "failed to read OpenAPI spec")
	}
	return c.JSONBlob(http.StatusOK, spec)
}
