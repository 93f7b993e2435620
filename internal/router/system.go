package router

import (
	"github.com/labstack/echo/v4"

	"github.com/dictatemed/dictatemed/internal/handler"
)

// registerSystemRoutes wires the endpoints outside the business API:
// health, docs, and static assets.
func registerSystemRoutes(e *echo.Echo, h *handler.Handlers) {
	e.GET("/status", h.Health.CheckHealth)

	e.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
	e.GET("/docs/openapi.json", h.OpenAPI.ServeOpenAPISpec)

	// Docs assets (openapi.html, openapi.json).
	e.Static("/static", "static")
}
