// Package router builds the Echo instance: global middleware, the error
// handler, and the API route groups.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dictatemed/dictatemed/internal/handler"
	"github.com/dictatemed/dictatemed/internal/middleware"
	"github.com/dictatemed/dictatemed/internal/server"
)

// New assembles the router. Middleware order matters: recovery and request
// IDs come first so every later stage, including the New Relic transaction
// and the request-scoped logger, sees them.
func New(s *server.Server, h *handler.Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	mw := middleware.NewMiddlewares(s)

	e.HTTPErrorHandler = mw.Global.GlobalErrorHandler

	e.Use(mw.Global.Recover())
	e.Use(middleware.RequestID())
	e.Use(mw.Tracing.NewRelicMiddleware())
	e.Use(mw.Tracing.EnhanceTracing())
	e.Use(mw.ContextEnhancer.EnhanceContext())
	e.Use(mw.Global.CORS())
	e.Use(mw.Global.Secure())
	e.Use(mw.Global.RequestLogger())

	registerSystemRoutes(e, h)
	registerAPIRoutes(e, h, mw)

	return e
}

// registerAPIRoutes wires the authenticated /api/v1 surface.
func registerAPIRoutes(e *echo.Echo, h *handler.Handlers, mw *middleware.Middlewares) {
	v1 := e.Group("/api/v1", mw.RateLimit.Limit(), mw.Auth.RequireAuth)

	letters := v1.Group("/letters")
	letters.POST("", handler.Handle(h.Letters.Create, http.StatusCreated))
	letters.GET("", handler.Handle(h.Letters.List, http.StatusOK))
	letters.GET("/:id", handler.Handle(h.Letters.Get, http.StatusOK))
	letters.PUT("/:id", handler.Handle(h.Letters.Update, http.StatusOK))
	letters.DELETE("/:id", handler.HandleNoContent(h.Letters.Delete, http.StatusNoContent))
	letters.POST("/:id/generate", handler.Handle(h.Letters.Generate, http.StatusOK))
	letters.GET("/:id/flags", handler.Handle(h.Letters.Flags, http.StatusOK))
	letters.POST("/:id/flags/:flag_id/resolve", handler.Handle(h.Letters.ResolveFlag, http.StatusOK))
	letters.POST("/:id/approve", handler.Handle(h.Letters.Approve, http.StatusOK))
	letters.GET("/:id/download", handler.HandleFile(h.Letters.Download, http.StatusOK))
	letters.GET("/:id/history", handler.Handle(h.Letters.History, http.StatusOK))

	recordings := v1.Group("/recordings")
	recordings.POST("", handler.Handle(h.Recordings.Create, http.StatusCreated))
	recordings.GET("", handler.Handle(h.Recordings.List, http.StatusOK))
	recordings.GET("/:id", handler.Handle(h.Recordings.Get, http.StatusOK))
	recordings.DELETE("/:id", handler.HandleNoContent(h.Recordings.Delete, http.StatusNoContent))
	recordings.POST("/:id/confirm", handler.Handle(h.Recordings.ConfirmUpload, http.StatusOK))
	recordings.PUT("/:id/transcript", handler.Handle(h.Recordings.SetTranscript, http.StatusOK))
	recordings.POST("/:id/attach", handler.Handle(h.Recordings.Attach, http.StatusOK))
	recordings.GET("/:id/download", handler.Handle(h.Recordings.DownloadURL, http.StatusOK))

	referrals := v1.Group("/referrals")
	referrals.POST("/batches", handler.Handle(h.Referrals.RegisterBatch, http.StatusCreated))
	referrals.GET("/batches/:batch_id", handler.Handle(h.Referrals.BatchStatus, http.StatusOK))
	referrals.POST("/batches/:batch_id/ingest", handler.Handle(h.Referrals.IngestBatch, http.StatusOK))
	referrals.GET("/documents/:id", handler.Handle(h.Referrals.GetDocument, http.StatusOK))
	referrals.POST("/documents/:id/cancel", handler.Handle(h.Referrals.CancelDocument, http.StatusOK))
	referrals.GET("/documents/:id/download", handler.Handle(h.Referrals.DownloadURL, http.StatusOK))
	referrals.DELETE("/documents/:id", handler.HandleNoContent(h.Referrals.DeleteDocument, http.StatusNoContent))

	style := v1.Group("/style")
	style.GET("/profiles", handler.Handle(h.Style.List, http.StatusOK))
	style.PUT("/profiles", handler.Handle(h.Style.Upsert, http.StatusOK))
	style.PUT("/profiles/:id/enabled", handler.Handle(h.Style.SetEnabled, http.StatusOK))
	style.GET("/preview", handler.Handle(h.Style.Preview, http.StatusOK))

	practices := v1.Group("/practices")
	practices.POST("", handler.Handle(h.Practices.Create, http.StatusCreated))
	practices.GET("", handler.Handle(h.Practices.Get, http.StatusOK))
	practices.PUT("", handler.Handle(h.Practices.Update, http.StatusOK))
	practices.GET("/members", handler.Handle(h.Practices.Members, http.StatusOK))
	practices.POST("/invite", handler.HandleNoContent(h.Practices.Invite, http.StatusAccepted))

	settings := v1.Group("/settings")
	settings.GET("/me", handler.Handle(h.Settings.Me, http.StatusOK))
	settings.PUT("/profile", handler.Handle(h.Settings.UpdateProfile, http.StatusOK))
	settings.PUT("/learning-strength", handler.Handle(h.Settings.UpdateLearningStrength, http.StatusOK))
	settings.PUT("", handler.Handle(h.Settings.UpdateSettings, http.StatusOK))
}
