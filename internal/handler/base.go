package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/dictatemed/dictatemed/internal/errs"
	"github.com/dictatemed/dictatemed/internal/middleware"
	"github.com/dictatemed/dictatemed/internal/server"
	"github.com/dictatemed/dictatemed/internal/validation"
)

// userResolver resolves an authenticated Clerk ID to the local user row.
type userResolver interface {
	EnsureUser(ctx context.Context, clerkID string) (*domain.User, error)
}

// Handler is embedded by the concrete handlers so they share the server
// container and the authenticated-user lookup.
type Handler struct {
	server *server.Server
	auth   userResolver
}

func NewHandler(s *server.Server, auth userResolver) Handler {
	return Handler{server: s, auth: auth}
}

// currentUser returns the clinician behind the request. RequireAuth has
// already verified the session; this maps the Clerk ID to the local row,
// creating it on first contact.
func (h Handler) currentUser(c echo.Context) (*domain.User, error) {
	clerkID := middleware.GetUserID(c)
	if clerkID == "" {
		return nil, errs.NewUnauthorizedError("Unauthorized", false)
	}
	return h.auth.EnsureUser(c.Request().Context(), clerkID)
}

// HandlerFunc is a typed endpoint: it receives the bound, validated request
// payload and returns the response value or an error.
type HandlerFunc[Req validation.Validatable, Res any] func(c echo.Context, req Req) (Res, error)

// HandlerFuncNoContent is a typed endpoint for routes with no response body.
type HandlerFuncNoContent[Req validation.Validatable] func(c echo.Context, req Req) error

// bindable constrains request types to pointers so Echo's Bind can populate
// them; a fresh value is allocated per request.
type bindable[T any] interface {
	*T
	validation.Validatable
}

// File is the result type for download endpoints. Name and ContentType are
// decided per request so downloads can carry patient-specific filenames.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ResponseHandler writes a successful handler result to the HTTP response
// and attaches response-type specific tracing attributes.
type ResponseHandler interface {
	Handle(c echo.Context, result interface{}) error

	// GetOperation names the handler type (json/no_content/file) in logs.
	GetOperation() string

	// AddAttributes attaches New Relic attributes beyond what the tracing
	// middleware already sets.
	AddAttributes(txn *newrelic.Transaction, result interface{})
}

// JSONResponseHandler writes JSON responses with a fixed status code.
type JSONResponseHandler struct {
	status int
}

func (h JSONResponseHandler) Handle(c echo.Context, result interface{}) error {
	return c.JSON(h.status, result)
}

func (h JSONResponseHandler) GetOperation() string {
	return "handler"
}

func (h JSONResponseHandler) AddAttributes(txn *newrelic.Transaction, result interface{}) {
	// http.status_code is already set by the tracing middleware.
}

// NoContentResponseHandler writes responses with no body.
type NoContentResponseHandler struct {
	status int
}

func (h NoContentResponseHandler) Handle(c echo.Context, result interface{}) error {
	return c.NoContent(h.status)
}

func (h NoContentResponseHandler) GetOperation() string {
	return "handler_no_content"
}

func (h NoContentResponseHandler) AddAttributes(txn *newrelic.Transaction, result interface{}) {
}

// FileResponseHandler writes a *File result as a forced download.
type FileResponseHandler struct {
	status int
}

func (h FileResponseHandler) Handle(c echo.Context, result interface{}) error {
	// The HandleFile contract: the endpoint must return *File.
	file := result.(*File)

	c.Response().Header().Set("Content-Disposition", "attachment; filename="+file.Name)
	return c.Blob(h.status, file.ContentType, file.Data)
}

func (h FileResponseHandler) GetOperation() string {
	return "handler_file"
}

func (h FileResponseHandler) AddAttributes(txn *newrelic.Transaction, result interface{}) {
	if txn == nil {
		return
	}
	if file, ok := result.(*File); ok {
		txn.AddAttribute("file.name", file.Name)
		txn.AddAttribute("file.content_type", file.ContentType)
		txn.AddAttribute("file.size_bytes", len(file.Data))
	}
}

// handleRequest is the shared execution pipeline for every endpoint. It
// centralizes binding + validation, request-scoped structured logging,
// New Relic attributes and error reporting, timing, and response writing.
func handleRequest[Req validation.Validatable](
	c echo.Context,
	req Req,
	handler func(c echo.Context, req Req) (interface{}, error),
	responseHandler ResponseHandler,
) error {
	start := time.Now()
	route := c.Path()

	// Transaction is set by the nrecho middleware when New Relic is enabled.
	txn := newrelic.FromContext(c.Request().Context())
	if txn != nil {
		txn.AddAttribute("handler.name", route)
	}

	// The context-enhanced logger already carries request_id, user_id, and
	// trace correlation fields.
	logger := middleware.GetLogger(c).With().
		Str("operation", responseHandler.GetOperation()).
		Str("method", c.Request().Method).
		Str("route", route).
		Logger()

	validationStart := time.Now()
	if err := validation.BindAndValidate(c, req); err != nil {
		logger.Warn().
			Err(err).
			Dur("validation_duration", time.Since(validationStart)).
			Msg("request validation failed")

		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
			txn.AddAttribute("validation.status", "failed")
		}

		// The global error handler formats the response.
		return err
	}
	validationDuration := time.Since(validationStart)

	handlerStart := time.Now()
	result, err := handler(c, req)
	handlerDuration := time.Since(handlerStart)

	if err != nil {
		logger.Error().
			Err(err).
			Dur("handler_duration", handlerDuration).
			Msg("handler execution failed")

		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
			txn.AddAttribute("handler.status", "error")
		}
		return err
	}

	if txn != nil {
		txn.AddAttribute("handler.status", "success")
		txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
		responseHandler.AddAttributes(txn, result)
	}

	logger.Info().
		Dur("handler_duration", handlerDuration).
		Dur("validation_duration", validationDuration).
		Dur("total_duration", time.Since(start)).
		Msg("request completed")

	return responseHandler.Handle(c, result)
}

// Handle wraps a typed endpoint into an echo.HandlerFunc. A fresh request
// payload is allocated per request before binding.
//
//	letters.POST("", handler.Handle(h.Letters.Create, http.StatusCreated))
func Handle[Req any, PReq bindable[Req], Res any](
	handler HandlerFunc[PReq, Res],
	status int,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := PReq(new(Req))
		return handleRequest(c, req, func(c echo.Context, req PReq) (interface{}, error) {
			return handler(c, req)
		}, JSONResponseHandler{status: status})
	}
}

// HandleNoContent wraps an endpoint that returns no body.
func HandleNoContent[Req any, PReq bindable[Req]](
	handler HandlerFuncNoContent[PReq],
	status int,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := PReq(new(Req))
		return handleRequest(c, req, func(c echo.Context, req PReq) (interface{}, error) {
			return nil, handler(c, req)
		}, NoContentResponseHandler{status: status})
	}
}

// HandleFile wraps an endpoint that returns a downloadable file.
func HandleFile[Req any, PReq bindable[Req]](
	handler HandlerFunc[PReq, *File],
	status int,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := PReq(new(Req))
		return handleRequest(c, req, func(c echo.Context, req PReq) (interface{}, error) {
			return handler(c, req)
		}, FileResponseHandler{status: status})
	}
}
