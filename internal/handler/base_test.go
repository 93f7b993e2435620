package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dictatemed/dictatemed/internal/errs"
	"github.com/dictatemed/dictatemed/internal/validation"
)

type greetRequest struct {
	Name string `json:"name" validate:"required"`
	Note string `json:"note"`
}

func (r *greetRequest) Validate() error {
	return validation.Struct(r)
}

type greetResponse struct {
	Greeting string `json:"greeting"`
}

func invoke(t *testing.T, fn echo.HandlerFunc, method, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return rec, fn(e.NewContext(req, rec))
}

func TestHandleWritesJSONOnSuccess(t *testing.T) {
	fn := Handle(func(c echo.Context, req *greetRequest) (*greetResponse, error) {
		return &greetResponse{Greeting: "hello " + req.Name}, nil
	}, http.StatusCreated)

	rec, err := invoke(t, fn, http.MethodPost, `{"name":"ada"}`)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello ada")
}

func TestHandleRejectsInvalidPayload(t *testing.T) {
	called := false
	fn := Handle(func(c echo.Context, req *greetRequest) (*greetResponse, error) {
		called = true
		return nil, nil
	}, http.StatusOK)

	_, err := invoke(t, fn, http.MethodPost, `{}`)
	require.Error(t, err)
	assert.False(t, called, "endpoint must not run on invalid input")

	httpErr, ok := err.(*errs.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	require.NotEmpty(t, httpErr.Errors)
	assert.Equal(t, "name", httpErr.Errors[0].Field)
}

func TestHandleAllocatesFreshRequestPerCall(t *testing.T) {
	var lastNote string
	fn := Handle(func(c echo.Context, req *greetRequest) (*greetResponse, error) {
		lastNote = req.Note
		return &greetResponse{}, nil
	}, http.StatusOK)

	_, err := invoke(t, fn, http.MethodPost, `{"name":"ada","note":"first"}`)
	require.NoError(t, err)
	require.Equal(t, "first", lastNote)

	// A payload without the field must not inherit the previous request's value.
	_, err = invoke(t, fn, http.MethodPost, `{"name":"bob"}`)
	require.NoError(t, err)
	assert.Empty(t, lastNote)
}

func TestHandlePropagatesEndpointError(t *testing.T) {
	want := errs.NewNotFoundError("Letter not found", true, nil)
	fn := Handle(func(c echo.Context, req *greetRequest) (*greetResponse, error) {
		return nil, want
	}, http.StatusOK)

	_, err := invoke(t, fn, http.MethodPost, `{"name":"ada"}`)
	require.Error(t, err)
	assert.Equal(t, want, err)
}

func TestHandleNoContent(t *testing.T) {
	fn := HandleNoContent(func(c echo.Context, req *greetRequest) error {
		return nil
	}, http.StatusNoContent)

	rec, err := invoke(t, fn, http.MethodDelete, `{"name":"ada"}`)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandleFileSetsDisposition(t *testing.T) {
	fn := HandleFile(func(c echo.Context, req *greetRequest) (*File, error) {
		return &File{
			Name:        "letter-ada.txt",
			ContentType: "text/plain; charset=utf-8",
			Data:        []byte("Dear Doctor,"),
		}, nil
	}, http.StatusOK)

	rec, err := invoke(t, fn, http.MethodGet, `{"name":"ada"}`)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=letter-ada.txt", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Dear Doctor,", rec.Body.String())
}
