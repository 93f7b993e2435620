package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/dictatemed/dictatemed/internal/service"
	"github.com/dictatemed/dictatemed/internal/validation"
)

// RecordingsHandler exposes dictation recording endpoints.
type RecordingsHandler struct {
	Handler
	recordings *service.RecordingsService
}

func NewRecordingsHandler(h Handler, recordings *service.RecordingsService) *RecordingsHandler {
	return &RecordingsHandler{Handler: h, recordings: recordings}
}

type CreateRecordingRequest struct {
	MimeType        string  `json:"mime_type" validate:"required"`
	DurationSeconds int     `json:"duration_seconds" validate:"omitempty,gte=0"`
	LetterID        *string `json:"letter_id" validate:"omitempty,uuid"`
}

func (r *CreateRecordingRequest) Validate() error {
	return validation.Struct(r)
}

type CreatedRecordingResponse struct {
	Recording RecordingResponse `json:"recording"`
	UploadURL string            `json:"upload_url"`
}

// Create registers a recording and returns a presigned upload URL. The
// client uploads the audio directly to object storage, then confirms.
func (h *RecordingsHandler) Create(c echo.Context, req *CreateRecordingRequest) (*CreatedRecordingResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	letterID, err := parseOptionalUUID(req.LetterID)
	if err != nil {
		return nil, err
	}

	created, err := h.recordings.Create(c.Request().Context(), user, req.MimeType, req.DurationSeconds, letterID)
	if err != nil {
		return nil, err
	}
	return &CreatedRecordingResponse{
		Recording: *newRecordingResponse(&created.Recording),
		UploadURL: created.UploadURL,
	}, nil
}

type RecordingIDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (r *RecordingIDRequest) Validate() error {
	return validation.Struct(r)
}

// ConfirmUpload verifies the audio landed in storage and marks the
// recording READY.
func (h *RecordingsHandler) ConfirmUpload(c echo.Context, req *RecordingIDRequest) (*RecordingResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	rec, err := h.recordings.ConfirmUpload(c.Request().Context(), user, id)
	if err != nil {
		return nil, err
	}
	return newRecordingResponse(rec), nil
}

type SetTranscriptRequest struct {
	ID         string `param:"id" validate:"required,uuid"`
	Transcript string `json:"transcript" validate:"required"`
}

func (r *SetTranscriptRequest) Validate() error {
	return validation.Struct(r)
}

// SetTranscript stores the transcript and marks the recording TRANSCRIBED.
func (h *RecordingsHandler) SetTranscript(c echo.Context, req *SetTranscriptRequest) (*RecordingResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	rec, err := h.recordings.SetTranscript(c.Request().Context(), user, id, req.Transcript)
	if err != nil {
		return nil, err
	}
	return newRecordingResponse(rec), nil
}

type AttachRecordingRequest struct {
	ID       string `param:"id" validate:"required,uuid"`
	LetterID string `json:"letter_id" validate:"required,uuid"`
}

func (r *AttachRecordingRequest) Validate() error {
	return validation.Struct(r)
}

// Attach links a recording to one of the clinician's letters.
func (h *RecordingsHandler) Attach(c echo.Context, req *AttachRecordingRequest) (*RecordingResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}
	letterID, err := parseUUID(req.LetterID)
	if err != nil {
		return nil, err
	}

	rec, err := h.recordings.AttachToLetter(c.Request().Context(), user, id, letterID)
	if err != nil {
		return nil, err
	}
	return newRecordingResponse(rec), nil
}

type ListRecordingsRequest struct {
	Limit  int `query:"limit" validate:"omitempty,gte=0,lte=100"`
	Offset int `query:"offset" validate:"omitempty,gte=0"`
}

func (r *ListRecordingsRequest) Validate() error {
	return validation.Struct(r)
}

type ListRecordingsResponse struct {
	Recordings []RecordingResponse `json:"recordings"`
}

// List returns the clinician's recordings, newest first.
func (h *RecordingsHandler) List(c echo.Context, req *ListRecordingsRequest) (*ListRecordingsResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	recs, err := h.recordings.List(c.Request().Context(), user, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}
	return &ListRecordingsResponse{Recordings: newRecordingResponses(recs)}, nil
}

// Get returns a single recording.
func (h *RecordingsHandler) Get(c echo.Context, req *RecordingIDRequest) (*RecordingResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	rec, err := h.recordings.Get(c.Request().Context(), user, id)
	if err != nil {
		return nil, err
	}
	return newRecordingResponse(rec), nil
}

// DownloadURL returns a short-lived presigned GET URL for the audio.
func (h *RecordingsHandler) DownloadURL(c echo.Context, req *RecordingIDRequest) (*DownloadURLResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	url, err := h.recordings.DownloadURL(c.Request().Context(), user, id)
	if err != nil {
		return nil, err
	}
	return &DownloadURLResponse{URL: url}, nil
}

// Delete soft-deletes a recording and removes the stored audio.
func (h *RecordingsHandler) Delete(c echo.Context, req *RecordingIDRequest) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return err
	}
	return h.recordings.Delete(c.Request().Context(), user, id)
}
