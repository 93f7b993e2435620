package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/dictatemed/dictatemed/internal/service"
	"github.com/dictatemed/dictatemed/internal/validation"
)

// ReferralsHandler exposes referral document registration, ingestion, and
// retrieval endpoints.
type ReferralsHandler struct {
	Handler
	referrals *service.ReferralsService
}

func NewReferralsHandler(h Handler, referrals *service.ReferralsService) *ReferralsHandler {
	return &ReferralsHandler{Handler: h, referrals: referrals}
}

type RegisterFileRequest struct {
	Filename  string `json:"filename" validate:"required,max=255"`
	MimeType  string `json:"mime_type" validate:"required"`
	SizeBytes int64  `json:"size_bytes" validate:"required,gt=0"`
}

type RegisterBatchRequest struct {
	LetterID *string               `json:"letter_id" validate:"omitempty,uuid"`
	Files    []RegisterFileRequest `json:"files" validate:"required,min=1,max=20,dive"`
}

func (r *RegisterBatchRequest) Validate() error {
	return validation.Struct(r)
}

type RegisteredDocumentResponse struct {
	Document  DocumentResponse `json:"document"`
	UploadURL string           `json:"upload_url"`
}

type RegisterBatchResponse struct {
	BatchID   string                       `json:"batch_id"`
	Documents []RegisteredDocumentResponse `json:"documents"`
}

// RegisterBatch registers a batch of referral documents and returns
// presigned upload URLs. The client uploads directly to object storage and
// then triggers ingestion for the batch.
func (h *ReferralsHandler) RegisterBatch(c echo.Context, req *RegisterBatchRequest) (*RegisterBatchResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	letterID, err := parseOptionalUUID(req.LetterID)
	if err != nil {
		return nil, err
	}

	files := make([]service.RegisterDocumentInput, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, service.RegisterDocumentInput{
			Filename:  f.Filename,
			MimeType:  f.MimeType,
			SizeBytes: f.SizeBytes,
		})
	}

	batchID, registered, err := h.referrals.RegisterBatch(c.Request().Context(), user, letterID, files)
	if err != nil {
		return nil, err
	}

	docs := make([]RegisteredDocumentResponse, 0, len(registered))
	for i := range registered {
		docs = append(docs, RegisteredDocumentResponse{
			Document:  *newDocumentResponse(&registered[i].Document),
			UploadURL: registered[i].UploadURL,
		})
	}
	return &RegisterBatchResponse{BatchID: batchID.String(), Documents: docs}, nil
}

type BatchIDRequest struct {
	BatchID string `param:"batch_id" validate:"required,uuid"`
}

func (r *BatchIDRequest) Validate() error {
	return validation.Struct(r)
}

type IngestBatchResponse struct {
	Reports []IngestReportResponse `json:"reports"`
}

// IngestBatch runs extraction over the batch's uploaded documents and blocks
// until every document settles. Already-extracted documents are skipped.
func (h *ReferralsHandler) IngestBatch(c echo.Context, req *BatchIDRequest) (*IngestBatchResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	batchID, err := parseUUID(req.BatchID)
	if err != nil {
		return nil, err
	}

	reports, err := h.referrals.Ingest(c.Request().Context(), user, batchID)
	if err != nil {
		return nil, err
	}
	return &IngestBatchResponse{Reports: newIngestReportResponses(reports)}, nil
}

type BatchStatusResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

// BatchStatus returns the batch's documents with their pipeline state.
func (h *ReferralsHandler) BatchStatus(c echo.Context, req *BatchIDRequest) (*BatchStatusResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	batchID, err := parseUUID(req.BatchID)
	if err != nil {
		return nil, err
	}

	docs, err := h.referrals.BatchStatus(c.Request().Context(), user, batchID)
	if err != nil {
		return nil, err
	}
	return &BatchStatusResponse{Documents: newDocumentResponses(docs)}, nil
}

type DocumentIDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (r *DocumentIDRequest) Validate() error {
	return validation.Struct(r)
}

// GetDocument returns a single referral document.
func (h *ReferralsHandler) GetDocument(c echo.Context, req *DocumentIDRequest) (*DocumentResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	doc, err := h.referrals.GetDocument(c.Request().Context(), user, id)
	if err != nil {
		return nil, err
	}
	return newDocumentResponse(doc), nil
}

type CancelDocumentResponse struct {
	Cancelled bool `json:"cancelled"`
}

// CancelDocument aborts an in-flight extraction. Cancelled is false when the
// document was not processing.
func (h *ReferralsHandler) CancelDocument(c echo.Context, req *DocumentIDRequest) (*CancelDocumentResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	cancelled, err := h.referrals.CancelDocument(c.Request().Context(), user, id)
	if err != nil {
		return nil, err
	}
	return &CancelDocumentResponse{Cancelled: cancelled}, nil
}

type DownloadURLResponse struct {
	URL string `json:"url"`
}

// DownloadURL returns a short-lived presigned GET URL for the original file.
func (h *ReferralsHandler) DownloadURL(c echo.Context, req *DocumentIDRequest) (*DownloadURLResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	url, err := h.referrals.DownloadURL(c.Request().Context(), user, id)
	if err != nil {
		return nil, err
	}
	return &DownloadURLResponse{URL: url}, nil
}

// DeleteDocument soft-deletes a document and removes the stored object.
func (h *ReferralsHandler) DeleteDocument(c echo.Context, req *DocumentIDRequest) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return err
	}
	return h.referrals.DeleteDocument(c.Request().Context(), user, id)
}
