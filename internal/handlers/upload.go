package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/failure"
	"github.com/bobmcallan/loan-portal/internal/models"
	"github.com/bobmcallan/loan-portal/internal/upload"
)

const uploadFailedMessage = "Upload failed. Please try again."

// StatementUploader stores statements and signs links to them.
type StatementUploader interface {
	Submit(ctx context.Context, f upload.File) (*models.UploadResult, error)
	ReadURL(ctx context.Context, storageKey string) (string, error)
	StorageKey(statementID string) string
}

// UploadHandler accepts statement uploads from the form and the JSON API.
type UploadHandler struct {
	logger   *common.Logger
	pages    *PageHandler
	uploader StatementUploader
	maxBytes int64
}

// NewUploadHandler creates an upload handler. maxBytes caps the file part.
func NewUploadHandler(logger *common.Logger, pages *PageHandler, uploader StatementUploader, maxBytes int64) *UploadHandler {
	return &UploadHandler{logger: logger, pages: pages, uploader: uploader, maxBytes: maxBytes}
}

// HandleForm handles POST /upload. Success redirects to the results page;
// failure re-renders the upload page with the message.
func (h *UploadHandler) HandleForm(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	res, err := h.submit(r)
	if err != nil {
		h.pages.renderLanding(w, r, failure.HTTPStatus(err), failure.MessageOf(err, uploadFailedMessage))
		return
	}
	http.Redirect(w, r, "/results/"+res.StatementID, http.StatusSeeOther)
}

// HandleAPI handles POST /api/uploads.
func (h *UploadHandler) HandleAPI(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	res, err := h.submit(r)
	if err != nil {
		WriteFailure(w, err, uploadFailedMessage)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"status":      "ok",
		"upload":      res,
		"results_url": "/results/" + res.StatementID,
	})
}

func (h *UploadHandler) submit(r *http.Request) (*models.UploadResult, error) {
	f, err := h.readFile(r)
	if err != nil {
		return nil, err
	}
	return h.uploader.Submit(r.Context(), f)
}

// readFile extracts the "file" part. A missing part yields an empty File so
// validation reports it.
func (h *UploadHandler) readFile(r *http.Request) (upload.File, error) {
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return upload.File{}, failure.Validation("The file is too large.")
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return upload.File{}, failure.Validation("Please select a PDF file to upload.")
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return upload.File{}, nil
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		return upload.File{}, failure.Validation("The file could not be read.")
	}
	return upload.File{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}
