package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/failure"
)

const confirmFailedMessage = "Failed to save your confirmation. Please try again."

// DecisionConfirmer submits confirmations, collapsing duplicates in flight.
type DecisionConfirmer interface {
	Confirm(ctx context.Context, statementID, ref string) (shared bool, err error)
}

// ConfirmHandler handles the "Agree" action.
type ConfirmHandler struct {
	logger      *common.Logger
	pages       *PageHandler
	confirmer   DecisionConfirmer
	predictions PredictionSource
	uploader    StatementUploader
}

// NewConfirmHandler creates a confirm handler.
func NewConfirmHandler(logger *common.Logger, pages *PageHandler, confirmer DecisionConfirmer, predictions PredictionSource, uploader StatementUploader) *ConfirmHandler {
	return &ConfirmHandler{
		logger:      logger,
		pages:       pages,
		confirmer:   confirmer,
		predictions: predictions,
		uploader:    uploader,
	}
}

// HandleForm handles POST /results/{id}/confirm.
func (h *ConfirmHandler) HandleForm(w http.ResponseWriter, r *http.Request, statementID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	ref := strings.TrimSpace(r.FormValue("statement_analysis_ref"))
	if _, err := h.confirmer.Confirm(r.Context(), statementID, ref); err != nil {
		h.logger.Warn().Err(err).Str("statement_id", statementID).Msg("Confirmation failed")
		h.pages.RenderError(w, r, failure.HTTPStatus(err), failure.MessageOf(err, confirmFailedMessage))
		return
	}
	http.Redirect(w, r, "/?confirmed=1", http.StatusSeeOther)
}

type confirmRequest struct {
	StatementID          string `json:"statement_id"`
	StatementAnalysisRef string `json:"statement_analysis_ref"`
}

// HandleAPI handles POST /api/confirmations. When only statement_id is sent
// the last ref seen for that statement is used.
func (h *ConfirmHandler) HandleAPI(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.StatementID != "" && !ValidStatementID(req.StatementID) {
		WriteError(w, http.StatusBadRequest, "invalid statement_id")
		return
	}

	ref := strings.TrimSpace(req.StatementAnalysisRef)
	if ref == "" && req.StatementID != "" && h.predictions != nil {
		if known, err := h.predictions.RefFor(r.Context(), h.uploader.StorageKey(req.StatementID)); err == nil {
			ref = known
		}
	}

	shared, err := h.confirmer.Confirm(r.Context(), req.StatementID, ref)
	if err != nil {
		WriteFailure(w, err, confirmFailedMessage)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":                 "ok",
		"statement_analysis_ref": ref,
		"shared":                 shared,
	})
}
