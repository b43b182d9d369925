package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/failure"
	"github.com/bobmcallan/loan-portal/internal/models"
	"github.com/bobmcallan/loan-portal/internal/prediction"
	"github.com/bobmcallan/loan-portal/internal/report"
)

const loadingRefreshSeconds = 5

// PredictionSource fetches analyses for stored statements.
type PredictionSource interface {
	Wait(ctx context.Context, storageKey string) prediction.Outcome
	RefFor(ctx context.Context, storageKey string) (string, error)
	Cached(storageKey string) (*models.FetchResponse, bool)
}

// ResultsHandler renders analysis results as pages and JSON.
type ResultsHandler struct {
	logger      *common.Logger
	pages       *PageHandler
	predictions PredictionSource
	uploader    StatementUploader
}

// NewResultsHandler creates a results handler.
func NewResultsHandler(logger *common.Logger, pages *PageHandler, predictions PredictionSource, uploader StatementUploader) *ResultsHandler {
	return &ResultsHandler{logger: logger, pages: pages, predictions: predictions, uploader: uploader}
}

// ParseResultsPath splits "/results/{id}[/{action}]" or
// "/api/results/{id}[/months/{n}]" after prefix.
func ParseResultsPath(path, prefix string) (id string, rest []string, ok bool) {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return "", nil, false
	}
	parts := strings.Split(trimmed, "/")
	if !ValidStatementID(parts[0]) {
		return "", nil, false
	}
	return parts[0], parts[1:], true
}

// ServePage handles GET /results/{id}.
func (h *ResultsHandler) ServePage(w http.ResponseWriter, r *http.Request, statementID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	key := h.uploader.StorageKey(statementID)
	out := h.predictions.Wait(r.Context(), key)

	switch out.State {
	case prediction.StatePending:
		data := h.pages.pageData(r, "loading")
		data["StatementID"] = statementID
		data["RefreshSeconds"] = loadingRefreshSeconds
		h.pages.Render(w, http.StatusAccepted, "loading.html", data)
		return
	case prediction.StateFailed:
		h.logFailure(statementID, out.Err)
		h.pages.RenderError(w, r, failure.HTTPStatus(out.Err), prediction.ServerFailureMessage)
		return
	}

	rep, err := report.Derive(out.Response.StatementAnalysis)
	if err != nil {
		h.pages.RenderError(w, r, http.StatusBadGateway, prediction.ServerFailureMessage)
		return
	}

	data := h.pages.pageData(r, "results")
	data["StatementID"] = statementID
	data["Ref"] = out.Response.StatementAnalysisRef
	data["Report"] = rep
	data["Charts"] = chartData(rep)
	h.pages.Render(w, http.StatusOK, "results.html", data)
}

// ServePDF handles GET /results/{id}/pdf by redirecting to a signed read URL.
func (h *ResultsHandler) ServePDF(w http.ResponseWriter, r *http.Request, statementID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	u, err := h.uploader.ReadURL(r.Context(), h.uploader.StorageKey(statementID))
	if err != nil {
		h.logger.Error().Err(err).Str("statement_id", statementID).Msg("Failed to sign read URL")
		h.pages.RenderError(w, r, http.StatusBadGateway, "The original statement is not available right now.")
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

// ServeAPI handles GET /api/results/{id}.
func (h *ResultsHandler) ServeAPI(w http.ResponseWriter, r *http.Request, statementID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	out := h.predictions.Wait(r.Context(), h.uploader.StorageKey(statementID))
	switch out.State {
	case prediction.StatePending:
		WriteJSON(w, http.StatusAccepted, map[string]interface{}{
			"status":       "pending",
			"statement_id": statementID,
			"attempts":     out.Attempts,
		})
		return
	case prediction.StateFailed:
		h.logFailure(statementID, out.Err)
		WriteFailure(w, out.Err, prediction.ServerFailureMessage)
		return
	}

	rep, err := report.Derive(out.Response.StatementAnalysis)
	if err != nil {
		WriteError(w, http.StatusBadGateway, prediction.ServerFailureMessage)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":                 "ready",
		"statement_id":           statementID,
		"statement_analysis_ref": out.Response.StatementAnalysisRef,
		"report":                 rep,
	})
}

// ServeMonthAPI handles GET /api/results/{id}/months/{n}, where n is the
// 1-based month number. "?clamp=1" clamps instead of returning 400. Only a
// cached analysis is served; a miss is 409 and never reaches the backend.
func (h *ResultsHandler) ServeMonthAPI(w http.ResponseWriter, r *http.Request, statementID, month string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	n, err := strconv.Atoi(month)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "month must be a number")
		return
	}

	resp, ok := h.predictions.Cached(h.uploader.StorageKey(statementID))
	if !ok {
		WriteError(w, http.StatusConflict, "analysis not loaded, open the results page first")
		return
	}

	rep, err := report.Derive(resp.StatementAnalysis)
	if err != nil {
		WriteError(w, http.StatusBadGateway, prediction.ServerFailureMessage)
		return
	}

	index := n - 1
	if r.URL.Query().Get("clamp") == "1" {
		index = rep.ClampMonth(index)
	}
	items, err := rep.BarListForMonth(index)
	if errors.Is(err, report.ErrMonthOutOfRange) {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"month":  index + 1,
		"label":  rep.Months[index].Label,
		"items":  items,
	})
}

func (h *ResultsHandler) logFailure(statementID string, err error) {
	h.logger.Warn().
		Err(err).
		Str("statement_id", statementID).
		Str("kind", failure.KindOf(err).String()).
		Int("upstream_status", failure.StatusOf(err)).
		Msg("Prediction failed")
}

// chartData is the subset of a report the chart script reads.
func chartData(rep *report.Report) map[string]interface{} {
	return map[string]interface{}{
		"deposits_withdrawals": rep.DepositsWithdrawals,
		"expenses":             rep.Expenses,
		"balance":              rep.Balance,
		"months":               rep.BarLists(),
	}
}
