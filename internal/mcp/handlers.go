package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/failure"
	"github.com/bobmcallan/loan-portal/internal/handlers"
	"github.com/bobmcallan/loan-portal/internal/prediction"
	"github.com/bobmcallan/loan-portal/internal/reasons"
	"github.com/bobmcallan/loan-portal/internal/report"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// errorResult creates an MCP error result with the given message.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

func jsonResult(v interface{}) *mcp.CallToolResult {
	out, err := json.Marshal(v)
	if err != nil {
		return errorResult("failed to marshal result")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(out))},
	}
}

type reportResult struct {
	Status               string           `json:"status"`
	StatementID          string           `json:"statement_id"`
	StatementAnalysisRef string           `json:"statement_analysis_ref,omitempty"`
	Decision             *report.Decision `json:"decision,omitempty"`
	BankName             string           `json:"bank_name,omitempty"`
	Summary              []report.Card    `json:"summary,omitempty"`
	ReasonsFor           []string         `json:"reasons_for,omitempty"`
	ReasonsAgainst       []string         `json:"reasons_against,omitempty"`
	Months               []string         `json:"months,omitempty"`
	Month                []report.BarItem `json:"month_breakdown,omitempty"`
}

// ReportToolHandler returns the get_statement_report handler.
func ReportToolHandler(svc Services, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := strings.TrimSpace(request.GetString("statement_id", ""))
		if !handlers.ValidStatementID(id) {
			return errorResult("statement_id is required and must be a single path segment"), nil
		}

		out := svc.Predictions.Wait(ctx, svc.StorageKey(id))
		switch out.State {
		case prediction.StatePending:
			return jsonResult(reportResult{Status: "pending", StatementID: id}), nil
		case prediction.StateFailed:
			logger.Warn().Err(out.Err).Str("statement_id", id).Msg("MCP report lookup failed")
			return errorResult(failure.MessageOf(out.Err, prediction.ServerFailureMessage)), nil
		}

		rep, err := report.Derive(out.Response.StatementAnalysis)
		if err != nil {
			return errorResult(prediction.ServerFailureMessage), nil
		}

		res := reportResult{
			Status:               "ready",
			StatementID:          id,
			StatementAnalysisRef: out.Response.StatementAnalysisRef,
			Decision:             &rep.Decision,
			BankName:             rep.BankName,
			Summary:              rep.Summary,
			ReasonsFor:           bulletTexts(rep.Reasons.Supporting),
			ReasonsAgainst:       bulletTexts(rep.Reasons.Opposing),
		}
		for _, m := range rep.Months {
			res.Months = append(res.Months, m.Label)
		}

		if month := request.GetInt("month", 0); month != 0 {
			items, err := rep.BarListForMonth(month - 1)
			if errors.Is(err, report.ErrMonthOutOfRange) {
				return errorResult(err.Error()), nil
			}
			res.Month = items
		}
		return jsonResult(res), nil
	}
}

// ConfirmToolHandler returns the confirm_loan_decision handler.
func ConfirmToolHandler(svc Services, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := strings.TrimSpace(request.GetString("statement_id", ""))
		ref := strings.TrimSpace(request.GetString("statement_analysis_ref", ""))

		if id != "" && !handlers.ValidStatementID(id) {
			return errorResult("statement_id must be a single path segment"), nil
		}
		if ref == "" && id != "" && svc.Predictions != nil && svc.StorageKey != nil {
			if known, err := svc.Predictions.RefFor(ctx, svc.StorageKey(id)); err == nil {
				ref = known
			}
		}
		if ref == "" {
			return errorResult("statement_analysis_ref is unknown; fetch the report first or pass it explicitly"), nil
		}

		shared, err := svc.Confirmer.Confirm(ctx, id, ref)
		if err != nil {
			logger.Warn().Err(err).Str("ref", ref).Msg("MCP confirmation failed")
			return errorResult(failure.MessageOf(err, "Failed to save your confirmation. Please try again.")), nil
		}
		return jsonResult(map[string]interface{}{
			"status":                 "ok",
			"statement_analysis_ref": ref,
			"shared":                 shared,
		}), nil
	}
}

func bulletTexts(bullets []reasons.Bullet) []string {
	out := make([]string, 0, len(bullets))
	for _, b := range bullets {
		out = append(out, b.Text)
	}
	return out
}
