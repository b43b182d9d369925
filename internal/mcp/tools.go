package mcp

import (
	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ReportTool describes get_statement_report.
func ReportTool() mcp.Tool {
	return mcp.NewTool("get_statement_report",
		mcp.WithDescription("Get the loan decision and statement analysis for an uploaded bank statement. Returns status \"pending\" while the analysis is still running."),
		mcp.WithString("statement_id",
			mcp.Required(),
			mcp.Description("Statement ID returned by the upload, e.g. \"3f2a...-statement.pdf\""),
		),
		mcp.WithNumber("month",
			mcp.Description("Optional 1-based month to include a per-month breakdown for"),
		),
	)
}

// ConfirmTool describes confirm_loan_decision.
func ConfirmTool() mcp.Tool {
	return mcp.NewTool("confirm_loan_decision",
		mcp.WithDescription("Record agreement with a loan decision so the analysis is kept as a training example. Provide statement_analysis_ref, or statement_id to use the last ref seen for that statement."),
		mcp.WithString("statement_id",
			mcp.Description("Statement ID the decision belongs to"),
		),
		mcp.WithString("statement_analysis_ref",
			mcp.Description("Reference returned with the analysis"),
		),
	)
}

// RegisterTools adds the portal tools to s and returns how many were added.
func RegisterTools(s *server.MCPServer, svc Services, logger *common.Logger) int {
	s.AddTool(VersionTool(), VersionToolHandler(svc.Backend))
	count := 1
	if svc.Predictions != nil && svc.StorageKey != nil {
		s.AddTool(ReportTool(), ReportToolHandler(svc, logger))
		count++
	}
	if svc.Confirmer != nil {
		s.AddTool(ConfirmTool(), ConfirmToolHandler(svc, logger))
		count++
	}
	return count
}
