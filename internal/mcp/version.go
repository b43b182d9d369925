package mcp

import (
	"context"
	"time"

	"github.com/bobmcallan/loan-portal/internal/config"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// versionInfo holds the portal version and backend reachability.
type versionInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
	Backend string `json:"backend"`
}

// VersionTool returns the mcp.Tool definition for get_version.
func VersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get loan portal version and whether the analysis backend is reachable. Use this to verify connectivity."),
	)
}

// VersionToolHandler reports the portal version. backend may be nil.
func VersionToolHandler(backend Pinger) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info := versionInfo{
			Version: config.GetVersion(),
			Build:   config.GetBuild(),
			Commit:  config.GetGitCommit(),
			Backend: "unknown",
		}

		if backend != nil {
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := backend.Ping(pctx); err != nil {
				info.Backend = "down"
			} else {
				info.Backend = "ok"
			}
		}

		return jsonResult(info), nil
	}
}
