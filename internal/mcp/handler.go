package mcp

import (
	"context"
	"net/http"

	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/config"
	"github.com/bobmcallan/loan-portal/internal/prediction"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Predictions waits for statement analyses.
type Predictions interface {
	Wait(ctx context.Context, storageKey string) prediction.Outcome
	RefFor(ctx context.Context, storageKey string) (string, error)
}

// Confirmer submits decision confirmations.
type Confirmer interface {
	Confirm(ctx context.Context, statementID, ref string) (shared bool, err error)
}

// Pinger pings the analysis backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the portal operations exposed as tools.
type Services struct {
	Predictions Predictions
	Confirmer   Confirmer
	Backend     Pinger
	StorageKey  func(statementID string) string
}

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	mcpServer  *mcpserver.MCPServer
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler registers the portal tools and returns a stateless handler.
func NewHandler(svc Services, logger *common.Logger) *Handler {
	mcpSrv := mcpserver.NewMCPServer(
		"loan-portal",
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)

	count := RegisterTools(mcpSrv, svc, logger)

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().Int("tools", count).Msg("MCP handler initialized")

	return &Handler{
		mcpServer:  mcpSrv,
		streamable: streamable,
		logger:     logger,
	}
}

// Server returns the underlying MCP server.
func (h *Handler) Server() *mcpserver.MCPServer {
	return h.mcpServer
}

// ServeHTTP delegates to the streamable HTTP server.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}
