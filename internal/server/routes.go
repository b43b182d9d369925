package server

import (
	"net/http"

	"github.com/bobmcallan/loan-portal/internal/handlers"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// UI page routes (HTML templates)
	mux.HandleFunc("/", s.app.PageHandler.ServeLanding)
	mux.HandleFunc("/upload", s.app.UploadHandler.HandleForm)
	mux.HandleFunc("/results/", s.handleResults)

	// Static files (CSS, JS, images)
	mux.HandleFunc("/static/", s.app.PageHandler.StaticFileHandler)

	// MCP endpoint (JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// API routes
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)
	mux.HandleFunc("/api/server-health", s.app.ServerHealthHandler.ServeHTTP)
	mux.HandleFunc("/api/uploads", func(w http.ResponseWriter, r *http.Request) {
		RouteResourceCollection(w, r, nil, s.app.UploadHandler.HandleAPI)
	})
	mux.HandleFunc("/api/confirmations", func(w http.ResponseWriter, r *http.Request) {
		RouteResourceCollection(w, r, nil, s.app.ConfirmHandler.HandleAPI)
	})
	mux.HandleFunc("/api/results/", s.handleResultsAPI)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleResults dispatches /results/{id}, /results/{id}/pdf and
// /results/{id}/confirm.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id, rest, ok := handlers.ParseResultsPath(r.URL.Path, "/results/")
	if !ok || len(rest) > 1 {
		s.app.PageHandler.RenderError(w, r, http.StatusNotFound, "Page not found.")
		return
	}

	if len(rest) == 0 {
		s.app.ResultsHandler.ServePage(w, r, id)
		return
	}

	switch rest[0] {
	case "pdf":
		s.app.ResultsHandler.ServePDF(w, r, id)
	case "confirm":
		RouteByMethod(w, r, MethodRouter{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) {
				s.app.ConfirmHandler.HandleForm(w, r, id)
			},
		})
	default:
		s.app.PageHandler.RenderError(w, r, http.StatusNotFound, "Page not found.")
	}
}

// handleResultsAPI dispatches /api/results/{id} and
// /api/results/{id}/months/{n}.
func (s *Server) handleResultsAPI(w http.ResponseWriter, r *http.Request) {
	id, rest, ok := handlers.ParseResultsPath(r.URL.Path, "/api/results/")
	switch {
	case !ok:
		s.handleNotFound(w, r)
	case len(rest) == 0:
		s.app.ResultsHandler.ServeAPI(w, r, id)
	case len(rest) == 2 && rest[0] == "months":
		s.app.ResultsHandler.ServeMonthAPI(w, r, id, rest[1])
	default:
		s.handleNotFound(w, r)
	}
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
