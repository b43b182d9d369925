package handlers

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/config"
	"github.com/bobmcallan/loan-portal/internal/interfaces"
	"github.com/bobmcallan/loan-portal/internal/models"
)

const recentUploadLimit = 5

// PageHandler renders HTML pages from the pages directory.
type PageHandler struct {
	logger    *common.Logger
	templates *template.Template
	devMode   bool
	uploads   interfaces.UploadStore
}

// NewPageHandler parses every page and partial template.
func NewPageHandler(logger *common.Logger, devMode bool) *PageHandler {
	pagesDir := FindPagesDir()

	templates := template.Must(template.New("").Funcs(templateFuncs()).ParseGlob(filepath.Join(pagesDir, "*.html")))
	template.Must(templates.ParseGlob(filepath.Join(pagesDir, "partials", "*.html")))

	return &PageHandler{
		logger:    logger,
		templates: templates,
		devMode:   devMode,
	}
}

// SetUploadStore enables the recent uploads list on the landing page.
func (h *PageHandler) SetUploadStore(s interfaces.UploadStore) {
	h.uploads = s
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money":   common.FormatMoney,
		"ratio":   common.FormatRatio,
		"version": config.GetVersion,
	}
}

// FindPagesDir locates the pages directory.
func FindPagesDir() string {
	dirs := []string{
		"./pages",
		"../pages",
		"../../pages",
		".",
	}

	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}

	return "."
}

// pageData returns the fields every page template expects.
func (h *PageHandler) pageData(r *http.Request, page string) map[string]interface{} {
	return map[string]interface{}{
		"Page":      page,
		"DevMode":   h.devMode,
		"CSRFToken": CSRFToken(r),
		"Version":   config.GetVersion(),
	}
}

// Render executes a template into a buffer first so a failed render never
// leaves a half-written page.
func (h *PageHandler) Render(w http.ResponseWriter, status int, name string, data map[string]interface{}) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		if h.logger != nil {
			h.logger.Error().Str("template", name).Str("error", err.Error()).Msg("failed to render page")
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// RenderError shows the failure page with a single "Go Back" action.
func (h *PageHandler) RenderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := h.pageData(r, "error")
	data["Message"] = message
	h.Render(w, status, "error.html", data)
}

// ServeLanding renders the upload page at "/".
func (h *PageHandler) ServeLanding(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.RenderError(w, r, http.StatusNotFound, "Page not found.")
		return
	}
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	h.renderLanding(w, r, http.StatusOK, "")
}

func (h *PageHandler) renderLanding(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	data := h.pageData(r, "home")
	data["Error"] = errMsg
	if r.URL.Query().Get("confirmed") == "1" {
		data["Notice"] = "Thank you. Your confirmation has been saved."
	}
	data["RecentUploads"] = h.recentUploads(r.Context())
	h.Render(w, status, "landing.html", data)
}

func (h *PageHandler) recentUploads(ctx context.Context) []*models.UploadRecord {
	if h.uploads == nil {
		return nil
	}
	recs, err := h.uploads.ListUploads(ctx, recentUploadLimit)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to list recent uploads")
		return nil
	}
	return recs
}

// StaticFileHandler serves static files (CSS, JS, images).
func (h *PageHandler) StaticFileHandler(w http.ResponseWriter, r *http.Request) {
	staticDir := filepath.Join(FindPagesDir(), "static")

	rel := strings.TrimPrefix(r.URL.Path, "/static/")
	fullPath := filepath.Join(staticDir, filepath.FromSlash(rel))

	absStaticDir, _ := filepath.Abs(staticDir)
	absFullPath, _ := filepath.Abs(fullPath)
	if !strings.HasPrefix(absFullPath, absStaticDir+string(filepath.Separator)) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, fullPath)
}
