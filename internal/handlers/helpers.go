package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/bobmcallan/loan-portal/internal/failure"
)

type ctxKey string

const csrfTokenKey ctxKey = "csrf_token"

// CSRFFieldName is the form field and cookie carrying the CSRF token.
const CSRFFieldName = "_csrf"

var statementIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,199}$`)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteFailure writes err as a JSON error using its failure kind for the
// status and its user-facing message for the body.
func WriteFailure(w http.ResponseWriter, err error, fallback string) error {
	return WriteError(w, failure.HTTPStatus(err), failure.MessageOf(err, fallback))
}

// WithCSRFToken stores the request's CSRF token for templates.
func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfTokenKey, token)
}

// CSRFToken returns the token set by the CSRF middleware, falling back to
// the request cookie.
func CSRFToken(r *http.Request) string {
	if token, ok := r.Context().Value(csrfTokenKey).(string); ok && token != "" {
		return token
	}
	if c, err := r.Cookie(CSRFFieldName); err == nil {
		return c.Value
	}
	return ""
}

// ValidStatementID reports whether id is a single safe path segment.
func ValidStatementID(id string) bool {
	return statementIDPattern.MatchString(id) && id != "." && id != ".."
}
