package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// ERROR SHAPE:
// Every error response carries at least {"error": "..."}; auth failures add
// an "action" hint the frontend switches on ("authenticate" when no
// credential was presented at all, "reauthenticate" when the one presented
// was rejected), and unexpected failures add details + timestamp so a user
// report can be matched against the server log.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/project-tracker/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error     string `json:"error"`               // human-readable description
	Action    string `json:"action,omitempty"`    // frontend hint: "authenticate" | "reauthenticate"
	Details   string `json:"details,omitempty"`   // extra context on 500s
	Timestamp string `json:"timestamp,omitempty"` // RFC3339, on 500s, for log correlation
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status MUST go out before the body: once Encode writes, the
// headers are sent and further changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent — we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP response.
//
// The mapping, in order of precedence:
//
//	ErrNoCredential → 401 + action "authenticate"   (nothing was presented)
//	ErrAuth         → 401 + action "reauthenticate" (what was presented is bad)
//	ErrValidation   → 400
//	ErrNotFound     → 404
//	ProviderError   → GitHub's own status passed through for 403 (forbidden /
//	                  rate limit), 422 (unprocessable, e.g. name race) and
//	                  429, with GitHub's message; other provider statuses are
//	                  OUR failure to handle the provider → 500
//	anything else   → 500 with details + timestamp
//
// errors.Is/As walk the whole wrap chain, so services are free to annotate
// with fmt.Errorf("...: %w", err) without breaking the mapping.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperror.ErrNoCredential):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:  "GitHub authentication required",
			Action: "authenticate",
		})
		return

	case errors.Is(err, apperror.ErrAuth):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:  "GitHub authentication failed - please re-authenticate",
			Action: "reauthenticate",
		})
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrValidation):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: appErr.Message})
			return
		case errors.Is(err, apperror.ErrNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: appErr.Message})
			return
		}
	}

	var provErr *apperror.ProviderError
	if errors.As(err, &provErr) {
		switch provErr.StatusCode {
		case http.StatusForbidden, http.StatusUnprocessableEntity, http.StatusTooManyRequests:
			writeJSON(w, provErr.StatusCode, ErrorResponse{Error: provErr.Message})
			return
		}
		// Other provider statuses (5xx etc.) fall through to the generic 500.
	}

	// Unknown error. The raw message goes into details — this is a
	// single-user tool talking to its own dashboard, and "which GitHub call
	// blew up" is exactly what we need to see in the bug report.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:     "internal server error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
