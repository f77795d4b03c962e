package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	connerrors "github.com/troioi-vn/meo-gpt-connector/internal/errors"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// Machine-readable codes carried in the "error" field of JSON error bodies.
const (
	codeInvalidRequest    = "INVALID_REQUEST"
	codeSessionExpired    = "SESSION_EXPIRED"
	codeUpstreamError     = "UPSTREAM_ERROR"
	codeInvalidClient     = "INVALID_CLIENT"
	codeUnsupportedGrant  = "UNSUPPORTED_GRANT_TYPE"
	codeInvalidGrant      = "INVALID_GRANT"
	codeInvalidToken      = "INVALID_TOKEN"
	codeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	codeInternalError     = "INTERNAL_ERROR"
)

// ErrorResponse is the JSON body of every error answered by the connector.
type ErrorResponse struct {
	Error     string       `json:"error"`
	Message   string       `json:"message"`
	Fields    []FieldError `json:"fields"`
	RequestID string       `json:"request_id"`
}

// FieldError names a request field that failed validation.
type FieldError struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type apiError struct {
	status  int
	code    string
	message string
}

// classifyError maps the error taxonomy to a status, code and caller-safe
// message. Anything unrecognised is an internal error.
func classifyError(err error) apiError {
	switch {
	case connerrors.Is(err, connerrors.ErrInvalidRequest):
		return apiError{http.StatusBadRequest, codeInvalidRequest, err.Error()}
	case connerrors.Is(err, connerrors.ErrSessionExpired):
		return apiError{http.StatusBadRequest, codeSessionExpired, "Your login session has expired or is invalid."}
	case connerrors.Is(err, connerrors.ErrUpstreamExchangeFailed):
		return apiError{http.StatusBadGateway, codeUpstreamError, "Main app exchange failed."}
	case connerrors.Is(err, connerrors.ErrInvalidClientCredentials):
		return apiError{http.StatusUnauthorized, codeInvalidClient, "Invalid client credentials."}
	case connerrors.Is(err, connerrors.ErrUnsupportedGrant):
		return apiError{http.StatusBadRequest, codeUnsupportedGrant, "Unsupported grant_type."}
	case connerrors.Is(err, connerrors.ErrInvalidOrExpiredCode):
		return apiError{http.StatusBadRequest, codeInvalidGrant, "Invalid or expired code."}
	case connerrors.Is(err, connerrors.ErrInvalidToken):
		return apiError{http.StatusUnauthorized, codeInvalidToken, "Invalid or expired token."}
	case connerrors.Is(err, connerrors.ErrRateLimitExceeded):
		return apiError{http.StatusTooManyRequests, codeRateLimitExceeded, "Too many requests. Please slow down."}
	default:
		return apiError{http.StatusInternalServerError, codeInternalError, "An unexpected error occurred."}
	}
}

// writeError answers err as a JSON error body. Internal errors are logged with
// their cause; the caller only sees the generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := classifyError(err)
	if apiErr.status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	writeJSONError(w, r, apiErr.code, apiErr.message, apiErr.status)
}

// writeJSONError writes an error response
func writeJSONError(w http.ResponseWriter, r *http.Request, errorCode, message string, statusCode int) {
	if statusCode == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="meo-gpt-connector"`)
	}
	writeJSON(w, statusCode, ErrorResponse{
		Error:     errorCode,
		Message:   message,
		Fields:    []FieldError{},
		RequestID: RequestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
