package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/partycoord/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidAdminPassword = "INVALID_ADMIN_PASSWORD"
	CodePartyNotFound        = "PARTY_NOT_FOUND"
	CodePartyFull            = "PARTY_FULL"
	CodePartyAlreadyStarted  = "PARTY_ALREADY_STARTED"
	CodeNotHost              = "NOT_HOST"
	CodeInsufficientPlayers  = "INSUFFICIENT_PLAYERS"
	CodeCodeSpaceExhausted   = "CODE_SPACE_EXHAUSTED"
	CodeInvalidPlayerName    = "INVALID_PLAYER_NAME"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status err maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrPartyNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePartyNotFound, "Party not found"}}
	case errors.Is(err, model.ErrInvalidAdminPassword):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidAdminPassword, "Invalid admin password"}}
	case errors.Is(err, model.ErrPartyFull):
		return &httpError{http.StatusConflict, APIError{CodePartyFull, "Party is full"}}
	case errors.Is(err, model.ErrPartyAlreadyStarted):
		return &httpError{http.StatusConflict, APIError{CodePartyAlreadyStarted, "Party has already started"}}
	case errors.Is(err, model.ErrNotHost):
		return &httpError{http.StatusForbidden, APIError{CodeNotHost, "Only the host can perform this action"}}
	case errors.Is(err, model.ErrInsufficientPlayers):
		return &httpError{http.StatusConflict, APIError{CodeInsufficientPlayers, "Not enough players to start"}}
	case errors.Is(err, model.ErrCodeSpaceExhausted):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeCodeSpaceExhausted, "No party codes available"}}
	case errors.Is(err, model.ErrInvalidPlayerName):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidPlayerName, "Name must be between 1 and 32 characters"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
