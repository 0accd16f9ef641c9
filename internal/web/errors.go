package web

// errors.go turns pipeline errors into JSON responses.
//
// The technical error is logged with the request id; the client gets the
// core.MapError message, action and support code.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/DeliverySync/internal/core"
	"github.com/JonMunkholm/DeliverySync/internal/logging"
)

var (
	errNoFile      = errors.New("no file provided")
	errFileTooBig  = errors.New("file too large")
	errRateLimited = errors.New("rate limit exceeded")
)

// ErrorResponse is the JSON body of every error. Error is the lower-cased
// HTTP status text; Code is the support code from core.MapError.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

func newErrorResponse(err error, statusCode int) ErrorResponse {
	msg := core.MapError(err)
	return ErrorResponse{
		Error:   strings.ToLower(http.StatusText(statusCode)),
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
}

// respondError logs err and writes the mapped error body.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	body := newErrorResponse(err, statusCode)
	logError(r, err, statusCode, body.Code)
	writeJSON(w, statusCode, body)
}

func logError(r *http.Request, err error, statusCode int, code string) {
	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", args...)
		return
	}
	logger.Warn("request error", args...)
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	var (
		extractErr *core.ExtractionError
		rowErr     *core.InvalidRowError
		persistErr *core.PersistError
	)
	switch {
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusTooManyRequests
	case errors.As(err, &extractErr), errors.As(err, &rowErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError
	case errors.Is(err, core.ErrNotFound), errors.Is(err, errNoFile):
		return http.StatusNotFound
	case errors.Is(err, errFileTooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
