package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Typed pipeline errors are matched first; anything else falls
// through to case-insensitive substring patterns, first match wins.
//
// Codes:
//
//	FILE001 file too large            FILE002 not a readable spreadsheet
//	FILE004 no file in the request    FILE005 empty upload
//	VAL001  row without order code    ORD001  order not found
//	DB001   duplicate order code      DB004   database unreachable
//	DB005   connection reset          DB006   database timeout
//	DB007   deadlock                  DB008   orders could not be saved
//	UPL002  too many uploads          UPL004  request cancelled
//	UPL005  request timed out         RATE001 rate limited
//	ERR000  anything else

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgInvalidSpreadsheet = UserMessage{
		Message: "The file is not a readable spreadsheet",
		Action:  "Upload the .xlsx export produced by the ERP",
		Code:    "FILE002",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Export the report again and upload the new file",
		Code:    "FILE005",
	}
	msgMissingCode = UserMessage{
		Message: "A row has no order code",
		Action:  "Fix the row in the export or change the missing code policy",
		Code:    "VAL001",
	}
	msgNotFound = UserMessage{
		Message: "Order not found",
		Action:  "Check the order code",
		Code:    "ORD001",
	}
	msgPersist = UserMessage{
		Message: "Some orders could not be saved",
		Action:  "Review the report and upload the file again",
		Code:    "DB008",
	}
	msgTooManyUploads = UserMessage{
		Message: "Too many uploads in progress",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
)

var errorPatterns = []errorPattern{
	{"duplicate key", UserMessage{"An order with this code already exists", "Upload the file again to reconcile it", "DB001"}},
	{"duplicate entry", UserMessage{"An order with this code already exists", "Upload the file again to reconcile it", "DB001"}},
	{"violates unique", UserMessage{"An order with this code already exists", "Upload the file again to reconcile it", "DB001"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try again later or upload a smaller file", "UPL005"}},
	{"timeout", UserMessage{"Operation timed out", "Try again later or upload a smaller file", "DB006"}},
	{"file too large", UserMessage{"File exceeds maximum size limit", "Split the export into smaller files", "FILE001"}},
	{"no file provided", UserMessage{"No file was selected", "Attach the export to the deliveryFile field", "FILE004"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		extractErr *ExtractionError
		rowErr     *InvalidRowError
		persistErr *PersistError
	)
	switch {
	case errors.Is(err, ErrEmptyFile):
		return msgEmptyFile
	case errors.As(err, &extractErr):
		return msgInvalidSpreadsheet
	case errors.As(err, &rowErr):
		return msgMissingCode
	case errors.Is(err, ErrNotFound):
		return msgNotFound
	case errors.Is(err, ErrTooManyUploads):
		return msgTooManyUploads
	case errors.As(err, &persistErr):
		if m := matchPattern(persistErr.Err); m.Code != defaultMessage.Code {
			return m
		}
		return msgPersist
	}

	return matchPattern(err)
}

func matchPattern(err error) UserMessage {
	if err == nil {
		return defaultMessage
	}
	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err; it returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
