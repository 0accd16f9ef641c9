package core

// errors.go defines the error taxonomy of a reconciliation run.
//
// Only ExtractionError is always fatal. InvalidRowError is fatal under the
// "fail" missing-code policy, PersistError is returned for a failed bulk
// insert, and everything else is isolated into Report.Issues.

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by stores when no order matches.
	ErrNotFound = errors.New("order not found")

	// ErrTemplateNotFound is returned by channels for unknown template names.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrEmptyFile is wrapped in an ExtractionError for zero-byte uploads.
	ErrEmptyFile = errors.New("empty file")
)

// ExtractionError means the upload could not be read as a spreadsheet.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("invalid spreadsheet: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// InvalidRowError means a single data row is structurally unusable.
type InvalidRowError struct {
	Line   int
	Field  string
	Reason string
}

func (e *InvalidRowError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Line, e.Field, e.Reason)
}

// LookupError means the store could not be read for one order.
type LookupError struct {
	OrderCode string
	Err       error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup order %s: %v", e.OrderCode, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// PersistError means a write to the store failed. Codes lists the orders the
// failed operation covered.
type PersistError struct {
	Op    string
	Codes []string
	Err   error
}

func (e *PersistError) Error() string {
	codes := strings.Join(e.Codes, ",")
	if len(e.Codes) > 5 {
		codes = strings.Join(e.Codes[:5], ",") + fmt.Sprintf(",... (%d total)", len(e.Codes))
	}
	return fmt.Sprintf("persist %s [%s]: %v", e.Op, codes, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// NotificationError means one notification could not be sent.
type NotificationError struct {
	OrderCode string
	Template  string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify order %s (%s): %v", e.OrderCode, e.Template, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
