package core

import (
	"context"
	"time"
)

// Gateway is the persistence contract consumed by reconciliation.
// FindByCode returns ErrNotFound when no record exists for code.
type Gateway interface {
	FindByCode(ctx context.Context, code string) (*OrderRecord, error)
	InsertMany(ctx context.Context, records []OrderRecord) error
	UpdateStatus(ctx context.Context, code string, status OrderStatus, at time.Time) error
}

// Store is a Gateway that can also serve the query boundary.
type Store interface {
	Gateway
	FindByID(ctx context.Context, id string) (*OrderRecord, error)
}

// Channel delivers notifications. Template returns ErrTemplateNotFound for
// unknown names.
type Channel interface {
	Template(name string) (string, error)
	Send(ctx context.Context, to, subject, body string) error
}

// Recorder observes finished pipeline runs. err is the error Process
// returned, nil for a clean run.
type Recorder interface {
	ObserveRun(report *Report, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(*Report, error) {}
