package core

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// OutcomeKind says what a run did to one order.
type OutcomeKind int

const (
	OutcomeCreated OutcomeKind = iota + 1
	OutcomeUpdated
)

// Outcome is one created or updated record. Slices of outcomes keep sheet
// row order.
type Outcome struct {
	Kind   OutcomeKind
	Record OrderRecord
}

// Template returns the notification template for the outcome.
func (o Outcome) Template() string {
	if o.Kind == OutcomeUpdated {
		return TemplateStatusUpdate
	}
	return TemplateOrderCreated
}

// Classification is the diff of one batch against the store.
type Classification struct {
	NewItems     []OrderRecord
	UpdatedItems []OrderRecord
	// Outcomes holds NewItems and UpdatedItems interleaved in input order.
	Outcomes  []Outcome
	Unchanged int
	Issues    []Issue
}

func (c *Classification) add(kind OutcomeKind, rec OrderRecord) {
	if kind == OutcomeUpdated {
		c.UpdatedItems = append(c.UpdatedItems, rec)
	} else {
		c.NewItems = append(c.NewItems, rec)
	}
	c.Outcomes = append(c.Outcomes, Outcome{Kind: kind, Record: rec})
}

// Engine classifies candidate records as new, changed or unchanged.
type Engine struct {
	gw  Gateway
	now func() time.Time
}

// NewEngine creates an engine reading from gw. A nil clock uses time.Now.
func NewEngine(gw Gateway, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{gw: gw, now: clock}
}

// Reconcile looks every record up once, in order. A record without a stored
// counterpart is new and kept as-is. A stored record with a different status
// is updated: only its Status and LastUpdatedAt change, every other field of
// the candidate is ignored. Lookup failures are isolated as issues.
//
// If ctx is cancelled the records classified so far are returned along with
// the context error.
func (e *Engine) Reconcile(ctx context.Context, records []OrderRecord) (*Classification, error) {
	out := &Classification{
		NewItems:     []OrderRecord{},
		UpdatedItems: []OrderRecord{},
		Outcomes:     []Outcome{},
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		existing, err := e.gw.FindByCode(ctx, rec.OrderCode)
		switch {
		case errors.Is(err, ErrNotFound):
			out.add(OutcomeCreated, rec)
			continue
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			lookupErr := &LookupError{OrderCode: rec.OrderCode, Err: err}
			slog.Warn("order lookup failed", "order_code", rec.OrderCode, "error", err)
			out.Issues = append(out.Issues, Issue{Kind: IssueLookup, OrderCode: rec.OrderCode, Reason: lookupErr.Error()})
			continue
		case existing == nil:
			out.add(OutcomeCreated, rec)
			continue
		}

		// An unrecognized status never replaces a known one.
		if existing.Status == rec.Status || rec.Status == StatusUnrecognized {
			out.Unchanged++
			continue
		}

		existing.Status = rec.Status
		existing.LastUpdatedAt = e.now()
		out.add(OutcomeUpdated, *existing)
	}

	return out, nil
}
