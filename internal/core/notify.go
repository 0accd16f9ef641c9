package core

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
)

// Template names looked up on the Channel.
const (
	TemplateOrderCreated = "order-created"
	TemplateStatusUpdate = "order-status-update"
)

var defaultSubjects = map[string]string{
	TemplateOrderCreated: "We received your order {orderCode}",
	TemplateStatusUpdate: "Order {orderCode}: {status}",
}

var errNoRecipient = errors.New("customer has no email address")

// Dispatcher turns classification outcomes into templated messages.
// Every record is attempted independently; failures become issues.
type Dispatcher struct {
	ch      Channel
	baseURL string
}

// NewDispatcher creates a dispatcher. Order links are baseURL/<code>.
func NewDispatcher(ch Channel, baseURL string) *Dispatcher {
	return &Dispatcher{ch: ch, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dispatch sends one order-created or order-status-update message per
// outcome, in slice order. It stops early only when ctx is done; messages
// already sent stay sent.
func (d *Dispatcher) Dispatch(ctx context.Context, outcomes []Outcome) (int, []Issue) {
	sent := 0
	var issues []Issue

	for _, o := range outcomes {
		if ctx.Err() != nil {
			return sent, issues
		}
		rec, template := o.Record, o.Template()
		if err := d.notify(ctx, template, rec); err != nil {
			nerr := &NotificationError{OrderCode: rec.OrderCode, Template: template, Err: err}
			slog.Warn("notification failed",
				"order_code", rec.OrderCode,
				"template", template,
				"error", err,
			)
			issues = append(issues, Issue{Kind: IssueNotification, OrderCode: rec.OrderCode, Reason: nerr.Error()})
			continue
		}
		sent++
	}

	return sent, issues
}

func (d *Dispatcher) notify(ctx context.Context, template string, rec OrderRecord) error {
	if strings.TrimSpace(rec.CustomerEmail) == "" {
		return errNoRecipient
	}

	text, err := d.ch.Template(template)
	if err != nil {
		return err
	}

	subject, body := splitSubject(text)
	if subject == "" {
		subject = defaultSubjects[template]
	}

	link := d.Link(rec.OrderCode)
	return d.ch.Send(ctx, rec.CustomerEmail, Render(subject, rec, link), Render(body, rec, link))
}

// Link builds the order detail URL for code.
func (d *Dispatcher) Link(code string) string {
	return d.baseURL + "/" + url.PathEscape(code)
}

// Render substitutes {customerName}, {status}, {link} and {orderCode}.
// Unknown placeholders are left as literal text.
func Render(text string, rec OrderRecord, link string) string {
	return strings.NewReplacer(
		"{customerName}", rec.CustomerName,
		"{status}", rec.Status.Title(),
		"{link}", link,
		"{orderCode}", rec.OrderCode,
	).Replace(text)
}

// splitSubject takes a leading "Subject:" line off a template.
func splitSubject(text string) (string, string) {
	first, rest, found := strings.Cut(text, "\n")
	if !strings.HasPrefix(first, "Subject:") {
		return "", text
	}
	subject := strings.TrimSpace(strings.TrimPrefix(first, "Subject:"))
	if !found {
		return subject, ""
	}
	return subject, strings.TrimLeft(rest, "\r\n")
}
