package notify

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/DeliverySync/internal/config"
	"github.com/JonMunkholm/DeliverySync/internal/core"
	"github.com/JonMunkholm/DeliverySync/internal/logging"
)

// Log writes messages to the structured log instead of sending them.
type Log struct {
	*Templates
}

// NewLog returns a log-only channel.
func NewLog(tpl *Templates) *Log {
	return &Log{Templates: tpl}
}

func (l *Log) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("notification",
		"to", to,
		"subject", subject,
		"body_bytes", len(body),
	)
	return nil
}

// New builds the channel named by cfg.Notify.Channel.
func New(cfg *config.Config) (core.Channel, error) {
	tpl := NewTemplates(cfg.Mail.TemplateDir)

	switch cfg.Notify.Channel {
	case "log":
		return NewLog(tpl), nil
	case "smtp":
		return NewSMTP(cfg.Mail, tpl)
	default:
		return nil, fmt.Errorf("unknown notification channel %q", cfg.Notify.Channel)
	}
}
