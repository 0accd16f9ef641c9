package notify

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/DeliverySync/internal/config"
	"github.com/JonMunkholm/DeliverySync/internal/core"
)

func TestTemplates_Embedded(t *testing.T) {
	tpl := NewTemplates("")

	for _, name := range []string{core.TemplateOrderCreated, core.TemplateStatusUpdate} {
		text, err := tpl.Template(name)
		require.NoError(t, err, name)
		assert.True(t, strings.HasPrefix(text, "Subject:"), "%s should start with a subject line", name)
		assert.Contains(t, text, "{link}")
	}
}

func TestTemplates_DirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, core.TemplateOrderCreated+".txt"), []byte("custom {orderCode}"), 0o644))

	tpl := NewTemplates(dir)

	text, err := tpl.Template(core.TemplateOrderCreated)
	require.NoError(t, err)
	assert.Equal(t, "custom {orderCode}", text)

	text, err = tpl.Template(core.TemplateStatusUpdate)
	require.NoError(t, err, "missing override falls back to the built-in")
	assert.Contains(t, text, "{status}")
}

func TestTemplates_NotFound(t *testing.T) {
	tpl := NewTemplates(t.TempDir())

	for _, name := range []string{"order-shipped", "", "../secrets", "a/b"} {
		_, err := tpl.Template(name)
		assert.True(t, errors.Is(err, core.ErrTemplateNotFound), "Template(%q) error = %v", name, err)
	}
}

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage("Deliveries <no-reply@example.com>", "ana@example.com", "Order A1: Shipped", "Hello Ana")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "To: <ana@example.com>")
	assert.Contains(t, out, "Subject: Order A1: Shipped")
	assert.Contains(t, out, "Hello Ana")

	_, err = buildMessage("no-reply@example.com", "not an address", "s", "b")
	assert.Error(t, err)
}

func TestTLSPolicy(t *testing.T) {
	for _, s := range []string{"", "mandatory", "Opportunistic", "none"} {
		_, err := tlsPolicy(s)
		assert.NoError(t, err, s)
	}
	_, err := tlsPolicy("always")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	cfg := &config.Config{
		Notify: config.NotifyConfig{Channel: "log"},
		Mail:   config.MailConfig{Host: "smtp.example.com", Port: 2525, TLSPolicy: "none", From: "no-reply@example.com", Timeout: time.Second},
	}

	ch, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Log{}, ch)
	assert.NoError(t, ch.Send(context.Background(), "a@example.com", "s", "b"))

	cfg.Notify.Channel = "smtp"
	ch, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &SMTP{}, ch)

	cfg.Notify.Channel = "pigeon"
	_, err = New(cfg)
	assert.Error(t, err)
}
