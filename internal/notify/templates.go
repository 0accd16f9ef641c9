// Package notify implements core.Channel: an SMTP sender built on go-mail and
// a log-only sender, both reading plain-text message templates.
package notify

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/DeliverySync/internal/core"
)

//go:embed templates/*.txt
var defaultTemplates embed.FS

// Templates loads "<name>.txt" from an override directory, falling back to
// the built-in set.
type Templates struct {
	dir string
}

// NewTemplates reads overrides from dir; an empty dir uses only the built-ins.
func NewTemplates(dir string) *Templates {
	return &Templates{dir: dir}
}

// Template returns the raw template text. Unknown names wrap
// core.ErrTemplateNotFound.
func (t *Templates) Template(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: invalid name %q", core.ErrTemplateNotFound, name)
	}
	file := name + ".txt"

	if t.dir != "" {
		b, err := os.ReadFile(filepath.Join(t.dir, file))
		if err == nil {
			return string(b), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read template %s: %w", name, err)
		}
	}

	b, err := defaultTemplates.ReadFile("templates/" + file)
	if err != nil {
		return "", fmt.Errorf("%w: %s", core.ErrTemplateNotFound, name)
	}
	return string(b), nil
}
