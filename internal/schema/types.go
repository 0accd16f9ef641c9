// Package schema describes the positional layout of spreadsheet exports.
//
// A Layout is pure data: the extractor in core walks its columns in order and
// never hard-codes a position, so a change in the export format is a change to
// a Layout value rather than to parsing code.
package schema

import "fmt"

// FieldType represents how a spreadsheet cell is interpreted.
type FieldType int

const (
	FieldText FieldType = iota
	FieldDate
	FieldEnum
)

func (t FieldType) String() string {
	switch t {
	case FieldDate:
		return "date"
	case FieldEnum:
		return "enum"
	default:
		return "text"
	}
}

// Column describes one positional column of an export.
type Column struct {
	Field     string              // Record field key, see the Col* constants
	Label     string              // Human label used in error messages
	Type      FieldType           // How the raw cell is interpreted
	Required  bool                // Row is unusable when the value is empty
	Transform func(string) string // Optional, applied after trimming
}

// Layout is the structural contract of an export: how many leading and
// trailing rows are not data, and which field each column position holds.
type Layout struct {
	Name       string
	HeaderRows int
	FooterRows int
	Columns    []Column
}

// Width returns the number of positional columns.
func (l Layout) Width() int {
	return len(l.Columns)
}

// Index returns the position of a field, or -1 if the layout lacks it.
func (l Layout) Index(field string) int {
	for i, c := range l.Columns {
		if c.Field == field {
			return i
		}
	}
	return -1
}

// WithSkips returns a copy of the layout with different header/footer counts.
// Negative values keep the current setting.
func (l Layout) WithSkips(header, footer int) Layout {
	out := l
	out.Columns = append([]Column(nil), l.Columns...)
	if header >= 0 {
		out.HeaderRows = header
	}
	if footer >= 0 {
		out.FooterRows = footer
	}
	return out
}

// Validate reports structural problems such as duplicate fields.
func (l Layout) Validate() error {
	if len(l.Columns) == 0 {
		return fmt.Errorf("layout %q has no columns", l.Name)
	}
	if l.HeaderRows < 0 || l.FooterRows < 0 {
		return fmt.Errorf("layout %q has negative row skips", l.Name)
	}
	seen := make(map[string]bool, len(l.Columns))
	for i, c := range l.Columns {
		if c.Field == "" {
			return fmt.Errorf("layout %q column %d has no field", l.Name, i)
		}
		if seen[c.Field] {
			return fmt.Errorf("layout %q maps field %q twice", l.Name, c.Field)
		}
		seen[c.Field] = true
	}
	return nil
}
