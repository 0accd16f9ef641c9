package core

// extract.go turns an uploaded workbook into candidate order records.
//
// The export is not a general-purpose spreadsheet: the first sheet holds a
// fixed number of title rows, then one order per row in fixed column
// positions, then a fixed number of total rows. The positions come from a
// schema.Layout. Date columns hold either an Excel date serial or literal
// text; everything else is read as trimmed text.

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/DeliverySync/internal/schema"
)

// DateLayout is the output format of converted date serials (MM/DD/YYYY).
const DateLayout = "01/02/2006"

// fieldSetters assign a normalized cell value to its record field.
var fieldSetters = map[string]func(*OrderRecord, string){
	schema.ColOrderDate:     func(r *OrderRecord, v string) { r.OrderDate = v },
	schema.ColOrderCode:     func(r *OrderRecord, v string) { r.OrderCode = v },
	schema.ColCustomerCode:  func(r *OrderRecord, v string) { r.CustomerCode = v },
	schema.ColCustomerName:  func(r *OrderRecord, v string) { r.CustomerName = v },
	schema.ColCustomerEmail: func(r *OrderRecord, v string) { r.CustomerEmail = v },
	schema.ColCustomerPhone: func(r *OrderRecord, v string) { r.CustomerPhone = v },
	schema.ColSellerName:    func(r *OrderRecord, v string) { r.SellerName = v },
	schema.ColDeliveryDate:  func(r *OrderRecord, v string) { r.DeliveryDate = v },
	schema.ColCity:          func(r *OrderRecord, v string) { r.City = v },
	schema.ColState:         func(r *OrderRecord, v string) { r.State = v },
	schema.ColCarrierName:   func(r *OrderRecord, v string) { r.CarrierName = v },
	schema.ColStatus:        func(r *OrderRecord, v string) { r.Status = OrderStatus(v) },
}

// Extraction is the output of one extractor pass.
type Extraction struct {
	Records  []OrderRecord
	RowsRead int // data rows between the header and footer skips
	Skipped  int // rows dropped for a missing order code
	Issues   []Issue
}

// Extractor reads delivery exports according to a layout.
type Extractor struct {
	layout schema.Layout
	policy MissingCodePolicy
}

// NewExtractor validates the layout against the known record fields.
func NewExtractor(layout schema.Layout, policy MissingCodePolicy) (*Extractor, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	for _, c := range layout.Columns {
		if _, ok := fieldSetters[c.Field]; !ok {
			return nil, fmt.Errorf("layout %q: unknown field %q", layout.Name, c.Field)
		}
	}
	if layout.Index(schema.ColOrderCode) < 0 {
		return nil, fmt.Errorf("layout %q: no %s column", layout.Name, schema.ColOrderCode)
	}
	if _, ok := ParseMissingCodePolicy(string(policy)); !ok {
		return nil, fmt.Errorf("unknown missing code policy %q", policy)
	}
	return &Extractor{layout: layout, policy: policy}, nil
}

// Extract parses data and returns candidate records in sheet order.
// It fails with *ExtractionError when data is not a workbook, and with
// *InvalidRowError for a row without order code under MissingCodeFail.
func (e *Extractor) Extract(data []byte) (*Extraction, error) {
	if len(data) == 0 {
		return nil, &ExtractionError{Err: ErrEmptyFile}
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ExtractionError{Err: errors.New("workbook has no sheets")}
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ExtractionError{Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}

	out := &Extraction{}
	start, end := e.layout.HeaderRows, len(rows)-e.layout.FooterRows
	for i := start; i < end; i++ {
		row := rows[i]
		line := i + 1
		out.RowsRead++

		if isEmptyRow(row) {
			continue
		}

		rec, issues := e.buildRecord(f, sheet, line, row)

		if rec.OrderCode == "" {
			out.Skipped++
			rowErr := &InvalidRowError{Line: line, Field: schema.ColOrderCode, Reason: "missing order code"}
			switch e.policy {
			case MissingCodeFail:
				return nil, rowErr
			case MissingCodeReport:
				out.Issues = append(out.Issues, Issue{Kind: IssueInvalidRow, Line: line, Reason: rowErr.Error()})
			}
			continue
		}

		out.Issues = append(out.Issues, issues...)
		out.Records = append(out.Records, rec)
	}

	return out, nil
}

// buildRecord maps one row positionally. Short rows are padded with empty
// cells so a malformed row still yields a best-effort record.
func (e *Extractor) buildRecord(f *excelize.File, sheet string, line int, row []string) (OrderRecord, []Issue) {
	var rec OrderRecord
	var issues []Issue

	for col, spec := range e.layout.Columns {
		raw := ""
		if col < len(row) {
			raw = row[col]
		}

		var value string
		switch spec.Type {
		case schema.FieldDate:
			value = dateCell(f, sheet, col, line, raw)
		default:
			value = strings.TrimSpace(raw)
		}
		if spec.Transform != nil && value != "" {
			value = spec.Transform(value)
		}

		if spec.Field == schema.ColStatus {
			st, ok := ParseStatus(value)
			if !ok {
				issues = append(issues, Issue{
					Kind:   IssueUnrecognizedStatus,
					Line:   line,
					Reason: fmt.Sprintf("unrecognized status %q", value),
				})
			}
			value = string(st)
		}

		fieldSetters[spec.Field](&rec, value)
	}

	for i := range issues {
		issues[i].OrderCode = rec.OrderCode
	}
	return rec, issues
}

// dateCell converts a numeric cell holding an Excel date serial to
// MM/DD/YYYY. String cells and anything that does not convert are returned
// trimmed.
func dateCell(f *excelize.File, sheet string, col, line int, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	axis, err := excelize.CoordinatesToCellName(col+1, line)
	if err != nil {
		return trimmed
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil || !isNumericCellType(typ) {
		return trimmed
	}

	serial, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return trimmed
	}
	return FormatDateSerial(serial, trimmed)
}

// FormatDateSerial converts an Excel (1900 date system) serial to MM/DD/YYYY,
// returning fallback when the serial is out of range.
func FormatDateSerial(serial float64, fallback string) string {
	if serial <= 0 {
		return fallback
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return fallback
	}
	return t.Format(DateLayout)
}

func isNumericCellType(t excelize.CellType) bool {
	switch t {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		return true
	default:
		return false
	}
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
