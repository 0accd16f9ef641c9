package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

// fakeStore is an in-memory Store with per-method error injection.
type fakeStore struct {
	mu      sync.Mutex
	byCode  map[string]OrderRecord
	lookups []string

	findErr   map[string]error
	onLookup  func(n int)
	insertErr error
	updateErr map[string]error
}

func newFakeStore(records ...OrderRecord) *fakeStore {
	s := &fakeStore{
		byCode:    make(map[string]OrderRecord),
		findErr:   make(map[string]error),
		updateErr: make(map[string]error),
	}
	for _, r := range records {
		s.byCode[r.OrderCode] = r
	}
	return s
}

func (s *fakeStore) FindByCode(ctx context.Context, code string) (*OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, code)
	if s.onLookup != nil {
		s.onLookup(len(s.lookups))
	}
	if err := s.findErr[code]; err != nil {
		return nil, err
	}
	r, ok := s.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (*OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.byCode {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) InsertMany(ctx context.Context, records []OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, r := range records {
		if _, dup := s.byCode[r.OrderCode]; dup {
			return fmt.Errorf("duplicate key value violates unique constraint (order_code=%s)", r.OrderCode)
		}
	}
	for _, r := range records {
		s.byCode[r.OrderCode] = r
	}
	return nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, code string, status OrderStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateErr[code]; err != nil {
		return err
	}
	r, ok := s.byCode[code]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	r.LastUpdatedAt = at
	s.byCode[code] = r
	return nil
}

func (s *fakeStore) get(code string) (OrderRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byCode[code]
	return r, ok
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byCode)
}

type sentMessage struct {
	To, Subject, Body string
}

// fakeChannel records every message it is asked to send.
type fakeChannel struct {
	mu        sync.Mutex
	templates map[string]string
	sendErr   map[string]error // keyed by recipient
	sent      []sentMessage
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		templates: map[string]string{
			TemplateOrderCreated: "Subject: Order {orderCode} received\nHi {customerName}, track it at {link}",
			TemplateStatusUpdate: "Hi {customerName}, your order is now {status}. {link}",
		},
		sendErr: make(map[string]error),
	}
}

func (c *fakeChannel) Template(name string) (string, error) {
	t, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return t, nil
}

func (c *fakeChannel) Send(ctx context.Context, to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sendErr[to]; err != nil {
		return err
	}
	c.sent = append(c.sent, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (c *fakeChannel) messages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMessage(nil), c.sent...)
}

var errBoom = errors.New("boom")

// exportRow builds one data row in export column order.
func exportRow(code, name, email, status string) []any {
	return []any{
		float64(45000), code, "C-" + code, name, email, "555-0100",
		"Seller", "04/01/2023", "Springfield", "IL", status, "FastShip",
	}
}

// buildExport writes a workbook with the usual six title rows and two total
// rows around data.
func buildExport(t *testing.T, data ...[]any) []byte {
	t.Helper()
	rows := make([][]any, 0, len(data)+8)
	for i := 0; i < 6; i++ {
		rows = append(rows, []any{fmt.Sprintf("Delivery report header %d", i+1)})
	}
	rows = append(rows, data...)
	rows = append(rows, []any{"Total orders", len(data)}, []any{"Generated by ERP"})
	return buildWorkbook(t, rows)
}

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}
