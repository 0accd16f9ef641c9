package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/DeliverySync/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Upload: config.UploadConfig{
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
		},
		Reconcile: config.ReconcileConfig{HeaderRows: 6, FooterRows: 2, MissingCodePolicy: "report"},
		Notify:    config.NotifyConfig{Enabled: true, BaseURL: "https://shop.example.com/orders"},
	}
}

type recordedRun struct {
	report *Report
	err    error
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []recordedRun
}

func (r *fakeRecorder) ObserveRun(report *Report, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, recordedRun{report, err})
}

func newTestService(t *testing.T, store *fakeStore, ch *fakeChannel, mutate ...func(*config.Config)) (*Service, *fakeRecorder) {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	rec := &fakeRecorder{}
	var channel Channel
	if ch != nil {
		channel = ch
	}
	svc, err := NewService(store, channel, cfg, WithRecorder(rec), WithClock(fixedClock))
	require.NoError(t, err)
	return svc, rec
}

func TestProcess_NewOrderOnEmptyStore(t *testing.T) {
	store := newFakeStore()
	ch := newFakeChannel()
	svc, rec := newTestService(t, store, ch)

	res, err := svc.Process(context.Background(), "export.xlsx",
		buildExport(t, exportRow("A1", "Ana", "ana@example.com", "PENDING")), ProcessOptions{})
	require.NoError(t, err)

	require.Len(t, res.NewItems, 1)
	assert.Equal(t, "A1", res.NewItems[0].OrderCode)
	assert.Equal(t, StatusPending, res.NewItems[0].Status)
	assert.NotEmpty(t, res.NewItems[0].ID)
	assert.Empty(t, res.UpdatedItems)

	stored, ok := store.get("A1")
	require.True(t, ok)
	assert.Equal(t, res.NewItems[0].ID, stored.ID)

	r := res.Report
	assert.NotEmpty(t, r.RunID)
	assert.Equal(t, "export.xlsx", r.FileName)
	assert.Equal(t, 1, r.RowsRead)
	assert.Equal(t, 1, r.New)
	assert.Equal(t, 1, r.NotificationsSent)
	assert.Empty(t, r.Issues)

	msgs := ch.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Body, "https://shop.example.com/orders/A1")

	require.Len(t, rec.runs, 1)
	assert.Same(t, r, rec.runs[0].report)
	assert.NoError(t, rec.runs[0].err)
}

func TestProcess_StatusChange(t *testing.T) {
	store := newFakeStore(OrderRecord{ID: "id-1", OrderCode: "A1", CustomerName: "Ana", CustomerEmail: "ana@example.com", Status: StatusPending})
	ch := newFakeChannel()
	svc, _ := newTestService(t, store, ch)

	res, err := svc.Process(context.Background(), "export.xlsx",
		buildExport(t, exportRow("A1", "Someone else", "x@example.com", "SHIPPED")), ProcessOptions{})
	require.NoError(t, err)

	assert.Empty(t, res.NewItems)
	require.Len(t, res.UpdatedItems, 1)
	upd := res.UpdatedItems[0]
	assert.Equal(t, StatusShipped, upd.Status)
	assert.Equal(t, fixedClock(), upd.LastUpdatedAt)
	assert.Equal(t, "Ana", upd.CustomerName)

	stored, _ := store.get("A1")
	assert.Equal(t, StatusShipped, stored.Status)
	assert.Equal(t, "Ana", stored.CustomerName)

	msgs := ch.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ana@example.com", msgs[0].To, "notification goes to the persisted customer")
	assert.Contains(t, msgs[0].Body, "Shipped")
}

func TestProcess_DuplicateCodesFirstWins(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store, nil)

	res, err := svc.Process(context.Background(), "export.xlsx", buildExport(t,
		exportRow("A1", "First", "a@example.com", "PENDING"),
		exportRow("A1", "Second", "b@example.com", "SHIPPED"),
	), ProcessOptions{})
	require.NoError(t, err)

	require.Len(t, res.NewItems, 1)
	assert.Equal(t, "First", res.NewItems[0].CustomerName)
	assert.Equal(t, StatusPending, res.NewItems[0].Status)
	assert.Equal(t, 1, res.Report.Duplicates)
	assert.Equal(t, 1, store.count())
}

func TestProcess_Idempotent(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store, nil)
	data := buildExport(t,
		exportRow("A1", "Ana", "ana@example.com", "PENDING"),
		exportRow("B2", "Bob", "bob@example.com", "SHIPPED"),
	)

	first, err := svc.Process(context.Background(), "export.xlsx", data, ProcessOptions{})
	require.NoError(t, err)
	require.Len(t, first.NewItems, 2)

	second, err := svc.Process(context.Background(), "export.xlsx", data, ProcessOptions{})
	require.NoError(t, err)
	assert.Empty(t, second.NewItems)
	assert.Empty(t, second.UpdatedItems)
	assert.Equal(t, 2, second.Report.Unchanged)
}

func TestProcess_ClassificationIsComplete(t *testing.T) {
	store := newFakeStore(
		OrderRecord{OrderCode: "U", Status: StatusPending},
		OrderRecord{OrderCode: "S", Status: StatusPending},
	)
	svc, _ := newTestService(t, store, nil)

	res, err := svc.Process(context.Background(), "export.xlsx", buildExport(t,
		exportRow("N", "n", "n@example.com", "PENDING"),
		exportRow("U", "u", "u@example.com", "DELIVERED"),
		exportRow("S", "s", "s@example.com", "PENDING"),
	), ProcessOptions{})
	require.NoError(t, err)

	r := res.Report
	assert.Equal(t, r.Candidates, r.New+r.Updated+r.Unchanged)
	assert.Equal(t, 1, r.New)
	assert.Equal(t, 1, r.Updated)
	assert.Equal(t, 1, r.Unchanged)
}

func TestProcess_DryRun(t *testing.T) {
	store := newFakeStore(OrderRecord{OrderCode: "A1", Status: StatusPending, CustomerEmail: "a@example.com"})
	ch := newFakeChannel()
	svc, _ := newTestService(t, store, ch)

	res, err := svc.Process(context.Background(), "export.xlsx", buildExport(t,
		exportRow("A1", "Ana", "a@example.com", "SHIPPED"),
		exportRow("B2", "Bob", "b@example.com", "PENDING"),
	), ProcessOptions{DryRun: true})
	require.NoError(t, err)

	assert.True(t, res.Report.DryRun)
	assert.Len(t, res.NewItems, 1)
	assert.Len(t, res.UpdatedItems, 1)
	assert.Empty(t, res.NewItems[0].ID)

	assert.Equal(t, 1, store.count())
	stored, _ := store.get("A1")
	assert.Equal(t, StatusPending, stored.Status)
	assert.Empty(t, ch.messages())
}

func TestProcess_InsertFailureReturnsPartialResult(t *testing.T) {
	store := newFakeStore(OrderRecord{OrderCode: "A1", Status: StatusPending, CustomerEmail: "a@example.com"})
	store.insertErr = errBoom
	ch := newFakeChannel()
	svc, rec := newTestService(t, store, ch)

	res, err := svc.Process(context.Background(), "export.xlsx", buildExport(t,
		exportRow("A1", "Ana", "a@example.com", "SHIPPED"),
		exportRow("B2", "Bob", "b@example.com", "PENDING"),
	), ProcessOptions{})

	var perr *PersistError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "insert", perr.Op)
	assert.Equal(t, []string{"B2"}, perr.Codes)

	require.NotNil(t, res)
	assert.Empty(t, res.NewItems)
	require.Len(t, res.UpdatedItems, 1)
	assert.Equal(t, 1, res.Report.IssueCount(IssuePersist))

	msgs := ch.messages()
	require.Len(t, msgs, 1, "only the persisted update is notified")
	assert.Equal(t, "a@example.com", msgs[0].To)

	require.Len(t, rec.runs, 1)
	assert.ErrorAs(t, rec.runs[0].err, &perr)
}

func TestProcess_UpdateFailureIsIsolated(t *testing.T) {
	store := newFakeStore(
		OrderRecord{OrderCode: "A", Status: StatusPending, CustomerEmail: "a@example.com"},
		OrderRecord{OrderCode: "B", Status: StatusPending, CustomerEmail: "b@example.com"},
	)
	store.updateErr["A"] = errBoom
	ch := newFakeChannel()
	svc, _ := newTestService(t, store, ch)

	res, err := svc.Process(context.Background(), "export.xlsx", buildExport(t,
		exportRow("A", "a", "a@example.com", "SHIPPED"),
		exportRow("B", "b", "b@example.com", "SHIPPED"),
	), ProcessOptions{})
	require.NoError(t, err)

	require.Len(t, res.UpdatedItems, 1)
	assert.Equal(t, "B", res.UpdatedItems[0].OrderCode)
	assert.Equal(t, 1, res.Report.IssueCount(IssuePersist))
	require.Len(t, ch.messages(), 1)
	assert.Equal(t, "b@example.com", ch.messages()[0].To)
}

func TestProcess_NotificationFailureDoesNotFailRun(t *testing.T) {
	store := newFakeStore()
	ch := newFakeChannel()
	ch.sendErr["a@example.com"] = errBoom
	svc, _ := newTestService(t, store, ch)

	res, err := svc.Process(context.Background(), "export.xlsx", buildExport(t,
		exportRow("A", "a", "a@example.com", "PENDING"),
		exportRow("B", "b", "b@example.com", "PENDING"),
	), ProcessOptions{})
	require.NoError(t, err)

	assert.Len(t, res.NewItems, 2)
	assert.Equal(t, 1, res.Report.NotificationsSent)
	assert.Equal(t, 1, res.Report.IssueCount(IssueNotification))
}

func TestProcess_NotificationsFollowRowOrder(t *testing.T) {
	store := newFakeStore(OrderRecord{ID: "id-1", OrderCode: "A1", CustomerEmail: "a@example.com", Status: StatusPending})
	ch := newFakeChannel()
	svc, _ := newTestService(t, store, ch)

	res, err := svc.Process(context.Background(), "export.xlsx", buildExport(t,
		exportRow("B2", "Bob", "b@example.com", "PENDING"),
		exportRow("A1", "Ana", "a@example.com", "SHIPPED"),
		exportRow("C3", "Cy", "c@example.com", "PENDING"),
	), ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Report.NotificationsSent)

	var to []string
	for _, m := range ch.messages() {
		to = append(to, m.To)
	}
	assert.Equal(t, []string{"b@example.com", "a@example.com", "c@example.com"}, to)
}

func TestProcess_CancelledDuringLookupPersistsNothing(t *testing.T) {
	store := newFakeStore()
	ch := newFakeChannel()
	svc, rec := newTestService(t, store, ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.onLookup = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	res, err := svc.Process(ctx, "export.xlsx", buildExport(t,
		exportRow("A", "a", "a@example.com", "PENDING"),
		exportRow("B", "b", "b@example.com", "PENDING"),
		exportRow("C", "c", "c@example.com", "PENDING"),
	), ProcessOptions{})
	require.ErrorIs(t, err, context.Canceled)

	require.NotNil(t, res)
	assert.Empty(t, res.NewItems)
	assert.Empty(t, res.UpdatedItems)
	assert.Zero(t, res.Report.New)
	assert.Zero(t, res.Report.Updated)
	assert.Equal(t, 2, res.Report.ClassifiedNew)
	assert.Zero(t, store.count())
	assert.Empty(t, ch.messages())

	require.Len(t, rec.runs, 1)
	assert.ErrorIs(t, rec.runs[0].err, context.Canceled)
}

func TestProcess_NotificationsDisabled(t *testing.T) {
	ch := newFakeChannel()
	svc, _ := newTestService(t, newFakeStore(), ch, func(c *config.Config) { c.Notify.Enabled = false })

	res, err := svc.Process(context.Background(), "export.xlsx",
		buildExport(t, exportRow("A", "a", "a@example.com", "PENDING")), ProcessOptions{})
	require.NoError(t, err)
	assert.Len(t, res.NewItems, 1)
	assert.Empty(t, ch.messages())
}

func TestProcess_FatalErrors(t *testing.T) {
	svc, rec := newTestService(t, newFakeStore(), nil, func(c *config.Config) {
		c.Reconcile.MissingCodePolicy = "fail"
	})

	res, err := svc.Process(context.Background(), "bad.xlsx", []byte("not a workbook"), ProcessOptions{})
	assert.Nil(t, res)
	var extErr *ExtractionError
	assert.ErrorAs(t, err, &extErr)

	res, err = svc.Process(context.Background(), "export.xlsx",
		buildExport(t, exportRow("", "a", "a@example.com", "PENDING")), ProcessOptions{})
	assert.Nil(t, res)
	var rowErr *InvalidRowError
	assert.ErrorAs(t, err, &rowErr)

	assert.Len(t, rec.runs, 2)
}

func TestProcess_BusyLimiter(t *testing.T) {
	svc, _ := newTestService(t, newFakeStore(), nil, func(c *config.Config) {
		c.Upload.MaxConcurrent = 1
		c.Upload.MaxWaitTime = 20 * time.Millisecond
	})

	require.NoError(t, svc.limiter.Acquire(context.Background()))
	defer svc.limiter.Release()

	_, err := svc.Process(context.Background(), "export.xlsx", buildExport(t), ProcessOptions{})
	assert.True(t, errors.Is(err, ErrTooManyUploads))
}

// Two runs that both classify the same code as new race on the insert. The
// store's uniqueness check lets exactly one of them win.
func TestProcess_ConcurrentSameCodeRace(t *testing.T) {
	store := newFakeStore()
	gate := &gatedStore{fakeStore: store, release: make(chan struct{}), looked: make(chan struct{}, 2)}
	svc, _ := newTestService(t, nil, nil)
	svc.store = gate
	svc.engine = NewEngine(gate, fixedClock)

	data := buildExport(t, exportRow("A1", "Ana", "ana@example.com", "PENDING"))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	results := make([]*Result, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Process(context.Background(), "export.xlsx", data, ProcessOptions{})
		}(i)
	}

	<-gate.looked
	<-gate.looked
	close(gate.release)
	wg.Wait()

	var wins, losses int
	for i := range errs {
		var perr *PersistError
		switch {
		case errs[i] == nil:
			wins++
			assert.Len(t, results[i].NewItems, 1)
		case errors.As(errs[i], &perr):
			losses++
			assert.Empty(t, results[i].NewItems)
		default:
			t.Fatalf("unexpected error: %v", errs[i])
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
	assert.Equal(t, 1, store.count())
}

// gatedStore holds every lookup until release is closed, so both runs see
// the order as absent.
type gatedStore struct {
	*fakeStore
	release chan struct{}
	looked  chan struct{}
}

func (g *gatedStore) FindByCode(ctx context.Context, code string) (*OrderRecord, error) {
	rec, err := g.fakeStore.FindByCode(ctx, code)
	g.looked <- struct{}{}
	<-g.release
	return rec, err
}

func TestGetByID(t *testing.T) {
	const id = "6f1c2f4e-8a43-4d3b-9a57-1f0e2b7c9d10"
	store := newFakeStore(OrderRecord{ID: id, OrderCode: "A1", Status: StatusPending})
	svc, _ := newTestService(t, store, nil)
	ctx := context.Background()

	got, err := svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "A1", got.OrderCode)

	got, err = svc.GetByID(ctx, " A1 ")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, err = svc.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetByCode(ctx, "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}
