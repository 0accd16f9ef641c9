package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_Scenarios(t *testing.T) {
	stored := OrderRecord{
		ID: "id-1", OrderCode: "A1", CustomerName: "Ana", CustomerEmail: "ana@example.com",
		City: "Springfield", Status: StatusPending,
	}

	tests := []struct {
		name          string
		stored        []OrderRecord
		candidate     OrderRecord
		wantNew       int
		wantUpdated   int
		wantUnchanged int
	}{
		{"unknown code is new", nil, OrderRecord{OrderCode: "A1", Status: StatusPending}, 1, 0, 0},
		{"same status is unchanged", []OrderRecord{stored}, OrderRecord{OrderCode: "A1", Status: StatusPending}, 0, 0, 1},
		{"different status is updated", []OrderRecord{stored}, OrderRecord{OrderCode: "A1", Status: StatusShipped}, 0, 1, 0},
		{"unrecognized never overwrites", []OrderRecord{stored}, OrderRecord{OrderCode: "A1", Status: StatusUnrecognized}, 0, 0, 1},
		{"unrecognized new record is still new", nil, OrderRecord{OrderCode: "A1", Status: StatusUnrecognized}, 1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(newFakeStore(tt.stored...), fixedClock)

			cls, err := engine.Reconcile(context.Background(), []OrderRecord{tt.candidate})
			require.NoError(t, err)

			assert.Len(t, cls.NewItems, tt.wantNew)
			assert.Len(t, cls.UpdatedItems, tt.wantUpdated)
			assert.Equal(t, tt.wantUnchanged, cls.Unchanged)
			assert.Empty(t, cls.Issues)
		})
	}
}

func TestReconcile_UpdateMutatesOnlyStatus(t *testing.T) {
	stored := OrderRecord{
		ID: "id-1", OrderCode: "A1", CustomerName: "Ana", CustomerEmail: "ana@example.com",
		City: "Springfield", Status: StatusPending,
	}
	candidate := OrderRecord{
		OrderCode: "A1", CustomerName: "Renamed", CustomerEmail: "other@example.com",
		City: "Elsewhere", Status: StatusDelivered,
	}

	cls, err := NewEngine(newFakeStore(stored), fixedClock).Reconcile(context.Background(), []OrderRecord{candidate})
	require.NoError(t, err)
	require.Len(t, cls.UpdatedItems, 1)

	got := cls.UpdatedItems[0]
	want := stored
	want.Status = StatusDelivered
	want.LastUpdatedAt = fixedClock()
	assert.Equal(t, want, got)
}

func TestReconcile_NewItemIsCandidateAsIs(t *testing.T) {
	candidate := OrderRecord{OrderCode: "N1", CustomerName: "New", Status: StatusConfirmed}

	cls, err := NewEngine(newFakeStore(), fixedClock).Reconcile(context.Background(), []OrderRecord{candidate})
	require.NoError(t, err)
	require.Len(t, cls.NewItems, 1)
	assert.Equal(t, candidate, cls.NewItems[0])
}

func TestReconcile_LookupFailureIsIsolated(t *testing.T) {
	store := newFakeStore()
	store.findErr["B"] = errBoom

	records := []OrderRecord{
		{OrderCode: "A", Status: StatusPending},
		{OrderCode: "B", Status: StatusPending},
		{OrderCode: "C", Status: StatusPending},
	}

	cls, err := NewEngine(store, fixedClock).Reconcile(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, cls.NewItems, 2)
	assert.Equal(t, "A", cls.NewItems[0].OrderCode)
	assert.Equal(t, "C", cls.NewItems[1].OrderCode)
	require.Len(t, cls.Issues, 1)
	assert.Equal(t, IssueLookup, cls.Issues[0].Kind)
	assert.Equal(t, "B", cls.Issues[0].OrderCode)
}

func TestReconcile_OneLookupPerRecordInOrder(t *testing.T) {
	store := newFakeStore()
	records := []OrderRecord{{OrderCode: "Z"}, {OrderCode: "A"}, {OrderCode: "M"}}

	_, err := NewEngine(store, fixedClock).Reconcile(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, []string{"Z", "A", "M"}, store.lookups)
}

func TestReconcile_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cls, err := NewEngine(newFakeStore(), fixedClock).Reconcile(ctx, []OrderRecord{{OrderCode: "A"}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, cls.NewItems)
}

func TestReconcile_EmptyInput(t *testing.T) {
	cls, err := NewEngine(newFakeStore(), nil).Reconcile(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, cls.NewItems)
	assert.NotNil(t, cls.UpdatedItems)
	assert.Empty(t, cls.NewItems)
	assert.Empty(t, cls.UpdatedItems)
}

func TestReconcile_OutcomesFollowInputOrder(t *testing.T) {
	store := newFakeStore(OrderRecord{OrderCode: "A1", Status: StatusPending})
	records := []OrderRecord{
		{OrderCode: "B2", Status: StatusPending},
		{OrderCode: "A1", Status: StatusShipped},
		{OrderCode: "C3", Status: StatusPending},
	}

	cls, err := NewEngine(store, fixedClock).Reconcile(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, cls.Outcomes, 3)
	assert.Equal(t, OutcomeCreated, cls.Outcomes[0].Kind)
	assert.Equal(t, "B2", cls.Outcomes[0].Record.OrderCode)
	assert.Equal(t, OutcomeUpdated, cls.Outcomes[1].Kind)
	assert.Equal(t, "A1", cls.Outcomes[1].Record.OrderCode)
	assert.Equal(t, OutcomeCreated, cls.Outcomes[2].Kind)
	assert.Equal(t, "C3", cls.Outcomes[2].Record.OrderCode)
}
