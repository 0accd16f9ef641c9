package core

import "testing"

func TestDedup(t *testing.T) {
	tests := []struct {
		name        string
		in          []OrderRecord
		wantNames   []string
		wantDropped int
	}{
		{
			name:        "empty",
			in:          nil,
			wantNames:   []string{},
			wantDropped: 0,
		},
		{
			name: "first occurrence wins",
			in: []OrderRecord{
				{OrderCode: "A", CustomerName: "first"},
				{OrderCode: "B", CustomerName: "b"},
				{OrderCode: "A", CustomerName: "second"},
			},
			wantNames:   []string{"first", "b"},
			wantDropped: 1,
		},
		{
			name: "order preserved",
			in: []OrderRecord{
				{OrderCode: "C", CustomerName: "c"},
				{OrderCode: "A", CustomerName: "a"},
				{OrderCode: "C", CustomerName: "c2"},
				{OrderCode: "B", CustomerName: "b"},
				{OrderCode: "A", CustomerName: "a2"},
			},
			wantNames:   []string{"c", "a", "b"},
			wantDropped: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dropped := Dedup(tt.in)
			if dropped != tt.wantDropped {
				t.Errorf("dropped = %d, want %d", dropped, tt.wantDropped)
			}
			if len(got) != len(tt.wantNames) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.wantNames))
			}
			for i, name := range tt.wantNames {
				if got[i].CustomerName != name {
					t.Errorf("got[%d] = %q, want %q", i, got[i].CustomerName, name)
				}
			}
		})
	}
}
