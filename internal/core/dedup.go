package core

// Dedup keeps the first record seen for each order code, preserving order.
// It returns the kept records and how many were dropped.
func Dedup(records []OrderRecord) ([]OrderRecord, int) {
	seen := make(map[string]struct{}, len(records))
	out := make([]OrderRecord, 0, len(records))

	for _, r := range records {
		if _, dup := seen[r.OrderCode]; dup {
			continue
		}
		seen[r.OrderCode] = struct{}{}
		out = append(out, r)
	}

	return out, len(records) - len(out)
}
