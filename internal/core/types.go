package core

import "time"

// OrderRecord is one delivery/order. OrderCode is the natural key; once
// persisted only Status and LastUpdatedAt ever change.
type OrderRecord struct {
	ID            string      `json:"id,omitempty"`
	OrderCode     string      `json:"orderCode"`
	OrderDate     string      `json:"orderDate"`
	DeliveryDate  string      `json:"deliveryDate"`
	CustomerCode  string      `json:"customerCode"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	CustomerPhone string      `json:"customerPhone"`
	SellerName    string      `json:"sellerName"`
	City          string      `json:"city"`
	State         string      `json:"state"`
	CarrierName   string      `json:"carrierName"`
	Status        OrderStatus `json:"status"`
	LastUpdatedAt time.Time   `json:"lastUpdatedAt,omitzero"`
}

// MissingCodePolicy decides what happens to a data row without an order code.
type MissingCodePolicy string

const (
	// MissingCodeReport drops the row and records an invalid_row issue.
	MissingCodeReport MissingCodePolicy = "report"
	// MissingCodeSkip drops the row and only counts it.
	MissingCodeSkip MissingCodePolicy = "skip"
	// MissingCodeFail aborts the whole upload with an InvalidRowError.
	MissingCodeFail MissingCodePolicy = "fail"
)

// ParseMissingCodePolicy converts a configuration string to a policy.
func ParseMissingCodePolicy(s string) (MissingCodePolicy, bool) {
	switch p := MissingCodePolicy(s); p {
	case MissingCodeReport, MissingCodeSkip, MissingCodeFail:
		return p, true
	default:
		return "", false
	}
}

// IssueKind classifies a non-fatal problem recorded during a run.
type IssueKind string

const (
	IssueInvalidRow         IssueKind = "invalid_row"
	IssueUnrecognizedStatus IssueKind = "unrecognized_status"
	IssueLookup             IssueKind = "lookup"
	IssuePersist            IssueKind = "persist"
	IssueNotification       IssueKind = "notification"
)

// Issue is one isolated failure. Line is the 1-based sheet row, or 0 when the
// problem is not tied to a row.
type Issue struct {
	Kind      IssueKind `json:"kind"`
	Line      int       `json:"line,omitempty"`
	OrderCode string    `json:"orderCode,omitempty"`
	Reason    string    `json:"reason"`
}

// Report accumulates everything that happened during one run, including the
// failures that were isolated instead of aborting the batch.
type Report struct {
	RunID             string        `json:"runId"`
	FileName          string        `json:"fileName,omitempty"`
	DryRun            bool          `json:"dryRun,omitempty"`
	RowsRead          int           `json:"rowsRead"`
	Candidates        int           `json:"candidates"`
	Duplicates        int           `json:"duplicates"`
	SkippedRows       int           `json:"skippedRows"`
	New               int           `json:"new"`
	Updated           int           `json:"updated"`
	Unchanged         int           `json:"unchanged"`
	ClassifiedNew     int           `json:"classifiedNew"`
	ClassifiedUpdated int           `json:"classifiedUpdated"`
	NotificationsSent int           `json:"notificationsSent"`
	Issues            []Issue       `json:"issues"`
	Duration          time.Duration `json:"-"`
	DurationMs        int64         `json:"durationMs"`
}

func (r *Report) addIssues(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
}

// IssueCount returns how many issues of kind were recorded.
func (r *Report) IssueCount(kind IssueKind) int {
	n := 0
	for _, i := range r.Issues {
		if i.Kind == kind {
			n++
		}
	}
	return n
}

// Result is what an upload returns to its caller. NewItems and UpdatedItems
// hold only persisted records, except on a dry run where nothing is written
// and they hold the classification.
type Result struct {
	NewItems     []OrderRecord `json:"newItems"`
	UpdatedItems []OrderRecord `json:"updatedItems"`
	Report       *Report       `json:"report"`
}

// ProcessOptions tune a single run.
type ProcessOptions struct {
	// DryRun classifies records without persisting or notifying.
	DryRun bool
}
