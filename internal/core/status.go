package core

// OrderStatus is the closed set of delivery states exported by the ERP.
type OrderStatus string

const (
	StatusPending        OrderStatus = "PENDING"
	StatusConfirmed      OrderStatus = "CONFIRMED"
	StatusInvoiced       OrderStatus = "INVOICED"
	StatusSeparating     OrderStatus = "SEPARATING"
	StatusShipped        OrderStatus = "SHIPPED"
	StatusInTransit      OrderStatus = "IN_TRANSIT"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCanceled       OrderStatus = "CANCELED"
	StatusReturned       OrderStatus = "RETURNED"

	// StatusUnrecognized marks a status cell that matched no known key.
	StatusUnrecognized OrderStatus = "UNRECOGNIZED"
)

var statusTitles = map[OrderStatus]string{
	StatusPending:        "Pending",
	StatusConfirmed:      "Confirmed",
	StatusInvoiced:       "Invoiced",
	StatusSeparating:     "Being separated",
	StatusShipped:        "Shipped",
	StatusInTransit:      "In transit",
	StatusOutForDelivery: "Out for delivery",
	StatusDelivered:      "Delivered",
	StatusCanceled:       "Canceled",
	StatusReturned:       "Returned",
}

// ParseStatus maps spreadsheet text to a status by exact key match.
// Unknown text yields StatusUnrecognized and false.
func ParseStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	if _, ok := statusTitles[st]; ok {
		return st, true
	}
	return StatusUnrecognized, false
}

// Valid reports whether s is a member of the closed set.
func (s OrderStatus) Valid() bool {
	_, ok := statusTitles[s]
	return ok
}

// Title returns the human-readable name used in notifications.
func (s OrderStatus) Title() string {
	if t, ok := statusTitles[s]; ok {
		return t
	}
	return "Unrecognized status"
}

// Statuses returns the known statuses in lifecycle order.
func Statuses() []OrderStatus {
	return []OrderStatus{
		StatusPending, StatusConfirmed, StatusInvoiced, StatusSeparating, StatusShipped,
		StatusInTransit, StatusOutForDelivery, StatusDelivered, StatusCanceled, StatusReturned,
	}
}
