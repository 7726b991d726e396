package enums

import "fmt"

// PurchaseOrderStatus tracks the lifecycle of a supplier purchase order.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusPending           PurchaseOrderStatus = "pending"
	PurchaseOrderStatusOrdered           PurchaseOrderStatus = "ordered"
	PurchaseOrderStatusShipped           PurchaseOrderStatus = "shipped"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "partially_received"
	PurchaseOrderStatusReceived          PurchaseOrderStatus = "received"
	PurchaseOrderStatusCancelled         PurchaseOrderStatus = "cancelled"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusPending,
	PurchaseOrderStatusOrdered,
	PurchaseOrderStatusShipped,
	PurchaseOrderStatusPartiallyReceived,
	PurchaseOrderStatusReceived,
	PurchaseOrderStatusCancelled,
}

// purchaseOrderTransitions lists every allowed status change. A status absent
// from a row's target set cannot be reached from that row.
var purchaseOrderTransitions = map[PurchaseOrderStatus][]PurchaseOrderStatus{
	PurchaseOrderStatusPending: {
		PurchaseOrderStatusOrdered,
		PurchaseOrderStatusPartiallyReceived,
		PurchaseOrderStatusReceived,
		PurchaseOrderStatusCancelled,
	},
	PurchaseOrderStatusOrdered: {
		PurchaseOrderStatusShipped,
		PurchaseOrderStatusPartiallyReceived,
		PurchaseOrderStatusReceived,
		PurchaseOrderStatusCancelled,
	},
	PurchaseOrderStatusShipped: {
		PurchaseOrderStatusPartiallyReceived,
		PurchaseOrderStatusReceived,
		PurchaseOrderStatusCancelled,
	},
	PurchaseOrderStatusPartiallyReceived: {
		PurchaseOrderStatusReceived,
		PurchaseOrderStatusCancelled,
	},
	PurchaseOrderStatusReceived: {
		PurchaseOrderStatusCancelled,
	},
	PurchaseOrderStatusCancelled: {},
}

// String implements fmt.Stringer.
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PurchaseOrderStatus.
func (s PurchaseOrderStatus) IsValid() bool {
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s PurchaseOrderStatus) CanTransitionTo(next PurchaseOrderStatus) bool {
	for _, candidate := range purchaseOrderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// AcceptsReceipts reports whether goods may still be booked against the order.
func (s PurchaseOrderStatus) AcceptsReceipts() bool {
	return s.IsValid() && s != PurchaseOrderStatusReceived && s != PurchaseOrderStatusCancelled
}

// ParsePurchaseOrderStatus converts raw input into a PurchaseOrderStatus.
func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	for _, candidate := range validPurchaseOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order status %q", value)
}
