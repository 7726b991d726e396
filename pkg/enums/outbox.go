package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column on outbox rows.
type OutboxAggregateType string

const (
	AggregateWallet        OutboxAggregateType = "wallet"
	AggregatePurchaseOrder OutboxAggregateType = "purchase_order"
	AggregateExchangeRate  OutboxAggregateType = "exchange_rate"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateWallet,
	AggregatePurchaseOrder,
	AggregateExchangeRate,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxAggregateTypes lists every aggregate that can emit outbox events.
func OutboxAggregateTypes() []OutboxAggregateType {
	out := make([]OutboxAggregateType, len(validAggregateTypes))
	copy(out, validAggregateTypes)
	return out
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column on outbox rows.
type OutboxEventType string

const (
	EventWalletCreated             OutboxEventType = "wallet_created"
	EventWalletAdjusted            OutboxEventType = "wallet_adjusted"
	EventWalletTransferCompleted   OutboxEventType = "wallet_transfer_completed"
	EventPurchaseOrderCreated      OutboxEventType = "purchase_order_created"
	EventPurchaseOrderUpdated      OutboxEventType = "purchase_order_updated"
	EventPurchaseOrderStatusChange OutboxEventType = "purchase_order_status_changed"
	EventPurchaseOrderReceived     OutboxEventType = "purchase_order_received"
	EventPurchaseOrderCancelled    OutboxEventType = "purchase_order_cancelled"
	EventPurchaseOrderDeleted      OutboxEventType = "purchase_order_deleted"
	EventExchangeRateChanged       OutboxEventType = "exchange_rate_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventWalletCreated,
	EventWalletAdjusted,
	EventWalletTransferCompleted,
	EventPurchaseOrderCreated,
	EventPurchaseOrderUpdated,
	EventPurchaseOrderStatusChange,
	EventPurchaseOrderReceived,
	EventPurchaseOrderCancelled,
	EventPurchaseOrderDeleted,
	EventExchangeRateChanged,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why an event was moved to the dead-letter table.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts marks events whose retryable failures ran out of attempts.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable marks events the publisher can never deliver as stored.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

// IsValid reports whether the value matches the outbox_dlq.error_reason check constraint.
func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
