package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseOrderTransitionTable(t *testing.T) {
	allowed := map[PurchaseOrderStatus][]PurchaseOrderStatus{
		PurchaseOrderStatusPending:           {PurchaseOrderStatusOrdered, PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusReceived, PurchaseOrderStatusCancelled},
		PurchaseOrderStatusOrdered:           {PurchaseOrderStatusShipped, PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusReceived, PurchaseOrderStatusCancelled},
		PurchaseOrderStatusShipped:           {PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusReceived, PurchaseOrderStatusCancelled},
		PurchaseOrderStatusPartiallyReceived: {PurchaseOrderStatusReceived, PurchaseOrderStatusCancelled},
		PurchaseOrderStatusReceived:          {PurchaseOrderStatusCancelled},
		PurchaseOrderStatusCancelled:         {},
	}

	for _, from := range validPurchaseOrderStatuses {
		targets := allowed[from]
		for _, to := range validPurchaseOrderStatuses {
			want := false
			for _, candidate := range targets {
				if candidate == to {
					want = true
				}
			}
			assert.Equalf(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestPurchaseOrderTransitionTableIsExhaustive(t *testing.T) {
	for _, status := range validPurchaseOrderStatuses {
		_, ok := purchaseOrderTransitions[status]
		assert.Truef(t, ok, "missing transition row for %s", status)
	}
}

func TestPurchaseOrderStatusAcceptsReceipts(t *testing.T) {
	assert.True(t, PurchaseOrderStatusPending.AcceptsReceipts())
	assert.True(t, PurchaseOrderStatusPartiallyReceived.AcceptsReceipts())
	assert.False(t, PurchaseOrderStatusReceived.AcceptsReceipts())
	assert.False(t, PurchaseOrderStatusCancelled.AcceptsReceipts())
	assert.False(t, PurchaseOrderStatus("bogus").AcceptsReceipts())
}

func TestParseCurrency(t *testing.T) {
	got, err := ParseCurrency(" srd ")
	require.NoError(t, err)
	assert.Equal(t, CurrencySRD, got)

	_, err = ParseCurrency("EUR")
	require.Error(t, err)
}
