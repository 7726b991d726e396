package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutboxDLQErrorReasonIsValid(t *testing.T) {
	assert.True(t, OutboxDLQReasonMaxAttempts.IsValid())
	assert.True(t, OutboxDLQReasonNonRetryable.IsValid())
	assert.False(t, OutboxDLQErrorReason("timeout").IsValid())
}

func TestOutboxAggregateTypesReturnsCopy(t *testing.T) {
	types := OutboxAggregateTypes()
	assert.Len(t, types, 3)
	types[0] = "tampered"
	assert.Equal(t, AggregateWallet, OutboxAggregateTypes()[0])
}
