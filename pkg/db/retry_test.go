package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

type countingRunner struct {
	calls int
}

func (r *countingRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.calls++
	return fn(nil)
}

func fastPolicy(retries uint64) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, BaseDelay: time.Millisecond}
}

func TestRunWithRetryRetriesStaleWrites(t *testing.T) {
	runner := &countingRunner{}
	attempts := 0

	err := RunWithRetry(context.Background(), runner, fastPolicy(3), func(tx *gorm.DB) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("update wallet: %w", ErrStaleWrite)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, runner.calls)
}

func TestRunWithRetryStopsOnBusinessError(t *testing.T) {
	runner := &countingRunner{}
	boom := errors.New("insufficient balance")

	err := RunWithRetry(context.Background(), runner, fastPolicy(5), func(tx *gorm.DB) error {
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, runner.calls)
}

func TestRunWithRetryGivesUpAfterMaxRetries(t *testing.T) {
	runner := &countingRunner{}

	err := RunWithRetry(context.Background(), runner, fastPolicy(2), func(tx *gorm.DB) error {
		return ErrStaleWrite
	})

	require.ErrorIs(t, err, ErrStaleWrite)
	assert.Equal(t, 3, runner.calls)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(fmt.Errorf("wrap: %w", ErrStaleWrite)))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsRetryable(errors.New("database is locked")))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}, ""))
	assert.True(t, IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "stock_levels_item_location_key"`), "stock_levels_item_location_key"))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestTranslateTxError(t *testing.T) {
	assert.NoError(t, TranslateTxError(nil, "transfer"))

	err := TranslateTxError(fmt.Errorf("update wallet: %w", ErrStaleWrite), "transfer")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.ErrorIs(t, err, ErrStaleWrite)

	typed := pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient balance")
	assert.Same(t, typed, TranslateTxError(typed, "transfer"))

	err = TranslateTxError(errors.New("connection reset"), "transfer")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
