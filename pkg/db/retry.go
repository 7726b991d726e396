package db

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

// TxRunner is the transactional surface shared by services.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RetryPolicy bounds how often a conflicted transaction is re-run.
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

// DefaultRetryPolicy mirrors the config defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, BaseDelay: 20 * time.Millisecond}
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = 20 * time.Millisecond
	}
	return retry.WithMaxRetries(p.MaxRetries, retry.NewExponential(base))
}

// RunWithRetry runs fn in a fresh transaction, re-running the whole
// transaction with exponential backoff while it fails with a retryable
// conflict. Non-retryable errors are returned as-is on the first attempt.
func RunWithRetry(ctx context.Context, runner TxRunner, policy RetryPolicy, fn func(tx *gorm.DB) error) error {
	return retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		err := runner.WithTx(ctx, fn)
		if IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// TranslateTxError maps the result of RunWithRetry onto the typed error
// surface. Conflicts that outlived the retry budget become CodeConflict, typed
// errors pass through and anything else is a dependency failure.
func TranslateTxError(err error, action string) error {
	if err == nil {
		return nil
	}
	if IsRetryable(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, action+": concurrent update, please retry")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
