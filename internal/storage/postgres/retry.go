package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	defaultRetryBackoff = 100 * time.Millisecond
	maxRetryBackoff     = 10 * time.Second
)

// retryPolicy retries transient connection failures with doubling backoff
// capped at maxBackoff.
type retryPolicy struct {
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
}

func newRetryPolicy(opts Options) retryPolicy {
	r := retryPolicy{
		maxRetries: opts.MaxRetries,
		backoff:    opts.RetryBackoff,
		maxBackoff: maxRetryBackoff,
	}
	if r.maxRetries < 0 {
		r.maxRetries = 0
	}
	if r.backoff <= 0 {
		r.backoff = defaultRetryBackoff
	}
	if r.backoff > r.maxBackoff {
		r.maxBackoff = r.backoff
	}
	return r
}

func (r retryPolicy) do(ctx context.Context, fn func(context.Context) error) error {
	delay := r.backoff
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil || permanent(err) || attempt >= r.maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, r.maxBackoff)
	}
}

// permanent reports server errors a retry cannot fix: rejected credentials
// (class 28) or a missing database (class 3D).
func permanent(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || len(pgErr.Code) < 2 {
		return false
	}
	switch pgErr.Code[:2] {
	case "28", "3D":
		return true
	}
	return false
}
