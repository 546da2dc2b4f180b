package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := newRetryPolicy(Options{MaxRetries: 5, RetryBackoff: time.Millisecond}).do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not ready")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	want := errors.New("refused")
	err := newRetryPolicy(Options{MaxRetries: 2, RetryBackoff: time.Millisecond}).do(context.Background(), func(context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newRetryPolicy(Options{MaxRetries: 3, RetryBackoff: time.Hour}).do(ctx, func(context.Context) error {
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := newRetryPolicy(Options{MaxRetries: 5, RetryBackoff: time.Millisecond}).do(context.Background(), func(context.Context) error {
		calls++
		return &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}
	})
	if !permanent(err) || calls != 1 {
		t.Fatalf("calls = %d err = %v", calls, err)
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	r := newRetryPolicy(Options{MaxRetries: -1})
	if r.maxRetries != 0 || r.backoff != defaultRetryBackoff || r.maxBackoff != maxRetryBackoff {
		t.Fatalf("unexpected policy: %+v", r)
	}
	if r := newRetryPolicy(Options{RetryBackoff: time.Minute}); r.maxBackoff != time.Minute {
		t.Fatalf("backoff above the cap should raise it: %+v", r)
	}
}

func TestParseU64(t *testing.T) {
	if got, err := parseU64("x", u64(18446744073709551615)); err != nil || got != 18446744073709551615 {
		t.Fatalf("round trip max: %d %v", got, err)
	}
	if _, err := parseU64("x", "-1"); err == nil {
		t.Fatalf("expected error for negative value")
	}
}
