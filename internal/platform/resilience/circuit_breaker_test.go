package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

func newTestBreaker(threshold int, openTimeout time.Duration, halfOpenMax int) *CircuitBreaker {
	return NewCircuitBreaker("test", CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: threshold,
		OpenTimeout:      openTimeout,
		HalfOpenMaxReq:   halfOpenMax,
	}, logging.NewNop())
}

func TestCircuitBreaker_BasicTransitions(t *testing.T) {
	b := newTestBreaker(2, 5*time.Second, 1)

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	if err := b.Allow(); err != nil {
		t.Fatalf("expected allow in closed state: %v", err)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after first failure, got %s", state)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after threshold failures, got %s", state)
	}

	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}

	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if state := b.State(); state != CircuitStateHalfOpen {
		t.Fatalf("expected half-open state, got %s", state)
	}

	b.RecordSuccess()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after successful half-open probe, got %s", state)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := newTestBreaker(1, 5*time.Second, 1)

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open, got %s", state)
	}

	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected re-open after failed probe, got %s", state)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	b := newTestBreaker(1, 5*time.Second, 1)

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(6 * time.Second)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected first probe allowed: %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected second probe rejected, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newTestBreaker(2, 5*time.Second, 1)

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()

	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed, got %s", state)
	}
}

func TestCircuitBreaker_Stats(t *testing.T) {
	b := newTestBreaker(2, 5*time.Second, 1)

	_ = b.Allow()
	b.RecordSuccess()
	_ = b.Allow()
	b.RecordFailure()

	stats := b.Stats()
	if stats.TotalCalls != 2 {
		t.Fatalf("expected 2 total calls, got %d", stats.TotalCalls)
	}
	if stats.SuccessfulCalls != 1 {
		t.Fatalf("expected 1 successful call, got %d", stats.SuccessfulCalls)
	}
	if stats.FailedCalls != 1 {
		t.Fatalf("expected 1 failed call, got %d", stats.FailedCalls)
	}
}
