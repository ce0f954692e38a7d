package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker is a small stateful breaker for upstream-endpoint
// protection. One instance guards one logical endpoint.
type CircuitBreaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	openTimeout      time.Duration
	halfOpenMaxReq   int
	logger           *logging.Logger

	state               CircuitState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
	halfOpenSuccesses   int

	totalCalls      uint64
	successfulCalls uint64
	failedCalls     uint64

	now func() time.Time
}

type CircuitStats struct {
	State           CircuitState
	TotalCalls      uint64
	SuccessfulCalls uint64
	FailedCalls     uint64
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, logger *logging.Logger) *CircuitBreaker {
	cfg = NormalizeCircuitBreakerConfig(cfg)
	if logger == nil {
		logger = logging.Default()
	}

	return &CircuitBreaker{
		name:             name,
		failureThreshold: cfg.FailureThreshold,
		openTimeout:      cfg.OpenTimeout,
		halfOpenMaxReq:   cfg.HalfOpenMaxReq,
		logger:           logger,
		state:            CircuitStateClosed,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed. An open circuit rejects with
// ErrCircuitOpen until the open timeout has elapsed, at which point one
// half-open probe window begins.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalCalls++

	now := b.now()
	if b.state == CircuitStateOpen {
		if now.Sub(b.openedAt) < b.openTimeout {
			b.failedCalls++
			return ErrCircuitOpen
		}
		b.transition(CircuitStateHalfOpen)
	}

	if b.state == CircuitStateHalfOpen {
		if b.halfOpenInFlight >= b.halfOpenMaxReq {
			b.failedCalls++
			return ErrCircuitOpen
		}
		b.halfOpenInFlight++
	}

	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successfulCalls++

	switch b.state {
	case CircuitStateClosed:
		b.consecutiveFailures = 0
	case CircuitStateHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.halfOpenMaxReq && b.halfOpenInFlight == 0 {
			b.transition(CircuitStateClosed)
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failedCalls++

	switch b.state {
	case CircuitStateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.failureThreshold {
			b.transition(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.transition(CircuitStateOpen)
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if b.now().Sub(b.openedAt) >= b.openTimeout {
			return CircuitStateHalfOpen
		}
	}

	return b.state
}

func (b *CircuitBreaker) Stats() CircuitStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return CircuitStats{
		State:           b.state,
		TotalCalls:      b.totalCalls,
		SuccessfulCalls: b.successfulCalls,
		FailedCalls:     b.failedCalls,
	}
}

func (b *CircuitBreaker) transition(next CircuitState) {
	prev := b.state
	b.state = next

	switch next {
	case CircuitStateClosed:
		b.consecutiveFailures = 0
		b.halfOpenInFlight = 0
		b.halfOpenSuccesses = 0
		b.openedAt = time.Time{}
	case CircuitStateOpen:
		b.openedAt = b.now()
		b.halfOpenInFlight = 0
		b.halfOpenSuccesses = 0
	case CircuitStateHalfOpen:
		b.halfOpenInFlight = 0
		b.halfOpenSuccesses = 0
	}

	b.logger.Info("circuit breaker state change",
		"breaker", b.name,
		"from", prev,
		"to", next,
		"consecutive_failures", b.consecutiveFailures,
	)
}
