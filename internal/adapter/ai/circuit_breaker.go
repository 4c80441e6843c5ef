package ai

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
)

// CircuitState is the breaker position for one backend.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

var circuitStateNames = [...]string{"closed", "open", "half-open"}

func (cs CircuitState) String() string {
	if cs < 0 || int(cs) >= len(circuitStateNames) {
		return "unknown"
	}
	return circuitStateNames[cs]
}

const (
	defaultFailureThreshold = 3
	defaultRecoveryTimeout  = 30 * time.Second
)

// CircuitBreaker guards one provider backend. After failureThreshold
// consecutive failures it opens; once recoveryTimeout has passed a single
// probe is let through and its result closes or re-opens the circuit.
type CircuitBreaker struct {
	mu               sync.Mutex
	backend          string
	failureThreshold int
	recoveryTimeout  time.Duration
	state            CircuitState
	failureCount     int
	openedAt         time.Time
	now              func() time.Time
}

// NewCircuitBreaker returns a closed breaker with the default policy.
func NewCircuitBreaker(backend string) *CircuitBreaker {
	return &CircuitBreaker{
		backend:          backend,
		failureThreshold: defaultFailureThreshold,
		recoveryTimeout:  defaultRecoveryTimeout,
		now:              time.Now,
	}
}

// ShouldAttempt reports whether a call may be made now. An open circuit whose
// recovery timeout elapsed moves to half-open and admits exactly one probe.
func (cb *CircuitBreaker) ShouldAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) <= cb.recoveryTimeout {
			return false
		}
		cb.transition(CircuitHalfOpen)
		return true
	}
	// a probe is already in flight
	return false
}

// RecordSuccess closes the circuit and clears the failure streak.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	if cb.state != CircuitClosed {
		cb.transition(CircuitClosed)
	}
}

// RecordFailure extends the failure streak; a failed probe re-opens at once.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	if cb.state != CircuitHalfOpen && cb.failureCount < cb.failureThreshold {
		return
	}
	cb.openedAt = cb.now()
	if cb.state != CircuitOpen {
		cb.transition(CircuitOpen)
	}
}

// GetState returns the current circuit state.
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to CircuitState) {
	slog.Info("provider circuit state changed",
		slog.String("backend", cb.backend),
		slog.String("from", cb.state.String()),
		slog.String("to", to.String()),
		slog.Int("failure_count", cb.failureCount))
	cb.state = to
	observability.ProviderCircuitState(cb.backend, int(to))
}
