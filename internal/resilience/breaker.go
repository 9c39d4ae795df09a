// Package resilience guards the model-call path against a flapping
// provider. The audit pipeline has its own quota fallback; the breaker's
// job is to stop hammering the API during sustained transient failure.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the state of the breaker
type State int32

const (
	// StateClosed - requests flow normally
	StateClosed State = iota
	// StateOpen - requests are rejected immediately
	StateOpen
	// StateHalfOpen - probing whether the provider has recovered
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when the breaker is rejecting calls.
var ErrOpen = errors.New("model call breaker is open")

// Config holds breaker tuning.
type Config struct {
	// Name identifies this breaker in logs and state-change callbacks.
	Name string

	// ProbeRequests is the number of calls allowed through in half-open
	// state before the breaker decides.
	ProbeRequests uint32

	// Interval clears closed-state counts so old failures age out. Zero
	// means counts accumulate until a trip.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// ReadyToTrip decides when accumulated failures open the circuit.
	ReadyToTrip func(counts Counts) bool

	// OnStateChange is called on every transition.
	OnStateChange func(name string, from, to State)

	// CountsAsFailure decides whether an error should count against the
	// provider. Quota errors, for example, are provider policy rather than
	// instability and should not trip the breaker.
	CountsAsFailure func(err error) bool
}

// DefaultConfig returns the tuning used for the model caller.
func DefaultConfig(name string) Config {
	return Config{
		Name:          name,
		ProbeRequests: 2,
		Interval:      60 * time.Second,
		Timeout:       30 * time.Second,
		ReadyToTrip: func(counts Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.Failures)/float64(counts.Requests) >= 0.6
		},
		CountsAsFailure: func(err error) bool {
			return err != nil
		},
	}
}

// Counts holds request outcomes for the current generation.
type Counts struct {
	Requests             uint32
	Successes            uint32
	Failures             uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (c *Counts) onSuccess() {
	c.Successes++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) onFailure() {
	c.Failures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// Breaker implements the circuit breaker state machine.
type Breaker struct {
	name            string
	probeRequests   uint32
	interval        time.Duration
	timeout         time.Duration
	readyToTrip     func(counts Counts) bool
	onStateChange   func(name string, from, to State)
	countsAsFailure func(err error) bool

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
	probes     uint32
}

// New creates a breaker from config, filling zero fields with defaults.
func New(config Config) *Breaker {
	defaults := DefaultConfig(config.Name)
	if config.ProbeRequests == 0 {
		config.ProbeRequests = defaults.ProbeRequests
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.ReadyToTrip == nil {
		config.ReadyToTrip = defaults.ReadyToTrip
	}
	if config.CountsAsFailure == nil {
		config.CountsAsFailure = defaults.CountsAsFailure
	}

	b := &Breaker{
		name:            config.Name,
		probeRequests:   config.ProbeRequests,
		interval:        config.Interval,
		timeout:         config.Timeout,
		readyToTrip:     config.ReadyToTrip,
		onStateChange:   config.OnStateChange,
		countsAsFailure: config.CountsAsFailure,
	}
	b.toNewGeneration(time.Now())
	return b
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, _ := b.currentState(time.Now())
	return state
}

// Counts returns current counts for monitoring.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn if the breaker allows it. The returned string is whatever fn
// produced; its error passes through untouched so callers can still
// classify it.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	generation, err := b.beforeRequest()
	if err != nil {
		return "", err
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	result, err := fn(ctx)
	b.afterRequest(generation, !b.countsAsFailure(err))
	return result, err
}

func (b *Breaker) beforeRequest() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, generation := b.currentState(now)

	switch state {
	case StateOpen:
		return generation, ErrOpen
	case StateHalfOpen:
		if b.probes >= b.probeRequests {
			return generation, ErrOpen
		}
		b.probes++
	}

	b.counts.Requests++
	return generation, nil
}

func (b *Breaker) afterRequest(before uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, generation := b.currentState(now)

	// Generation changed mid-flight; counts were already cleared.
	if generation != before {
		return
	}

	if success {
		b.onSuccess(state, now)
	} else {
		b.onFailure(state, now)
	}
}

func (b *Breaker) onSuccess(state State, now time.Time) {
	switch state {
	case StateClosed:
		b.counts.onSuccess()
	case StateHalfOpen:
		b.counts.onSuccess()
		if b.counts.ConsecutiveSuccesses >= b.probeRequests {
			b.setState(StateClosed, now)
		}
	}
}

func (b *Breaker) onFailure(state State, now time.Time) {
	switch state {
	case StateClosed:
		b.counts.onFailure()
		if b.readyToTrip(b.counts) {
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		// Any probe failure reopens the circuit.
		b.setState(StateOpen, now)
	}
}

func (b *Breaker) currentState(now time.Time) (State, uint64) {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.toNewGeneration(now)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.setState(StateHalfOpen, now)
		}
	}
	return b.state, b.generation
}

func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.toNewGeneration(now)

	if b.onStateChange != nil {
		b.onStateChange(b.name, prev, state)
	}
}

func (b *Breaker) toNewGeneration(now time.Time) {
	b.generation++
	b.counts = Counts{}
	b.probes = 0

	switch b.state {
	case StateClosed:
		if b.interval > 0 {
			b.expiry = now.Add(b.interval)
		} else {
			b.expiry = time.Time{}
		}
	case StateOpen:
		b.expiry = now.Add(b.timeout)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}
}
