// Package resilience guards calls to flaky remote services with a circuit
// breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = gobreaker.ErrOpenState

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	Name string
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures int
	// OpenTimeout is how long the circuit stays open before a trial call.
	OpenTimeout time.Duration
}

// Breaker is a circuit breaker for context-aware operations.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a Breaker. Zero values pick 5 failures and one minute.
func NewBreaker(cfg BreakerConfig, log *slog.Logger) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "circuit_breaker", "name", cfg.Name)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		// Cancellation by the caller says nothing about the remote service.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("Circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs operation unless the circuit is open.
func (b *Breaker) Execute(ctx context.Context, operation func(context.Context) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, operation(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", b.cb.Name(), ErrCircuitOpen)
	}
	return err
}

// State returns the current state name: "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}
