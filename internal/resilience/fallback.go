package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrAllFailed is returned when every provider in a [FallbackGroup] either
// failed or had an open breaker. It wraps the last real provider error.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig tunes a [FallbackGroup]. The breaker config is applied to
// every provider in the chain; the Name field is overridden per provider.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// entry pairs a provider with its dedicated breaker.
type entry[P any] struct {
	name     string
	provider P
	breaker  *CircuitBreaker
}

// FallbackGroup holds an ordered provider chain of one type. Calls go to the
// first provider whose breaker admits them; a failure moves on to the next.
type FallbackGroup[P any] struct {
	breakerCfg CircuitBreakerConfig

	mu      sync.RWMutex
	entries []entry[P]
}

// NewFallbackGroup creates a group with primary as the first provider in the
// chain.
func NewFallbackGroup[P any](primary P, primaryName string, cfg FallbackConfig) *FallbackGroup[P] {
	g := &FallbackGroup[P]{breakerCfg: cfg.CircuitBreaker}
	g.AddFallback(primaryName, primary)
	return g
}

// AddFallback appends a provider to the end of the chain with its own breaker.
func (g *FallbackGroup[P]) AddFallback(name string, provider P) {
	cfg := g.breakerCfg
	cfg.Name = name

	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = append(g.entries, entry[P]{
		name:     name,
		provider: provider,
		breaker:  NewCircuitBreaker(cfg),
	})
}

// Execute runs fn against the chain, stopping at the first provider that
// succeeds.
func (g *FallbackGroup[P]) Execute(fn func(P) error) error {
	_, err := ExecuteWithResult(g, func(p P) (struct{}, error) {
		return struct{}{}, fn(p)
	})
	return err
}

// ExecuteWithResult runs fn against each provider in chain order until one
// succeeds. Providers with an open breaker are skipped without counting as
// failures. This is a function rather than a method because methods cannot
// introduce the result type parameter.
func ExecuteWithResult[P, R any](g *FallbackGroup[P], fn func(P) (R, error)) (R, error) {
	g.mu.RLock()
	chain := make([]entry[P], len(g.entries))
	copy(chain, g.entries)
	g.mu.RUnlock()

	var zero R
	var lastErr error
	for _, e := range chain {
		var result R
		err := e.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(e.provider)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider with open circuit", "provider", e.name)
			continue
		}
		lastErr = err
		slog.Warn("provider failed, trying next", "provider", e.name, "error", err)
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
