package resilience

import (
	"errors"
	"testing"
	"time"
)

// newStringGroup builds a two-entry chain over plain strings so tests can see
// which entry handled the call.
func newStringGroup(cfg CircuitBreakerConfig) *FallbackGroup[string] {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{CircuitBreaker: cfg})
	fg.AddFallback("secondary", "secondary")
	return fg
}

// ─── Chain order ───

func TestFallbackGroup_PrefersPrimary(t *testing.T) {
	fg := newStringGroup(CircuitBreakerConfig{MaxFailures: 3})

	var handled string
	if err := fg.Execute(func(v string) error { handled = v; return nil }); err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
	if handled != "primary" {
		t.Fatalf("handled by %q, want primary", handled)
	}
}

func TestFallbackGroup_FailsOverWithinOneCall(t *testing.T) {
	fg := newStringGroup(CircuitBreakerConfig{MaxFailures: 3})

	var handled string
	err := fg.Execute(func(v string) error {
		if v == "primary" {
			return errProvider
		}
		handled = v
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
	if handled != "secondary" {
		t.Fatalf("handled by %q, want secondary", handled)
	}
}

func TestFallbackGroup_SkipsEntryWithOpenBreaker(t *testing.T) {
	fg := newStringGroup(CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})

	// Trip the primary's breaker; the secondary keeps absorbing the calls.
	for i := 0; i < 2; i++ {
		_ = fg.Execute(func(v string) error {
			if v == "primary" {
				return errProvider
			}
			return nil
		})
	}

	var attempts []string
	if err := fg.Execute(func(v string) error { attempts = append(attempts, v); return nil }); err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
	if len(attempts) != 1 || attempts[0] != "secondary" {
		t.Fatalf("attempts = %v, want only the secondary while the primary's circuit is open", attempts)
	}
}

// ─── Exhausted chain ───

func TestFallbackGroup_AllFailed(t *testing.T) {
	fg := newStringGroup(CircuitBreakerConfig{MaxFailures: 3})

	err := fg.Execute(func(string) error { return errProvider })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("Execute() = %v, want ErrAllFailed", err)
	}
}

// ─── Typed results ───

func TestExecuteWithResult_ReturnsFirstHealthyResult(t *testing.T) {
	fg := NewFallbackGroup(10, "ten", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("twenty", 20)

	tests := []struct {
		name    string
		failTen bool
		want    string
	}{
		{name: "primary healthy", failTen: false, want: "answer from 10"},
		{name: "primary failing", failTen: true, want: "answer from 20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExecuteWithResult(fg, func(v int) (string, error) {
				if v == 10 && tt.failTen {
					return "", errProvider
				}
				return "answer from " + map[int]string{10: "10", 20: "20"}[v], nil
			})
			if err != nil {
				t.Fatalf("ExecuteWithResult() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Fatalf("ExecuteWithResult() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecuteWithResult_AllFailed(t *testing.T) {
	fg := NewFallbackGroup(10, "ten", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	got, err := ExecuteWithResult(fg, func(int) (string, error) {
		return "partial", errProvider
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("ExecuteWithResult() error = %v, want ErrAllFailed", err)
	}
	if got != "" {
		t.Fatalf("ExecuteWithResult() = %q, want the zero value on failure", got)
	}
}
