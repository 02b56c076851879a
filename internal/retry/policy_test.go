package retry

import (
	"testing"
	"time"

	"git.home.luguber.info/inful/statebox/internal/config"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Mode != config.RetryBackoffExponential {
		t.Fatalf("expected exponential default mode got %s", p.Mode)
	}
	if p.Initial != 500*time.Millisecond {
		t.Fatalf("expected initial 500ms got %v", p.Initial)
	}
	if p.Max != 10*time.Second {
		t.Fatalf("expected max 10s got %v", p.Max)
	}
	if p.MaxAttempts != 5 {
		t.Fatalf("expected max attempts 5 got %d", p.MaxAttempts)
	}
}

// TestFromConfigOverrides checks override precedence and clamping when initial > max.
func TestFromConfigOverrides(t *testing.T) {
	p := FromConfig(config.RetryConfig{Backoff: config.RetryBackoffFixed, Initial: 5 * time.Second, Max: 2 * time.Second, MaxAttempts: 7})
	if p.Initial != 2*time.Second {
		t.Fatalf("expected clamped initial 2s got %v", p.Initial)
	}
	if p.Max != 2*time.Second {
		t.Fatalf("expected max 2s got %v", p.Max)
	}
	if p.Mode != config.RetryBackoffFixed {
		t.Fatalf("expected fixed mode got %s", p.Mode)
	}
	if p.MaxAttempts != 7 {
		t.Fatalf("expected max attempts 7 got %d", p.MaxAttempts)
	}
}

// TestDelayModes ensures fixed, linear, exponential behave and respect cap.
func TestDelayModes(t *testing.T) {
	fixed := FromConfig(config.RetryConfig{Backoff: config.RetryBackoffFixed, Initial: 100 * time.Millisecond, Max: 500 * time.Millisecond, MaxAttempts: 3})
	for i := 1; i <= 3; i++ {
		if d := fixed.Delay(i); d != 100*time.Millisecond {
			t.Fatalf("fixed attempt %d expected 100ms got %v", i, d)
		}
	}

	linear := FromConfig(config.RetryConfig{Backoff: config.RetryBackoffLinear, Initial: 100 * time.Millisecond, Max: 250 * time.Millisecond, MaxAttempts: 5})
	cases := []struct {
		attempt int
		want    time.Duration
	}{{1, 100 * time.Millisecond}, {2, 200 * time.Millisecond}, {3, 250 * time.Millisecond}, {4, 250 * time.Millisecond}}
	for _, c := range cases {
		if got := linear.Delay(c.attempt); got != c.want {
			t.Fatalf("linear attempt %d expected %v got %v", c.attempt, c.want, got)
		}
	}

	// Save-loop shape: 500ms, 1s, 2s, 4s with a 10s cap.
	exp := DefaultPolicy()
	expCases := []struct {
		attempt int
		want    time.Duration
	}{{1, 500 * time.Millisecond}, {2, time.Second}, {3, 2 * time.Second}, {4, 4 * time.Second}, {6, 10 * time.Second}}
	for _, c := range expCases {
		if got := exp.Delay(c.attempt); got != c.want {
			t.Fatalf("exp attempt %d expected %v got %v", c.attempt, c.want, got)
		}
	}
}

// TestDelayEdgeCases ensures non-positive attempts yield zero and negative attempts don't panic.
func TestDelayEdgeCases(t *testing.T) {
	p := DefaultPolicy()
	if d := p.Delay(0); d != 0 {
		t.Fatalf("attempt 0 expected 0 got %v", d)
	}
	if d := p.Delay(-1); d != 0 {
		t.Fatalf("attempt -1 expected 0 got %v", d)
	}
}

// TestValidate covers validation error paths.
func TestValidate(t *testing.T) {
	badInitial := Policy{Mode: config.RetryBackoffLinear, Initial: 0, Max: time.Second, MaxAttempts: 1}
	if err := badInitial.Validate(); err == nil {
		t.Fatalf("expected error for zero initial")
	}
	badMax := Policy{Mode: config.RetryBackoffLinear, Initial: time.Second, Max: 0, MaxAttempts: 1}
	if err := badMax.Validate(); err == nil {
		t.Fatalf("expected error for zero max")
	}
	badAttempts := Policy{Mode: config.RetryBackoffLinear, Initial: time.Second, Max: 2 * time.Second, MaxAttempts: 0}
	if err := badAttempts.Validate(); err == nil {
		t.Fatalf("expected error for zero attempts")
	}
	good := Policy{Mode: config.RetryBackoffLinear, Initial: time.Second, Max: 2 * time.Second, MaxAttempts: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

// TestUnknownModeFallsBack leaves mode default when unknown string supplied.
func TestUnknownModeFallsBack(t *testing.T) {
	p := FromConfig(config.RetryConfig{Backoff: "weird"})
	if p.Mode != config.RetryBackoffExponential {
		t.Fatalf("unknown mode should fall back to exponential got %s", p.Mode)
	}
}
