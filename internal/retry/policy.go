package retry

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/statebox/internal/config"
)

// Policy encapsulates retry/backoff settings for save conflicts.
// It is immutable after construction.
type Policy struct {
	Mode        config.RetryBackoffMode // fixed|linear|exponential
	Initial     time.Duration           // base delay
	Max         time.Duration           // cap for growth
	MaxAttempts int                     // total attempts, including the first
}

// DefaultPolicy returns the save-loop default (exponential, 500ms initial, 10s cap, 5 attempts).
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffExponential, Initial: 500 * time.Millisecond, Max: 10 * time.Second, MaxAttempts: 5}
}

// FromConfig builds a policy from config fields; zero/invalid values fall back to defaults.
func FromConfig(rc config.RetryConfig) Policy {
	p := DefaultPolicy()
	if rc.MaxAttempts > 0 {
		p.MaxAttempts = rc.MaxAttempts
	}
	if rc.Initial > 0 {
		p.Initial = rc.Initial
	}
	if rc.Max > 0 {
		p.Max = rc.Max
	}
	if rc.Backoff != "" {
		switch rc.Backoff {
		case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
			p.Mode = rc.Backoff
		default:
			// unknown -> keep default
		}
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffLinear:
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	default: // exponential
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}
	return nil
}
