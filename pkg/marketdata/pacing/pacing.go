// Package pacing spaces out provider requests.
package pacing

import (
	"context"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
)

// Policy decides how long to wait before the next provider request.
type Policy interface {
	// WaitBeforeNext blocks until the next request may start, given the outcome of
	// the previous one. It returns the context error if ctx ends first.
	WaitBeforeNext(ctx context.Context, last types.FetchOutcome) error
	// NextDelay returns the delay WaitBeforeNext would wait for last.
	NextDelay(last types.FetchOutcome) time.Duration
}

const (
	PolicyFixed   = "fixed"
	PolicyBackoff = "backoff"
	PolicyNone    = "none"
)

// Config selects and tunes a policy.
type Config struct {
	Policy   string        `yaml:"policy" json:"policy" validate:"omitempty,oneof=fixed backoff none"`
	Delay    time.Duration `yaml:"delay" json:"delay" validate:"gte=0"`
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay" validate:"gte=0"`
	Factor   float64       `yaml:"factor" json:"factor" validate:"gte=0"`
}

// NewPolicy builds the policy described by cfg. An empty policy name means fixed.
func NewPolicy(cfg Config) (Policy, error) {
	switch cfg.Policy {
	case "", PolicyFixed:
		if cfg.Delay <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "pacing delay must be positive, got %s", cfg.Delay)
		}

		return Fixed(cfg.Delay), nil
	case PolicyBackoff:
		if cfg.Delay <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "pacing delay must be positive, got %s", cfg.Delay)
		}

		return Backoff(BackoffConfig{Base: cfg.Delay, Max: cfg.MaxDelay, Factor: cfg.Factor}), nil
	case PolicyNone:
		return None(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown pacing policy %q", cfg.Policy)
	}
}

// FixedPolicy waits the same delay after every outcome.
type FixedPolicy struct {
	delay time.Duration
}

func Fixed(delay time.Duration) *FixedPolicy {
	return &FixedPolicy{delay: delay}
}

func (p *FixedPolicy) NextDelay(types.FetchOutcome) time.Duration {
	return p.delay
}

func (p *FixedPolicy) WaitBeforeNext(ctx context.Context, last types.FetchOutcome) error {
	return sleep(ctx, p.NextDelay(last))
}

// NonePolicy never waits. Only meant for tests and local fakes.
type NonePolicy struct{}

func None() *NonePolicy {
	return &NonePolicy{}
}

func (p *NonePolicy) NextDelay(types.FetchOutcome) time.Duration {
	return 0
}

func (p *NonePolicy) WaitBeforeNext(ctx context.Context, _ types.FetchOutcome) error {
	return ctx.Err()
}

// BackoffConfig tunes BackoffPolicy. Max defaults to 60 times Base and Factor to 2.
type BackoffConfig struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

// BackoffPolicy waits Base after a successful or empty fetch and grows the delay
// exponentially over consecutive failures, up to Max.
type BackoffPolicy struct {
	mu      sync.Mutex
	base    time.Duration
	backoff *backoff.Backoff
}

func Backoff(cfg BackoffConfig) *BackoffPolicy {
	if cfg.Max < cfg.Base {
		cfg.Max = 60 * cfg.Base
	}

	if cfg.Factor <= 1 {
		cfg.Factor = 2
	}

	return &BackoffPolicy{
		base: cfg.Base,
		backoff: &backoff.Backoff{
			Min:    cfg.Base,
			Max:    cfg.Max,
			Factor: cfg.Factor,
			Jitter: false,
		},
	}
}

// NextDelay advances the failure streak when last failed and resets it otherwise.
func (p *BackoffPolicy) NextDelay(last types.FetchOutcome) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !last.IsFailed() {
		p.backoff.Reset()

		return p.base
	}

	return max(p.backoff.Duration(), p.base)
}

func (p *BackoffPolicy) WaitBeforeNext(ctx context.Context, last types.FetchOutcome) error {
	return sleep(ctx, p.NextDelay(last))
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
