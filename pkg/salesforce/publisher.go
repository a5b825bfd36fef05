// Package salesforce publishes platform events to Salesforce over the
// JWT-authenticated REST API.
package salesforce

import (
	"context"
	"fmt"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Publisher defines the Salesforce operations the core uses.
type Publisher interface {
	// PublishEvent inserts one platform-event record and returns its id.
	PublishEvent(ctx context.Context, eventName string, payload map[string]any) (string, error)
}

// Option configures the publisher.
type Option func(*sfPublisher)

// WithRateLimit sets a per-second rate limit for SF API calls.
// A burst equal to the integer portion of rps is allowed.
func WithRateLimit(rps float64) Option {
	return func(p *sfPublisher) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// sfPublisher wraps the go-salesforce/v3 Salesforce struct.
//
// NOTE: The underlying go-salesforce/v3 library does not accept
// context.Context, so the ctx parameter only governs the rate-limiter
// wait; callers can still cancel that.
type sfPublisher struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// NewPublisher creates a Publisher wrapping the given go-salesforce instance.
func NewPublisher(sf *salesforce.Salesforce, opts ...Option) Publisher {
	p := &sfPublisher{sf: sf}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (p *sfPublisher) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

func (p *sfPublisher) PublishEvent(ctx context.Context, eventName string, payload map[string]any) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", eris.Wrap(err, "sf: rate limit")
	}
	result, err := p.sf.InsertOne(eventName, payload)
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("sf: publish %s", eventName))
	}
	if !result.Success {
		return "", eris.New(fmt.Sprintf("sf: publish %s failed: %v", eventName, result.Errors))
	}
	return result.Id, nil
}
