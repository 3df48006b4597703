// Package events publishes loop lifecycle events to an external bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yarlson/ralph-loop/internal/config"
)

// DefaultSubject is the NATS subject or Redis channel used when none is set.
const DefaultSubject = "ralph.loop"

// Type identifies a lifecycle event.
type Type string

// Lifecycle events
const (
	IterationStarted  Type = "iteration.started"
	GuardrailsFailed  Type = "guardrails.failed"
	IterationFinished Type = "iteration.finished"
	ReviewFinished    Type = "review.finished"
	RunFinished       Type = "run.finished"
)

// Event is one published lifecycle event.
type Event struct {
	Type      Type           `json:"type"`
	RunID     string         `json:"runId"`
	Iteration int            `json:"iteration,omitempty"`
	Time      time.Time      `json:"time"`
	Data      map[string]any `json:"data,omitempty"`
}

// Publisher sends events to a bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Close() error { return nil }

// New returns the publisher configured by cfg, or Nop when cfg is nil.
func New(cfg *config.EventsConfig) (Publisher, error) {
	if cfg == nil {
		return Nop{}, nil
	}

	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	switch strings.ToLower(cfg.Backend) {
	case config.EventsBackendNATS:
		return NewNATSPublisher(cfg.URL, subject)
	case config.EventsBackendRedis:
		return NewRedisPublisher(cfg.URL, subject)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

func encode(event Event) ([]byte, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", event.Type, err)
	}
	return raw, nil
}
