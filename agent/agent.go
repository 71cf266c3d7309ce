// Package agent defines the capability contract shared by the five
// task agents and the sub-variant dispatch they all use.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go-orchestrator/model"
)

var (
	// ErrUnknownVariant is returned when a payload's discriminator does
	// not match any sub-variant of the agent's capability.
	ErrUnknownVariant = errors.New("agent: unknown task variant")
	ErrNotInitialized = errors.New("agent: not initialized")
)

// Agent executes one category of task. Implementations are stateless
// with respect to tasks and safe for concurrent Execute calls.
type Agent interface {
	Capability() model.Capability
	Initialize(ctx context.Context) error
	Execute(ctx context.Context, payload map[string]any) (map[string]any, error)
	Cleanup(ctx context.Context) error
}

// ServiceRegistry is the slice of the registry contract agents need.
type ServiceRegistry interface {
	Connected(service string) bool
	Send(ctx context.Context, service string, payload map[string]any) (map[string]any, error)
	CreateDocument(ctx context.Context, service string, document map[string]any) (map[string]any, error)
	ScheduleMeeting(ctx context.Context, service string, meeting map[string]any) (map[string]any, error)
	CreateRepository(ctx context.Context, service string, repo map[string]any) (map[string]any, error)
	ManageContainer(ctx context.Context, service string, container map[string]any) (map[string]any, error)
}

type handlerFunc func(ctx context.Context, payload map[string]any) (map[string]any, error)

// dispatcher routes a payload to a sub-variant handler by the value of
// its discriminator field. It also carries the idempotent lifecycle
// state every agent shares.
type dispatcher struct {
	capability     model.Capability
	discriminator  string
	defaultVariant string
	handlers       map[string]handlerFunc

	mu          sync.Mutex
	initialized bool
}

func (d *dispatcher) Capability() model.Capability { return d.capability }

func (d *dispatcher) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return nil
	}
	d.initialized = true
	slog.Info("agent initialized", "capability", d.capability)
	return nil
}

func (d *dispatcher) Cleanup(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil
	}
	d.initialized = false
	slog.Info("agent cleaned up", "capability", d.capability)
	return nil
}

func (d *dispatcher) Execute(ctx context.Context, payload map[string]any) (map[string]any, error) {
	d.mu.Lock()
	ready := d.initialized
	d.mu.Unlock()
	if !ready {
		return nil, fmt.Errorf("%w: %s agent", ErrNotInitialized, d.capability)
	}

	variant := stringField(payload, d.discriminator)
	if variant == "" {
		variant = d.defaultVariant
	}
	handle, ok := d.handlers[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %s=%q", ErrUnknownVariant, d.discriminator, variant)
	}
	return handle(ctx, payload)
}

func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}

func sliceField(payload map[string]any, key string) []any {
	if payload == nil {
		return nil
	}
	s, _ := payload[key].([]any)
	return s
}

func mapField(payload map[string]any, key string) map[string]any {
	if payload == nil {
		return nil
	}
	m, _ := payload[key].(map[string]any)
	return m
}
