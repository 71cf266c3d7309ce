// Package archive provides cold storage for terminal tasks evicted from
// the in-memory store, so a long-running process does not accumulate
// unbounded task history.
package archive

import (
	"context"

	"go-orchestrator/model"
)

type Archiver interface {
	Archive(ctx context.Context, task model.Task) error
	Close()
}

// Discard drops evicted tasks. Used when no archive backend is
// configured.
type Discard struct{}

func (Discard) Archive(context.Context, model.Task) error { return nil }

func (Discard) Close() {}
