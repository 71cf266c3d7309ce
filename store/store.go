// Package store is the authoritative, process-lifetime record of every
// task and its lifecycle state.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-orchestrator/archive"
	"go-orchestrator/model"
)

var (
	ErrTaskNotFound = errors.New("store: task not found")
	// ErrInvalidTransition is returned for any move out of a terminal
	// status. Transitions are monotonic; re-completing a task is a hard
	// error, not a silent overwrite.
	ErrInvalidTransition = errors.New("store: invalid status transition")
)

// Store keeps tasks in a mutex-guarded map with insertion order
// preserved. Terminal tasks beyond historyLimit are evicted oldest-first
// into the archiver.
type Store struct {
	mu       sync.RWMutex
	tasks    map[string]*model.Task
	order    []string
	terminal int

	historyLimit int
	archiver     archive.Archiver
}

// New creates a store. historyLimit bounds retained terminal tasks;
// zero means unlimited. A nil archiver discards evicted tasks.
func New(historyLimit int, archiver archive.Archiver) *Store {
	if archiver == nil {
		archiver = archive.Discard{}
	}
	return &Store{
		tasks:        make(map[string]*model.Task),
		historyLimit: historyLimit,
		archiver:     archiver,
	}
}

// Create inserts a pending task and returns its id. Ids embed a UUID so
// concurrent creations within the same clock tick cannot collide.
func (s *Store) Create(capability model.Capability, projectID int64, payload map[string]any, priority model.Priority) string {
	id := fmt.Sprintf("%s_%d_%s", capability, projectID, uuid.NewString())
	task := &model.Task{
		ID:         id,
		Capability: capability,
		ProjectID:  projectID,
		Payload:    payload,
		Priority:   priority,
		Status:     model.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.tasks[id] = task
	s.order = append(s.order, id)
	s.mu.Unlock()

	slog.Info("task created", "task_id", id, "capability", capability, "project_id", projectID)
	return id
}

func (s *Store) Get(taskID string) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return model.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return *task, nil
}

func (s *Store) MarkRunning(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if task.Status != model.StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, model.StatusRunning)
	}
	task.Status = model.StatusRunning
	return nil
}

func (s *Store) MarkCompleted(ctx context.Context, taskID string, result map[string]any) error {
	return s.finish(ctx, taskID, model.StatusCompleted, result, "")
}

func (s *Store) MarkFailed(ctx context.Context, taskID string, taskErr error) error {
	msg := ""
	if taskErr != nil {
		msg = taskErr.Error()
	}
	return s.finish(ctx, taskID, model.StatusFailed, nil, msg)
}

func (s *Store) finish(ctx context.Context, taskID string, status model.Status, result map[string]any, errMsg string) error {
	s.mu.Lock()
	task, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if task.Status != model.StatusRunning {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, status)
	}
	now := time.Now().UTC()
	task.Status = status
	task.CompletedAt = &now
	task.Result = result
	task.Error = errMsg
	s.terminal++
	evicted := s.evictLocked()
	s.mu.Unlock()

	for _, old := range evicted {
		if err := s.archiver.Archive(ctx, old); err != nil {
			slog.Error("task archive failed", "task_id", old.ID, "error", err)
		}
	}
	return nil
}

// evictLocked removes the oldest terminal tasks beyond the history
// limit and returns them for archiving. Caller holds the write lock.
func (s *Store) evictLocked() []model.Task {
	if s.historyLimit <= 0 || s.terminal <= s.historyLimit {
		return nil
	}

	var evicted []model.Task
	kept := s.order[:0]
	for _, id := range s.order {
		task := s.tasks[id]
		if s.terminal > s.historyLimit && task.Status.Terminal() {
			evicted = append(evicted, *task)
			delete(s.tasks, id)
			s.terminal--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return evicted
}

// List returns every retained task in insertion order.
func (s *Store) List() []model.Task {
	return s.list(func(model.Task) bool { return true })
}

// ListByProject returns the project's retained tasks in insertion order.
func (s *Store) ListByProject(projectID int64) []model.Task {
	return s.list(func(t model.Task) bool { return t.ProjectID == projectID })
}

func (s *Store) list(keep func(model.Task) bool) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Task{}
	for _, id := range s.order {
		if task := s.tasks[id]; keep(*task) {
			out = append(out, *task)
		}
	}
	return out
}
