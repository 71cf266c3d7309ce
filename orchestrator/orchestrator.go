// Package orchestrator sequences agent tasks into SDLC workflows. It is
// the single entry point the transport layer calls.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go-orchestrator/agent"
	"go-orchestrator/model"
	"go-orchestrator/registry"
	"go-orchestrator/store"
)

var ErrAgentUnavailable = errors.New("orchestrator: no agent available for capability")

// Orchestrator wires the service registry, the task store and one agent
// per capability. Tasks are never retried here; a failed task stays
// failed and retry policy belongs to the caller.
type Orchestrator struct {
	registry *registry.Registry
	store    *store.Store

	// candidates keeps the construction order so startup and shutdown
	// run in fixed, mirrored order.
	candidates []agent.Agent

	mu          sync.RWMutex
	agents      map[model.Capability]agent.Agent
	initialized bool
}

func New(reg *registry.Registry, st *store.Store, agents ...agent.Agent) *Orchestrator {
	return &Orchestrator{
		registry:   reg,
		store:      st,
		candidates: agents,
		agents:     make(map[model.Capability]agent.Agent),
	}
}

// Initialize brings up the registry first, then every agent in
// construction order. An agent that fails to initialize is left
// unregistered and does not block the others. Idempotent.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initialized {
		return nil
	}

	if err := o.registry.Initialize(ctx); err != nil {
		return fmt.Errorf("orchestrator: registry initialize: %w", err)
	}

	for _, a := range o.candidates {
		if err := a.Initialize(ctx); err != nil {
			slog.Error("agent initialize failed", "capability", a.Capability(), "error", err)
			continue
		}
		o.agents[a.Capability()] = a
	}

	o.initialized = true
	slog.Info("orchestrator initialized", "agents", len(o.agents))
	return nil
}

// Shutdown cleans up agents in reverse construction order, then the
// registry. Idempotent.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.initialized {
		return
	}

	for i := len(o.candidates) - 1; i >= 0; i-- {
		a := o.candidates[i]
		if _, ok := o.agents[a.Capability()]; !ok {
			continue
		}
		if err := a.Cleanup(ctx); err != nil {
			slog.Error("agent cleanup failed", "capability", a.Capability(), "error", err)
		}
		delete(o.agents, a.Capability())
	}
	o.registry.Shutdown()
	o.initialized = false
	slog.Info("orchestrator shut down")
}

// CreateTask registers a pending task and returns its id.
func (o *Orchestrator) CreateTask(capability model.Capability, projectID int64, payload map[string]any, priority model.Priority) string {
	return o.store.Create(capability, projectID, payload, priority)
}

// ExecuteTask runs the task through its capability's agent. The task
// record absorbs the outcome and the agent's error, if any, is returned
// to the caller unchanged.
func (o *Orchestrator) ExecuteTask(ctx context.Context, taskID string) (map[string]any, error) {
	task, err := o.store.Get(taskID)
	if err != nil {
		return nil, err
	}

	o.mu.RLock()
	a, ok := o.agents[task.Capability]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentUnavailable, task.Capability)
	}

	if err := o.store.MarkRunning(taskID); err != nil {
		return nil, err
	}
	slog.Info("task executing", "task_id", taskID, "capability", task.Capability)

	result, err := a.Execute(ctx, task.Payload)
	if err != nil {
		if markErr := o.store.MarkFailed(ctx, taskID, err); markErr != nil {
			slog.Error("mark failed rejected", "task_id", taskID, "error", markErr)
		}
		slog.Error("task failed", "task_id", taskID, "error", err)
		return nil, err
	}

	if err := o.store.MarkCompleted(ctx, taskID, result); err != nil {
		return nil, err
	}
	slog.Info("task completed", "task_id", taskID)
	return result, nil
}

// ExecuteWorkflow runs the requested stages in the fixed order
// requirements, planning, development, testing, communication. Absent
// stages are skipped entirely. The first failing stage aborts the whole
// call; no partial results are returned.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, projectID int64, stages map[string]map[string]any) (map[string]map[string]any, error) {
	slog.Info("workflow starting", "project_id", projectID, "stages", len(stages))
	results := make(map[string]map[string]any)

	for _, capability := range model.Capabilities {
		stage := string(capability)
		payload, ok := stages[stage]
		if !ok {
			continue
		}

		taskID := o.CreateTask(capability, projectID, payload, model.PriorityMedium)
		result, err := o.ExecuteTask(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("workflow stage %s: %w", stage, err)
		}
		results[stage] = result
	}

	slog.Info("workflow completed", "project_id", projectID, "stages", len(results))
	return results, nil
}

// AnalyzeConversations builds one requirements-extraction task from the
// conversation list and executes it.
func (o *Orchestrator) AnalyzeConversations(ctx context.Context, projectID int64, conversations []map[string]any) (map[string]any, error) {
	items := make([]any, len(conversations))
	for i, c := range conversations {
		items[i] = c
	}
	return o.runOne(ctx, model.CapabilityRequirements, projectID, map[string]any{
		"conversations": items,
		"project_id":    projectID,
		"analysis_type": "requirements_extraction",
	})
}

// GenerateEpicsAndStories plans epics and user stories from an earlier
// requirements result.
func (o *Orchestrator) GenerateEpicsAndStories(ctx context.Context, projectID int64, requirements map[string]any) (map[string]any, error) {
	return o.runOne(ctx, model.CapabilityPlanning, projectID, map[string]any{
		"requirements":  requirements,
		"project_id":    projectID,
		"planning_type": "epic_story_generation",
	})
}

// ScheduleMeetings coordinates a meeting through the communication
// agent.
func (o *Orchestrator) ScheduleMeetings(ctx context.Context, projectID int64, meetingData map[string]any) (map[string]any, error) {
	return o.runOne(ctx, model.CapabilityCommunication, projectID, map[string]any{
		"meeting_data":       meetingData,
		"project_id":         projectID,
		"communication_type": "meeting_scheduling",
	})
}

// UpdateUserStoryStatus records a story status change through the
// planning agent.
func (o *Orchestrator) UpdateUserStoryStatus(ctx context.Context, projectID, storyID int64, status string, completionData map[string]any) (map[string]any, error) {
	return o.runOne(ctx, model.CapabilityPlanning, projectID, map[string]any{
		"story_id":        storyID,
		"status":          status,
		"completion_data": completionData,
		"project_id":      projectID,
		"planning_type":   "story_status_update",
	})
}

func (o *Orchestrator) runOne(ctx context.Context, capability model.Capability, projectID int64, payload map[string]any) (map[string]any, error) {
	taskID := o.CreateTask(capability, projectID, payload, model.PriorityMedium)
	return o.ExecuteTask(ctx, taskID)
}

func (o *Orchestrator) GetTaskStatus(taskID string) (model.TaskStatus, error) {
	task, err := o.store.Get(taskID)
	if err != nil {
		return model.TaskStatus{}, err
	}
	return task.StatusView(), nil
}

// ListTasks returns every retained task's status view in creation order.
func (o *Orchestrator) ListTasks() []model.TaskStatus {
	return views(o.store.List())
}

// ListProjectTasks narrows ListTasks to one project.
func (o *Orchestrator) ListProjectTasks(projectID int64) []model.TaskStatus {
	return views(o.store.ListByProject(projectID))
}

func views(tasks []model.Task) []model.TaskStatus {
	out := make([]model.TaskStatus, len(tasks))
	for i, t := range tasks {
		out[i] = t.StatusView()
	}
	return out
}
