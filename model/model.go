package model

import (
	"fmt"
	"strings"
	"time"
)

// Capability selects which agent handles a task.
type Capability string

const (
	CapabilityRequirements  Capability = "requirements"
	CapabilityPlanning      Capability = "planning"
	CapabilityDevelopment   Capability = "development"
	CapabilityTesting       Capability = "testing"
	CapabilityCommunication Capability = "communication"
)

// Capabilities is the fixed workflow stage order. Later stages consume
// earlier stages' output, so the order must not change.
var Capabilities = []Capability{
	CapabilityRequirements,
	CapabilityPlanning,
	CapabilityDevelopment,
	CapabilityTesting,
	CapabilityCommunication,
}

func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Capabilities {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown capability: %q", s)
}

// Priority is informational only; no scheduling behavior is attached.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority maps an empty string to the default medium priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority: %q", s)
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether a status accepts no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is one unit of agent work. The store owns every Task; callers
// only ever see copies.
type Task struct {
	ID          string         `json:"id"`
	Capability  Capability     `json:"capability"`
	ProjectID   int64          `json:"project_id"`
	Payload     map[string]any `json:"payload,omitempty"`
	Priority    Priority       `json:"priority"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// TaskStatus is the external view returned over the API boundary.
type TaskStatus struct {
	ID          string         `json:"id"`
	Capability  Capability     `json:"capability"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	Error       *string        `json:"error"`
	Result      map[string]any `json:"result"`
}

func (t Task) StatusView() TaskStatus {
	view := TaskStatus{
		ID:          t.ID,
		Capability:  t.Capability,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
		Result:      t.Result,
	}
	if t.Error != "" {
		errText := t.Error
		view.Error = &errText
	}
	return view
}
