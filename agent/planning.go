package agent

import (
	"context"
	"fmt"
	"time"

	"go-orchestrator/model"
)

// Planning turns requirements into epics and user stories and tracks
// story status updates.
type Planning struct {
	dispatcher
}

func NewPlanning() *Planning {
	a := &Planning{
		dispatcher: dispatcher{
			capability:    model.CapabilityPlanning,
			discriminator: "planning_type",
		},
	}
	a.handlers = map[string]handlerFunc{
		"epic_story_generation": a.generateEpicsAndStories,
		"story_status_update":   a.updateStoryStatus,
	}
	return a
}

func (a *Planning) generateEpicsAndStories(ctx context.Context, payload map[string]any) (map[string]any, error) {
	requirements := mapField(payload, "requirements")
	sourceCount := 0
	if reqs, ok := requirements["requirements"].([]any); ok {
		sourceCount = len(reqs)
	}

	epics := []map[string]any{
		{
			"title":       "Epic 1: User Authentication",
			"description": "Implement user authentication system",
			"priority":    "high",
			"status":      "todo",
		},
		{
			"title":       "Epic 2: Dashboard",
			"description": "Create main dashboard interface",
			"priority":    "medium",
			"status":      "todo",
		},
	}
	stories := []map[string]any{
		{
			"title":               "User Story 1",
			"description":         "As a user, I want to log in with my credentials",
			"acceptance_criteria": []string{"Valid credentials allow login", "Invalid credentials show error"},
			"priority":            "high",
			"status":              "todo",
			"points":              3,
		},
		{
			"title":               "User Story 2",
			"description":         "As a user, I want to reset my password",
			"acceptance_criteria": []string{"Email sent with reset link", "New password can be set"},
			"priority":            "medium",
			"status":              "todo",
			"points":              2,
		},
	}

	return map[string]any{
		"project_id":          payload["project_id"],
		"source_requirements": sourceCount,
		"epics":               epics,
		"user_stories":        stories,
		"generated_at":        time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (a *Planning) updateStoryStatus(ctx context.Context, payload map[string]any) (map[string]any, error) {
	status := stringField(payload, "status")
	if status == "" {
		return nil, fmt.Errorf("planning: story status update requires a status")
	}

	return map[string]any{
		"story_id":        payload["story_id"],
		"status":          status,
		"completion_data": mapField(payload, "completion_data"),
		"updated_at":      time.Now().UTC().Format(time.RFC3339),
	}, nil
}
