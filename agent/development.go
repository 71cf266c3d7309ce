package agent

import (
	"context"
	"fmt"
	"time"

	"go-orchestrator/model"
)

// Development handles code generation and deployment tasks. Deployments
// go through the registry's docker service when it is connected.
type Development struct {
	dispatcher
	registry ServiceRegistry
}

func NewDevelopment(registry ServiceRegistry) *Development {
	a := &Development{
		dispatcher: dispatcher{
			capability:    model.CapabilityDevelopment,
			discriminator: "development_type",
		},
		registry: registry,
	}
	a.handlers = map[string]handlerFunc{
		"code_generation": a.generateCode,
		"deployment":      a.deploy,
	}
	return a
}

func (a *Development) generateCode(ctx context.Context, payload map[string]any) (map[string]any, error) {
	storyID := payload["user_story_id"]

	result := map[string]any{
		"user_story_id": storyID,
		"files": []map[string]any{
			{"path": "internal/auth/handler.go", "content": "// generated handler stub"},
			{"path": "web/auth/page.tsx", "content": "// generated page stub"},
		},
		"commit_message": fmt.Sprintf("Implement user story %v", storyID),
		"branch":         "feature/user-auth",
		"generated_at":   time.Now().UTC().Format(time.RFC3339),
	}

	if a.registry != nil && a.registry.Connected("github") {
		repo, err := a.registry.CreateRepository(ctx, "github", map[string]any{
			"branch":  result["branch"],
			"message": result["commit_message"],
		})
		if err != nil {
			return nil, fmt.Errorf("development: create repository: %w", err)
		}
		result["repository"] = repo
	}
	return result, nil
}

func (a *Development) deploy(ctx context.Context, payload map[string]any) (map[string]any, error) {
	environment := stringField(payload, "environment")
	if environment == "" {
		environment = "staging"
	}
	branch := stringField(payload, "branch")
	if branch == "" {
		branch = "main"
	}

	result := map[string]any{
		"status":         "success",
		"environment":    environment,
		"branch":         branch,
		"deployment_url": fmt.Sprintf("https://%s.example.com", environment),
		"deployed_at":    time.Now().UTC().Format(time.RFC3339),
	}

	if a.registry != nil && a.registry.Connected("docker") {
		container, err := a.registry.ManageContainer(ctx, "docker", map[string]any{
			"action":      "deploy",
			"environment": environment,
			"branch":      branch,
		})
		if err != nil {
			return nil, fmt.Errorf("development: deploy container: %w", err)
		}
		result["container"] = container
	}
	return result, nil
}
