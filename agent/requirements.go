package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-orchestrator/model"
)

// requirementKeywords mark sentences likely to contain a requirement.
var requirementKeywords = []string{
	"need", "require", "must", "should", "want", "expect",
	"feature", "functionality", "capability", "system",
	"user", "admin", "interface", "dashboard", "report",
}

// Requirements extracts, validates and prioritizes requirements from
// conversation transcripts.
type Requirements struct {
	dispatcher
}

func NewRequirements() *Requirements {
	a := &Requirements{
		dispatcher: dispatcher{
			capability:     model.CapabilityRequirements,
			discriminator:  "analysis_type",
			defaultVariant: "requirements_extraction",
		},
	}
	a.handlers = map[string]handlerFunc{
		"requirements_extraction":     a.extract,
		"requirements_validation":     a.validate,
		"requirements_prioritization": a.prioritize,
	}
	return a
}

func (a *Requirements) extract(ctx context.Context, payload map[string]any) (map[string]any, error) {
	conversations := sliceField(payload, "conversations")

	var requirements []map[string]any
	for _, raw := range conversations {
		conversation, _ := raw.(map[string]any)
		requirements = append(requirements, extractFromConversation(conversation)...)
	}

	categories := map[string]int{}
	for _, req := range requirements {
		category, _ := req["category"].(string)
		categories[category]++
	}

	return map[string]any{
		"project_id":   payload["project_id"],
		"requirements": requirements,
		"summary":      fmt.Sprintf("Extracted %d requirements across %d categories.", len(requirements), len(categories)),
		"total_count":  len(requirements),
		"categories":   categories,
		"extracted_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func extractFromConversation(conversation map[string]any) []map[string]any {
	text := strings.ToLower(stringField(conversation, "content"))
	source := stringField(conversation, "channel")
	if source == "" {
		source = "conversation"
	}

	var out []map[string]any
	for _, sentence := range strings.Split(text, ".") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" || !containsAny(sentence, requirementKeywords) {
			continue
		}
		out = append(out, map[string]any{
			"id":          "req_" + uuid.NewString(),
			"title":       "Requirement from conversation",
			"description": sentence,
			"category":    "functional",
			"priority":    "medium",
			"source":      source,
			"confidence":  0.5,
		})
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func (a *Requirements) validate(ctx context.Context, payload map[string]any) (map[string]any, error) {
	requirements := sliceField(payload, "requirements")

	results := []map[string]any{}
	for _, raw := range requirements {
		req, _ := raw.(map[string]any)
		description := strings.ToLower(stringField(req, "description"))

		complete := len(description) > 10
		specific := strings.Contains(description, "specific")
		hasCriteria := strings.Contains(description, "when") || strings.Contains(description, "then")

		suggestions := []string{}
		if !complete {
			suggestions = append(suggestions, "Add more detailed description")
		}
		if !specific {
			suggestions = append(suggestions, "Make requirement more specific")
		}
		if !hasCriteria {
			suggestions = append(suggestions, "Add acceptance criteria")
		}

		results = append(results, map[string]any{
			"requirement_id":          req["id"],
			"is_complete":             complete,
			"is_specific":             specific,
			"has_acceptance_criteria": hasCriteria,
			"suggestions":             suggestions,
		})
	}

	return map[string]any{
		"validation_results": results,
		"total_requirements": len(requirements),
		"validated_at":       time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// priorityRank orders requirement priorities highest first.
var priorityRank = map[string]int{
	"critical": 0,
	"high":     1,
	"medium":   2,
	"low":      3,
}

func (a *Requirements) prioritize(ctx context.Context, payload map[string]any) (map[string]any, error) {
	requirements := sliceField(payload, "requirements")

	ordered := make([]any, len(requirements))
	copy(ordered, requirements)
	// stable insertion sort: the input order breaks rank ties
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && rankOf(ordered[j]) < rankOf(ordered[j-1]); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	return map[string]any{
		"requirements":   ordered,
		"prioritized_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func rankOf(raw any) int {
	req, _ := raw.(map[string]any)
	rank, ok := priorityRank[stringField(req, "priority")]
	if !ok {
		return priorityRank["medium"]
	}
	return rank
}
