package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequirementsExtraction(t *testing.T) {
	a := initialized(t, NewRequirements())

	t.Run("defaults to extraction when discriminator absent", func(t *testing.T) {
		result, err := a.Execute(context.Background(), map[string]any{
			"conversations": []any{},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, result["total_count"])
	})

	t.Run("picks requirement-bearing sentences", func(t *testing.T) {
		result, err := a.Execute(context.Background(), map[string]any{
			"analysis_type": "requirements_extraction",
			"project_id":    int64(42),
			"conversations": []any{
				map[string]any{
					"channel": "slack",
					"content": "We need a login page. The weather is nice today. Users must reset passwords.",
				},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, int64(42), result["project_id"])
		assert.Equal(t, 2, result["total_count"])

		requirements, ok := result["requirements"].([]map[string]any)
		require.True(t, ok)
		require.Len(t, requirements, 2)
		assert.Equal(t, "we need a login page", requirements[0]["description"])
		assert.Equal(t, "slack", requirements[0]["source"])
		assert.Equal(t, "functional", requirements[0]["category"])

		categories, ok := result["categories"].(map[string]int)
		require.True(t, ok)
		assert.Equal(t, 2, categories["functional"])
	})

	t.Run("extracted requirement ids are unique", func(t *testing.T) {
		result, err := a.Execute(context.Background(), map[string]any{
			"conversations": []any{
				map[string]any{"content": "We need a report. Admins need a dashboard."},
			},
		})
		require.NoError(t, err)

		requirements := result["requirements"].([]map[string]any)
		require.Len(t, requirements, 2)
		assert.NotEqual(t, requirements[0]["id"], requirements[1]["id"])
	})
}

func TestRequirementsValidation(t *testing.T) {
	a := initialized(t, NewRequirements())

	result, err := a.Execute(context.Background(), map[string]any{
		"analysis_type": "requirements_validation",
		"requirements": []any{
			map[string]any{"id": "r1", "description": "short"},
			map[string]any{"id": "r2", "description": "A specific flow: when the user logs in, then show the dashboard"},
		},
	})
	require.NoError(t, err)

	results, ok := result["validation_results"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, "r1", first["requirement_id"])
	assert.False(t, first["is_complete"].(bool))
	assert.NotEmpty(t, first["suggestions"])

	second := results[1]
	assert.True(t, second["is_complete"].(bool))
	assert.True(t, second["is_specific"].(bool))
	assert.True(t, second["has_acceptance_criteria"].(bool))
	assert.Empty(t, second["suggestions"])
}

func TestRequirementsPrioritization(t *testing.T) {
	a := initialized(t, NewRequirements())

	result, err := a.Execute(context.Background(), map[string]any{
		"analysis_type": "requirements_prioritization",
		"requirements": []any{
			map[string]any{"id": "low", "priority": "low"},
			map[string]any{"id": "crit", "priority": "critical"},
			map[string]any{"id": "med-a"},
			map[string]any{"id": "med-b", "priority": "medium"},
		},
	})
	require.NoError(t, err)

	ordered, ok := result["requirements"].([]any)
	require.True(t, ok)
	require.Len(t, ordered, 4)

	ids := make([]string, len(ordered))
	for i, raw := range ordered {
		ids[i] = raw.(map[string]any)["id"].(string)
	}
	// critical first, low last, medium entries keep their input order
	assert.Equal(t, []string{"crit", "med-a", "med-b", "low"}, ids)
}
