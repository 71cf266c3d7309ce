package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCapability(t *testing.T) {
	t.Run("accepts known values with whitespace and case noise", func(t *testing.T) {
		c, err := ParseCapability("  Planning ")
		require.NoError(t, err)
		assert.Equal(t, CapabilityPlanning, c)
	})

	t.Run("rejects unknown values", func(t *testing.T) {
		_, err := ParseCapability("deployment")
		assert.Error(t, err)
	})
}

func TestParsePriority(t *testing.T) {
	t.Run("empty defaults to medium", func(t *testing.T) {
		p, err := ParsePriority("")
		require.NoError(t, err)
		assert.Equal(t, PriorityMedium, p)
	})

	t.Run("accepts all known values", func(t *testing.T) {
		for _, s := range []string{"low", "medium", "high", "critical"} {
			p, err := ParsePriority(s)
			require.NoError(t, err)
			assert.Equal(t, Priority(s), p)
		}
	})

	t.Run("rejects unknown values", func(t *testing.T) {
		_, err := ParsePriority("urgent")
		assert.Error(t, err)
	})
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestStatusView(t *testing.T) {
	now := time.Now()

	t.Run("failed task carries its error", func(t *testing.T) {
		task := Task{
			ID:          "t1",
			Capability:  CapabilityTesting,
			Status:      StatusFailed,
			CompletedAt: &now,
			Error:       "boom",
		}
		view := task.StatusView()
		require.NotNil(t, view.Error)
		assert.Equal(t, "boom", *view.Error)
		assert.Equal(t, &now, view.CompletedAt)
	})

	t.Run("clean task has a nil error", func(t *testing.T) {
		view := Task{ID: "t2", Status: StatusCompleted}.StatusView()
		assert.Nil(t, view.Error)
	})
}
