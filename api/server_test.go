package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-orchestrator/agent"
	"go-orchestrator/model"
	"go-orchestrator/orchestrator"
	"go-orchestrator/registry"
	"go-orchestrator/store"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	reg := registry.New(map[string]string{})
	orc := orchestrator.New(reg, store.New(0, nil),
		agent.NewRequirements(),
		agent.NewPlanning(),
		agent.NewTesting(),
	)
	require.NoError(t, orc.Initialize(context.Background()))
	t.Cleanup(func() { orc.Shutdown(context.Background()) })

	return NewServer(":0", orc, reg).Handler
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestPostTask(t *testing.T) {
	handler := newTestHandler(t)

	t.Run("creates a pending task", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/tasks", map[string]any{
			"capability": "testing",
			"project_id": 3,
			"payload":    map[string]any{"testing_type": "test_execution"},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		taskID, _ := decodeBody(t, rec)["task_id"].(string)
		require.NotEmpty(t, taskID)

		statusRec := doJSON(t, handler, http.MethodGet, "/tasks/"+taskID, nil)
		require.Equal(t, http.StatusOK, statusRec.Code)
		status := decodeBody(t, statusRec)
		assert.Equal(t, "pending", status["status"])
		assert.Equal(t, "testing", status["capability"])
	})

	t.Run("rejects unknown capability", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/tasks", map[string]any{
			"capability": "astrology",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unknown priority", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/tasks", map[string]any{
			"capability": "testing",
			"priority":   "urgent-ish",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestExecuteTask(t *testing.T) {
	handler := newTestHandler(t)

	t.Run("runs the task and reports completion", func(t *testing.T) {
		created := doJSON(t, handler, http.MethodPost, "/tasks", map[string]any{
			"capability": "testing",
			"project_id": 3,
			"payload":    map[string]any{"testing_type": "test_execution", "test_suite": "smoke"},
		})
		require.Equal(t, http.StatusCreated, created.Code)
		taskID := decodeBody(t, created)["task_id"].(string)

		rec := doJSON(t, handler, http.MethodPost, "/tasks/"+taskID+"/execute", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "smoke", decodeBody(t, rec)["test_suite"])

		statusRec := doJSON(t, handler, http.MethodGet, "/tasks/"+taskID, nil)
		assert.Equal(t, "completed", decodeBody(t, statusRec)["status"])
	})

	t.Run("second execute conflicts", func(t *testing.T) {
		created := doJSON(t, handler, http.MethodPost, "/tasks", map[string]any{
			"capability": "testing",
			"payload":    map[string]any{"testing_type": "test_execution"},
		})
		taskID := decodeBody(t, created)["task_id"].(string)

		first := doJSON(t, handler, http.MethodPost, "/tasks/"+taskID+"/execute", nil)
		require.Equal(t, http.StatusOK, first.Code)

		second := doJSON(t, handler, http.MethodPost, "/tasks/"+taskID+"/execute", nil)
		assert.Equal(t, http.StatusConflict, second.Code)
	})

	t.Run("unknown variant maps to 422", func(t *testing.T) {
		created := doJSON(t, handler, http.MethodPost, "/tasks", map[string]any{
			"capability": "testing",
			"payload":    map[string]any{"testing_type": "vibes"},
		})
		taskID := decodeBody(t, created)["task_id"].(string)

		rec := doJSON(t, handler, http.MethodPost, "/tasks/"+taskID+"/execute", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("missing agent maps to 503", func(t *testing.T) {
		created := doJSON(t, handler, http.MethodPost, "/tasks", map[string]any{
			"capability": "development",
		})
		taskID := decodeBody(t, created)["task_id"].(string)

		rec := doJSON(t, handler, http.MethodPost, "/tasks/"+taskID+"/execute", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("unknown task maps to 404", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/tasks/ghost/execute", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetTasks(t *testing.T) {
	handler := newTestHandler(t)

	for _, projectID := range []int{1, 2, 1} {
		rec := doJSON(t, handler, http.MethodPost, "/tasks", map[string]any{
			"capability": "planning",
			"project_id": projectID,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	t.Run("all tasks", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/tasks", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var tasks []model.TaskStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
		assert.Len(t, tasks, 3)
	})

	t.Run("filtered by project", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/tasks?project_id=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var tasks []model.TaskStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
		assert.Len(t, tasks, 2)
	})

	t.Run("bad project id", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/tasks?project_id=abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPostWorkflow(t *testing.T) {
	handler := newTestHandler(t)

	t.Run("executes the requested stages", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/workflows", map[string]any{
			"project_id": 42,
			"stages": map[string]any{
				"requirements": map[string]any{
					"conversations": []any{
						map[string]any{"content": "Admins need an audit log."},
					},
				},
				"testing": map[string]any{"testing_type": "test_execution"},
			},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		results := decodeBody(t, rec)
		require.Contains(t, results, "requirements")
		require.Contains(t, results, "testing")
	})

	t.Run("rejects unknown stage before running anything", func(t *testing.T) {
		before := doJSON(t, handler, http.MethodGet, "/tasks?project_id=99", nil)
		var existing []model.TaskStatus
		require.NoError(t, json.Unmarshal(before.Body.Bytes(), &existing))

		rec := doJSON(t, handler, http.MethodPost, "/workflows", map[string]any{
			"project_id": 99,
			"stages": map[string]any{
				"requirements": map[string]any{},
				"deployment":   map[string]any{},
			},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		after := doJSON(t, handler, http.MethodGet, "/tasks?project_id=99", nil)
		var remaining []model.TaskStatus
		require.NoError(t, json.Unmarshal(after.Body.Bytes(), &remaining))
		assert.Len(t, remaining, len(existing), "rejected workflow must not create tasks")
	})
}

func TestAnalyzeConversations(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/conversations/analyze", map[string]any{
		"project_id": 8,
		"conversations": []map[string]any{
			{"channel": "slack", "content": "The system must send weekly reports."},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeBody(t, rec)
	assert.Equal(t, float64(1), result["total_count"])
}

func TestGetServices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	reg := registry.New(map[string]string{"slack": upstream.URL})
	orc := orchestrator.New(reg, store.New(0, nil))
	require.NoError(t, orc.Initialize(context.Background()))
	defer orc.Shutdown(context.Background())

	handler := NewServer(":0", orc, reg).Handler

	rec := doJSON(t, handler, http.MethodGet, "/services", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	connected, _ := body["connected"].([]any)
	require.Len(t, connected, 1)
	assert.Equal(t, "slack", connected[0])
}
