// Package api exposes the orchestrator over HTTP. Vendor-specific
// payload shapes never appear here; every body is opaque JSON.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go-orchestrator/agent"
	"go-orchestrator/model"
	"go-orchestrator/orchestrator"
	"go-orchestrator/registry"
	"go-orchestrator/store"
)

type Server struct {
	orc *orchestrator.Orchestrator
	reg *registry.Registry
}

func NewServer(addr string, orc *orchestrator.Orchestrator, reg *registry.Registry) *http.Server {
	mux := http.NewServeMux()

	srv := &Server{orc: orc, reg: reg}
	mux.HandleFunc("GET /health", srv.health)
	mux.HandleFunc("POST /tasks", srv.postTask)
	mux.HandleFunc("GET /tasks", srv.getTasks)
	mux.HandleFunc("GET /tasks/{id}", srv.getTask)
	mux.HandleFunc("POST /tasks/{id}/execute", srv.executeTask)
	mux.HandleFunc("POST /workflows", srv.postWorkflow)
	mux.HandleFunc("POST /conversations/analyze", srv.analyzeConversations)
	mux.HandleFunc("GET /services", srv.getServices)

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createTaskRequest struct {
	Capability string         `json:"capability"`
	ProjectID  int64          `json:"project_id"`
	Payload    map[string]any `json:"payload"`
	Priority   string         `json:"priority"`
}

func (s *Server) postTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "[API] Invalid request body", http.StatusBadRequest)
		return
	}

	capability, err := model.ParseCapability(req.Capability)
	if err != nil {
		http.Error(w, "[API] "+err.Error(), http.StatusBadRequest)
		return
	}
	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		http.Error(w, "[API] "+err.Error(), http.StatusBadRequest)
		return
	}

	taskID := s.orc.CreateTask(capability, req.ProjectID, req.Payload, priority)
	writeJSON(w, http.StatusCreated, map[string]string{"task_id": taskID})
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	status, err := s.orc.GetTaskStatus(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) getTasks(w http.ResponseWriter, r *http.Request) {
	projectParam := r.URL.Query().Get("project_id")
	if projectParam == "" {
		writeJSON(w, http.StatusOK, s.orc.ListTasks())
		return
	}

	projectID, err := strconv.ParseInt(projectParam, 10, 64)
	if err != nil {
		http.Error(w, "[API] Invalid project id", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.orc.ListProjectTasks(projectID))
}

func (s *Server) executeTask(w http.ResponseWriter, r *http.Request) {
	result, err := s.orc.ExecuteTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type workflowRequest struct {
	ProjectID int64                     `json:"project_id"`
	Stages    map[string]map[string]any `json:"stages"`
}

func (s *Server) postWorkflow(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "[API] Invalid request body", http.StatusBadRequest)
		return
	}

	for stage := range req.Stages {
		if _, err := model.ParseCapability(stage); err != nil {
			http.Error(w, "[API] Unknown workflow stage: "+stage, http.StatusBadRequest)
			return
		}
	}

	results, err := s.orc.ExecuteWorkflow(r.Context(), req.ProjectID, req.Stages)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type analyzeRequest struct {
	ProjectID     int64            `json:"project_id"`
	Conversations []map[string]any `json:"conversations"`
}

func (s *Server) analyzeConversations(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "[API] Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.orc.AnalyzeConversations(r.Context(), req.ProjectID, req.Conversations)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"connections": s.reg.Status(),
		"connected":   s.reg.ConnectedServices(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, "[API] Encoding error", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var upstream *registry.UpstreamError
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		http.Error(w, "[API] "+err.Error(), http.StatusNotFound)
	case errors.Is(err, orchestrator.ErrAgentUnavailable):
		http.Error(w, "[API] "+err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, store.ErrInvalidTransition):
		http.Error(w, "[API] "+err.Error(), http.StatusConflict)
	case errors.Is(err, agent.ErrUnknownVariant):
		http.Error(w, "[API] "+err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &upstream), errors.Is(err, registry.ErrServiceUnavailable):
		http.Error(w, "[API] "+err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, "[API] "+err.Error(), http.StatusInternalServerError)
	}
}
