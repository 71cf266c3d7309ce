package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"
)

var (
	ErrServiceUnknown     = errors.New("registry: service not configured")
	ErrServiceUnavailable = errors.New("registry: service not connected")
)

// UpstreamError reports a vendor call that reached the service but came
// back non-2xx, or failed in transport.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry: %s upstream error: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("registry: %s upstream error: status %d: %s", e.Service, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

type ConnectionStatus string

const (
	StatusConnected ConnectionStatus = "connected"
	StatusError     ConnectionStatus = "error"
	StatusUnknown   ConnectionStatus = "unknown"
)

// Connection is the cached reachability state of one service. Status is
// refreshed only by Initialize or Refresh, never by business calls.
type Connection struct {
	Endpoint    string           `json:"endpoint"`
	Status      ConnectionStatus `json:"status"`
	LastChecked time.Time        `json:"last_checked"`
	Error       string           `json:"error,omitempty"`
}

const (
	probeTimeout = 5 * time.Second
	callTimeout  = 10 * time.Second
)

// Registry holds a fixed set of named external-service connections and
// a uniform send/receive contract over them. Probing happens once at
// startup; staleness between probes is an accepted limitation, use
// Refresh for an explicit re-check.
type Registry struct {
	endpoints map[string]string
	client    *http.Client

	mu          sync.RWMutex
	connections map[string]Connection
	initialized bool
}

func New(endpoints map[string]string) *Registry {
	eps := make(map[string]string, len(endpoints))
	for name, endpoint := range endpoints {
		eps[name] = endpoint
	}
	return &Registry{
		endpoints:   eps,
		client:      &http.Client{Timeout: callTimeout},
		connections: make(map[string]Connection),
	}
}

// Initialize probes every configured endpoint once. A failed probe is
// recorded on that connection and never aborts the others. Calling
// Initialize again is a no-op.
func (r *Registry) Initialize(ctx context.Context) error {
	r.mu.Lock()
	if r.initialized {
		r.mu.Unlock()
		return nil
	}
	r.initialized = true
	r.mu.Unlock()

	r.probeAll(ctx)
	slog.Info("service registry initialized", "connected", len(r.ConnectedServices()), "configured", len(r.endpoints))
	return nil
}

// Refresh re-probes every endpoint. This is the only path that mutates
// connection status after startup.
func (r *Registry) Refresh(ctx context.Context) {
	r.probeAll(ctx)
}

func (r *Registry) probeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for name, endpoint := range r.endpoints {
		wg.Add(1)
		go func(name, endpoint string) {
			defer wg.Done()
			conn := r.probe(ctx, name, endpoint)
			r.mu.Lock()
			r.connections[name] = conn
			r.mu.Unlock()
		}(name, endpoint)
	}
	wg.Wait()
}

func (r *Registry) probe(ctx context.Context, name, endpoint string) Connection {
	conn := Connection{Endpoint: endpoint, LastChecked: time.Now().UTC()}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, endpoint+"/health", nil)
	if err != nil {
		conn.Status = StatusError
		conn.Error = err.Error()
		return conn
	}
	resp, err := r.client.Do(req)
	if err != nil {
		conn.Status = StatusError
		conn.Error = err.Error()
		slog.Warn("service probe failed", "service", name, "error", err)
		return conn
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusOK {
		conn.Status = StatusConnected
	} else {
		conn.Status = StatusError
		conn.Error = fmt.Sprintf("health check returned %d", resp.StatusCode)
		slog.Warn("service probe rejected", "service", name, "status", resp.StatusCode)
	}
	return conn
}

// Shutdown releases network resources and clears the connection map.
// Safe to call more than once.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized && len(r.connections) == 0 {
		return
	}
	r.client.CloseIdleConnections()
	r.connections = make(map[string]Connection)
	r.initialized = false
	slog.Info("service registry shut down")
}

// Connected reports whether the named service's cached status is
// connected. Callers use this to short-circuit before attempting a call.
func (r *Registry) Connected(service string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connections[service].Status == StatusConnected
}

// ConnectedServices returns the sorted names of services whose cached
// status is connected.
func (r *Registry) ConnectedServices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.connections))
	for name, conn := range r.connections {
		if conn.Status == StatusConnected {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Status returns a snapshot of every connection.
func (r *Registry) Status() map[string]Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Connection, len(r.connections))
	for name, conn := range r.connections {
		out[name] = conn
	}
	return out
}

// Send forwards an opaque JSON payload to the service's /send route.
func (r *Registry) Send(ctx context.Context, service string, payload map[string]any) (map[string]any, error) {
	return r.post(ctx, service, "/send", payload)
}

// CreateDocument creates a document on a document service (notion).
func (r *Registry) CreateDocument(ctx context.Context, service string, document map[string]any) (map[string]any, error) {
	return r.post(ctx, service, "/documents", document)
}

// ScheduleMeeting schedules a meeting on a meeting service (webex).
func (r *Registry) ScheduleMeeting(ctx context.Context, service string, meeting map[string]any) (map[string]any, error) {
	return r.post(ctx, service, "/meetings", meeting)
}

// CreateRepository creates a repository on a code-hosting service.
func (r *Registry) CreateRepository(ctx context.Context, service string, repo map[string]any) (map[string]any, error) {
	return r.post(ctx, service, "/repositories", repo)
}

// ExecuteQuery runs a query on a data service (postgresql, redis).
func (r *Registry) ExecuteQuery(ctx context.Context, service string, query map[string]any) (map[string]any, error) {
	return r.post(ctx, service, "/query", query)
}

// ManageContainer drives a container service (docker).
func (r *Registry) ManageContainer(ctx context.Context, service string, container map[string]any) (map[string]any, error) {
	return r.post(ctx, service, "/containers", container)
}

// Messages fetches messages from a channel service, filtered by the
// given query parameters.
func (r *Registry) Messages(ctx context.Context, service string, filters map[string]string) ([]map[string]any, error) {
	endpoint, err := r.connectedEndpoint(service)
	if err != nil {
		return nil, err
	}

	target, err := url.Parse(endpoint + "/messages")
	if err != nil {
		return nil, &UpstreamError{Service: service, Err: err}
	}
	q := target.Query()
	for key, value := range filters {
		q.Set(key, value)
	}
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &UpstreamError{Service: service, Err: err}
	}
	var body struct {
		Messages []map[string]any `json:"messages"`
	}
	if err := r.do(service, req, &body); err != nil {
		return nil, err
	}
	return body.Messages, nil
}

func (r *Registry) post(ctx context.Context, service, path string, payload map[string]any) (map[string]any, error) {
	endpoint, err := r.connectedEndpoint(service)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &UpstreamError{Service: service, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+path, bytes.NewReader(data))
	if err != nil {
		return nil, &UpstreamError{Service: service, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var result map[string]any
	if err := r.do(service, req, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Registry) do(service string, req *http.Request, out any) error {
	resp, err := r.client.Do(req)
	if err != nil {
		return &UpstreamError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UpstreamError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Service: service, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (r *Registry) connectedEndpoint(service string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	endpoint, ok := r.endpoints[service]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrServiceUnknown, service)
	}
	if r.connections[service].Status != StatusConnected {
		return "", fmt.Errorf("%w: %s", ErrServiceUnavailable, service)
	}
	return endpoint, nil
}
