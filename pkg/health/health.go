// Package health aggregates per-service availability checks into the
// status reported by the health endpoint.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Status labels for the aggregate and per-service results.
const (
	StatusHealthy     = "healthy"
	StatusDegraded    = "degraded"
	StatusOperational = "operational"
	StatusUnavailable = "unavailable"
)

// Check probes one service. A nil return means the service is usable.
type Check func(ctx context.Context) error

// Report is the aggregate health snapshot.
type Report struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Models    map[string]string `json:"models"`
}

// Reporter runs registered checks and summarizes the results.
type Reporter struct {
	mu      sync.RWMutex
	checks  map[string]Check
	models  map[string]string
	timeout time.Duration
	logger  *slog.Logger
}

// NewReporter creates a reporter. Each check is bounded by timeout;
// values below 1ms fall back to 5s.
func NewReporter(timeout time.Duration) *Reporter {
	if timeout < time.Millisecond {
		timeout = 5 * time.Second
	}
	return &Reporter{
		checks:  make(map[string]Check),
		models:  make(map[string]string),
		timeout: timeout,
		logger:  slog.Default().With("component", "health"),
	}
}

// Register adds or replaces the check for a named service.
func (r *Reporter) Register(name string, check Check) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = check
}

// SetModel records a model identifier surfaced alongside the report,
// such as the loaded recognition model or the active voice.
func (r *Reporter) SetModel(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[key] = value
}

// Report runs every registered check and returns the aggregate status:
// healthy when all services are operational, degraded otherwise. Checks
// run concurrently; a panicking check marks its service unavailable
// instead of taking the reporter down.
func (r *Reporter) Report(ctx context.Context) Report {
	r.mu.RLock()
	names := make([]string, 0, len(r.checks))
	checks := make(map[string]Check, len(r.checks))
	for name, check := range r.checks {
		names = append(names, name)
		checks[name] = check
	}
	models := make(map[string]string, len(r.models))
	for k, v := range r.models {
		models[k] = v
	}
	r.mu.RUnlock()

	sort.Strings(names)

	results := make(map[string]string, len(names))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, name := range names {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			status := StatusOperational
			if err := r.run(ctx, name, check); err != nil {
				status = StatusUnavailable
			}
			mu.Lock()
			results[name] = status
			mu.Unlock()
		}(name, checks[name])
	}
	wg.Wait()

	status := StatusHealthy
	for _, s := range results {
		if s != StatusOperational {
			status = StatusDegraded
			break
		}
	}

	return Report{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  results,
		Models:    models,
	}
}

func (r *Reporter) run(ctx context.Context, name string, check Check) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("check panicked: %v", rec)
			r.logger.Error("health check panicked", "service", name, "panic", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := check(ctx); err != nil {
		r.logger.Warn("health check failed", "service", name, "error", err)
		return err
	}
	return nil
}
