// Package task tracks long-running batch operations in memory. Each command
// that validates channels creates a task record and patches its counters as
// workers complete, so callers can observe progress and outcome.
package task

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jmylchreest/checkarr/internal/models"
)

var (
	// ErrTaskNotFound is returned when the task id is unknown.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskNotDeletable is returned when deletion is attempted on a task
	// that is still initializing, running, or ended in error.
	ErrTaskNotDeletable = errors.New("task not deletable")
)

// Patch describes a partial task update. Nil fields are left unchanged.
type Patch struct {
	Status      *models.TaskStatus
	Description *string
	URL         *string
	Total       *int
	Processed   *int
	Success     *int
	Result      map[string]any
	Error       *string
}

// Registry is a concurrency-safe in-memory task store.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*models.Task)}
}

// Create registers a new task and returns its id. The record passes through
// initializing and lands in pending before Create returns.
func (r *Registry) Create(typ models.TaskType, description, url string, total int) string {
	t := models.NewTask(typ, description)
	t.URL = url
	t.Total = total
	// The initializing window is not observable through this registry; the
	// record is pending by the time it is stored.
	_ = t.SetStatus(models.TaskStatusPending)

	r.mu.Lock()
	r.tasks[t.ID] = t
	r.mu.Unlock()
	return t.ID
}

// Get returns a snapshot clone of the task.
func (r *Registry) Get(id string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t.Clone(), nil
}

// Update applies a partial patch. Status changes are validated against the
// task lifecycle; counters trigger a progress recompute.
func (r *Registry) Update(id string, patch Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if patch.Status != nil {
		if err := t.SetStatus(*patch.Status); err != nil {
			return err
		}
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.URL != nil {
		t.URL = *patch.URL
	}
	if patch.Total != nil {
		t.Total = *patch.Total
	}
	if patch.Processed != nil {
		t.Processed = *patch.Processed
	}
	if patch.Success != nil {
		t.Success = *patch.Success
	}
	if patch.Result != nil {
		t.Result = patch.Result
	}
	if patch.Error != nil {
		t.Error = *patch.Error
	}
	t.RecomputeProgress()
	t.Touch()
	return nil
}

// Apply runs fn against the live task record under the registry lock. Used
// by the orchestrator to bump counters atomically. Progress is recomputed
// after fn returns.
func (r *Registry) Apply(id string, fn func(*models.Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	fn(t)
	t.RecomputeProgress()
	t.Touch()
	return nil
}

// Delete removes a task. Only pending, completed, and failed tasks may be
// deleted.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if !t.Deletable() {
		return fmt.Errorf("%w: %s is %s", ErrTaskNotDeletable, id, t.Status)
	}
	delete(r.tasks, id)
	return nil
}

// List returns snapshot clones of every task, newest first.
func (r *Registry) List() []*models.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Clear drops every task regardless of status.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = make(map[string]*models.Task)
}
