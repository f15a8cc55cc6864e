package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskType identifies what kind of work a task tracks.
type TaskType string

const (
	// TaskTypeCheck is a batch channel validation run.
	TaskTypeCheck TaskType = "check"
	// TaskTypeUpdate is a full source refresh and revalidation run.
	TaskTypeUpdate TaskType = "update"
)

// TaskStatus represents the current status of a task.
type TaskStatus string

const (
	// TaskStatusInitializing indicates the task record is being created.
	TaskStatusInitializing TaskStatus = "initializing"
	// TaskStatusPending indicates the task is waiting to be executed.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning indicates the task is currently executing.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusError indicates the task aborted with an error.
	TaskStatusError TaskStatus = "error"
	// TaskStatusFailed indicates the task ran but produced no usable result.
	TaskStatusFailed TaskStatus = "failed"
)

// terminal statuses cannot transition anywhere else.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusInitializing: {TaskStatusPending},
	TaskStatusPending:      {TaskStatusRunning},
	TaskStatusRunning:      {TaskStatusCompleted, TaskStatusError, TaskStatusFailed},
}

// ErrInvalidTransition is returned when a status update would skip or
// reverse the task lifecycle.
var ErrInvalidTransition = errors.New("invalid task transition")

// CanTransition reports whether from may move to to.
func CanTransition(from, to TaskStatus) bool {
	for _, next := range taskTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	return len(taskTransitions[s]) == 0
}

// Task is a long-running operation record with progress accounting.
type Task struct {
	ID          string         `json:"task_id"`
	Type        TaskType       `json:"type"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url,omitempty"`
	Status      TaskStatus     `json:"status"`
	Total       int            `json:"total"`
	Processed   int            `json:"processed"`
	Success     int            `json:"success"`
	Progress    float64        `json:"progress"`
	CreatedAt   int64          `json:"created_at"`
	UpdatedAt   int64          `json:"updated_at"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// NewTaskID produces a 32-character hex identifier.
func NewTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewTask creates a task in the initializing state.
func NewTask(typ TaskType, description string) *Task {
	now := time.Now().Unix()
	return &Task{
		ID:          NewTaskID(),
		Type:        typ,
		Description: description,
		Status:      TaskStatusInitializing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SetStatus moves the task to the given status, validating the transition.
func (t *Task) SetStatus(status TaskStatus) error {
	if status == t.Status {
		return nil
	}
	if !CanTransition(t.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, status)
	}
	t.Status = status
	t.Touch()
	return nil
}

// Touch refreshes the update timestamp.
func (t *Task) Touch() {
	t.UpdatedAt = time.Now().Unix()
}

// RecomputeProgress derives the percentage from processed/total, rounded to
// two decimals. A zero total leaves progress at zero.
func (t *Task) RecomputeProgress() {
	if t.Total <= 0 {
		t.Progress = 0
		return
	}
	t.Progress = math.Round(float64(t.Processed)/float64(t.Total)*100*100) / 100
}

// Deletable reports whether the task may be removed from the registry.
// Running, initializing and errored tasks must be left alone.
func (t *Task) Deletable() bool {
	switch t.Status {
	case TaskStatusPending, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// Clone returns a deep copy safe to hand to callers.
func (t *Task) Clone() *Task {
	out := *t
	if t.Result != nil {
		out.Result = cloneResultMap(t.Result)
	}
	return &out
}

// cloneResultMap copies a result payload, duplicating the slice and map
// values (channel id lists and the like) so snapshots never share backing
// storage with the live record.
func cloneResultMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneResultValue(v)
	}
	return out
}

func cloneResultValue(v any) any {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneResultValue(item)
		}
		return out
	case map[string]any:
		return cloneResultMap(val)
	}
	return v
}
