package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/verustcode/codesync/internal/model"
)

// Task is one queued synchronization of a project. Its completion is
// signalled through Done; Result is valid afterwards.
type Task struct {
	ID        string
	ProjectID uint
	// Branch overrides the project's stored branch when set
	Branch     string
	Trigger    string
	EnqueuedAt time.Time

	done   chan struct{}
	once   sync.Once
	result Result
}

// Result is the outcome of a finished task
type Result struct {
	Project *model.Project
	// Report is nil only when no project could be loaded
	Report *model.Report
	// Err is the sync failure, nil when the code was updated
	Err error
}

func newTask(id string, projectID uint, branch, trigger string) *Task {
	return &Task{
		ID:         id,
		ProjectID:  projectID,
		Branch:     branch,
		Trigger:    trigger,
		EnqueuedAt: time.Now(),
		done:       make(chan struct{}),
	}
}

// Done is closed when the task has finished
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Result returns the outcome. It must only be called after Done is closed.
func (t *Task) Result() Result {
	return t.result
}

// Wait blocks until the task finishes or ctx ends
func (t *Task) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (t *Task) complete(r Result) {
	t.once.Do(func() {
		t.result = r
		close(t.done)
	})
}
