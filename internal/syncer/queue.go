package syncer

import (
	"container/list"
	"sync"

	"go.uber.org/zap"

	"github.com/verustcode/codesync/pkg/logger"
)

// ProjectQueue holds one FIFO queue per project. At most one task per
// project runs at a time; different projects proceed concurrently.
type ProjectQueue struct {
	mu sync.RWMutex

	queues map[uint]*projectQueue
	// tasksByID holds pending and running tasks
	tasksByID map[string]*Task
	capacity  int
	pending   int

	taskReady chan struct{}
	stopped   bool
}

type projectQueue struct {
	tasks         *list.List
	running       bool
	currentTaskID string
}

// NewProjectQueue creates a queue accepting at most capacity pending tasks.
// A non-positive capacity means unbounded.
func NewProjectQueue(capacity int) *ProjectQueue {
	return &ProjectQueue{
		queues:    make(map[uint]*projectQueue),
		tasksByID: make(map[string]*Task),
		capacity:  capacity,
		taskReady: make(chan struct{}, 1),
	}
}

// Enqueue appends task to its project's queue
func (q *ProjectQueue) Enqueue(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrStopped
	}
	if _, exists := q.tasksByID[task.ID]; exists {
		return nil
	}
	if q.capacity > 0 && q.pending >= q.capacity {
		return ErrQueueFull
	}

	pq, ok := q.queues[task.ProjectID]
	if !ok {
		pq = &projectQueue{tasks: list.New()}
		q.queues[task.ProjectID] = pq
	}
	pq.tasks.PushBack(task)
	q.tasksByID[task.ID] = task
	q.pending++

	logger.Debug("Sync task enqueued",
		zap.String("task_id", task.ID),
		zap.Uint("project_id", task.ProjectID),
		zap.Int("project_pending", pq.tasks.Len()),
	)

	q.signalTaskReady()
	return nil
}

// Dequeue returns the oldest pending task of a project with nothing
// running, marking that project as running. It returns nil when no task can
// start.
func (q *ProjectQueue) Dequeue() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var next *Task
	for _, pq := range q.queues {
		if pq.running || pq.tasks.Len() == 0 {
			continue
		}
		// Oldest head across projects first
		head := pq.tasks.Front().Value.(*Task)
		if next == nil || head.EnqueuedAt.Before(next.EnqueuedAt) {
			next = head
		}
	}
	if next == nil {
		return nil
	}

	pq := q.queues[next.ProjectID]
	pq.tasks.Remove(pq.tasks.Front())
	pq.running = true
	pq.currentTaskID = next.ID
	q.pending--
	return next
}

// MarkComplete clears the running state of the task's project so its next
// task can start.
func (q *ProjectQueue) MarkComplete(task *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.tasksByID, task.ID)

	pq, ok := q.queues[task.ProjectID]
	if !ok {
		logger.Warn("MarkComplete called for unknown project",
			zap.Uint("project_id", task.ProjectID),
			zap.String("task_id", task.ID),
		)
		return
	}
	pq.running = false
	pq.currentTaskID = ""

	if pq.tasks.Len() == 0 {
		delete(q.queues, task.ProjectID)
	}
	q.signalTaskReady()
}

// HasPending reports whether projectID has a task waiting to start
func (q *ProjectQueue) HasPending(projectID uint) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	pq, ok := q.queues[projectID]
	return ok && pq.tasks.Len() > 0
}

// TaskReady signals that Dequeue may return a task
func (q *ProjectQueue) TaskReady() <-chan struct{} {
	return q.taskReady
}

func (q *ProjectQueue) signalTaskReady() {
	select {
	case q.taskReady <- struct{}{}:
	default:
	}
}

// Drain removes and returns every pending task
func (q *ProjectQueue) Drain() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*Task
	for id, pq := range q.queues {
		for e := pq.tasks.Front(); e != nil; e = e.Next() {
			t := e.Value.(*Task)
			out = append(out, t)
			delete(q.tasksByID, t.ID)
		}
		pq.tasks.Init()
		if !pq.running {
			delete(q.queues, id)
		}
	}
	q.pending = 0
	return out
}

// Stop rejects further tasks
func (q *ProjectQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
}

// QueueStats holds queue statistics
type QueueStats struct {
	TotalPending int
	TotalRunning int
	ProjectCount int
}

// Stats returns queue statistics
func (q *ProjectQueue) Stats() QueueStats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := QueueStats{TotalPending: q.pending, ProjectCount: len(q.queues)}
	for _, pq := range q.queues {
		if pq.running {
			stats.TotalRunning++
		}
	}
	return stats
}
