// Package queue provides the task queue the local runner feeds its workers
// from. The queue carries run requests, not workflow state; the engine owns
// state once a worker hands a task to it.
package queue

import (
	"context"
	"time"
)

// Task is one queued run request.
type Task struct {
	ID       string
	Workflow string
	// Version pins the run to a workflow version. Empty runs the latest.
	Version    string
	Input      any
	EnqueuedAt time.Time
}

// Queue is a FIFO task queue. Implementations must be safe for concurrent
// producers and consumers.
type Queue interface {
	// Enqueue adds a task, blocking while the queue is full.
	Enqueue(ctx context.Context, task Task) error
	// Dequeue removes the oldest task, blocking while the queue is empty.
	Dequeue(ctx context.Context) (*Task, error)
	// Len reports how many tasks are waiting.
	Len() int
}
