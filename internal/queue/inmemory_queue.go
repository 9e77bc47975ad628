package queue

import "context"

// DefaultCapacity bounds an InMemoryQueue built with a non-positive
// capacity.
const DefaultCapacity = 1024

// InMemoryQueue is a bounded channel-backed Queue.
type InMemoryQueue struct {
	tasks chan Task
}

// NewInMemoryQueue builds a queue holding up to capacity tasks.
func NewInMemoryQueue(capacity int) *InMemoryQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryQueue{tasks: make(chan Task, capacity)}
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, task Task) error {
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) (*Task, error) {
	select {
	case task := <-q.tasks:
		return &task, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *InMemoryQueue) Len() int {
	return len(q.tasks)
}
