package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/theinterneti/loom/internal/queue"
	"github.com/theinterneti/loom/pkg/flow"
)

// Worker pulls run requests from a Queue and executes them on an Engine.
type Worker struct {
	engine flow.Engine
	queue  queue.Queue
}

// New creates a Worker.
func New(engine flow.Engine, q queue.Queue) *Worker {
	return &Worker{engine: engine, queue: q}
}

// EnqueueRun queues a run of the named workflow's latest version. It does
// not run the workflow itself; that is done by ProcessOne.
func (w *Worker) EnqueueRun(ctx context.Context, workflow string, input any) error {
	return w.queue.Enqueue(ctx, queue.Task{
		ID:         uuid.NewString(),
		Workflow:   workflow,
		Input:      input,
		EnqueuedAt: time.Now(),
	})
}

// EnqueueRunVersion queues a run pinned to an explicit workflow version.
func (w *Worker) EnqueueRunVersion(ctx context.Context, workflow, version string, input any) error {
	return w.queue.Enqueue(ctx, queue.Task{
		ID:         uuid.NewString(),
		Workflow:   workflow,
		Version:    version,
		Input:      input,
		EnqueuedAt: time.Now(),
	})
}

// ProcessOne pulls a single task from the queue and runs it.
// Returns (processed, error):
//   - processed == false: no task was obtained, err is the dequeue error
//   - processed == true: a task ran; err is the workflow's failure, if any
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	if task.Version != "" {
		_, runErr := w.engine.RunVersion(ctx, task.Workflow, task.Version, task.Input)
		return true, runErr
	}
	_, runErr := w.engine.Run(ctx, task.Workflow, task.Input)
	return true, runErr
}
