package engine

import (
	"fmt"
	"sync"

	"github.com/theinterneti/loom/pkg/flow"
)

// executionStore tracks executions in memory. It stores value copies and
// hands out snapshots, so a run mutating its own Execution never races with
// readers; the runner publishes progress through save and update.
type executionStore struct {
	mu         sync.RWMutex
	executions map[string]flow.Execution
	order      []string
}

func newExecutionStore() *executionStore {
	return &executionStore{
		executions: make(map[string]flow.Execution),
	}
}

func (s *executionStore) save(exec *flow.Execution) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.executions[exec.ID]; !exists {
		s.order = append(s.order, exec.ID)
	}
	s.executions[exec.ID] = *exec
}

func (s *executionStore) update(exec *flow.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.executions[exec.ID]; !exists {
		return fmt.Errorf("execution %q: %w", exec.ID, flow.ErrExecutionNotFound)
	}
	s.executions[exec.ID] = *exec
	return nil
}

func (s *executionStore) get(id string) (*flow.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec, ok := s.executions[id]
	if !ok {
		return nil, fmt.Errorf("execution %q: %w", id, flow.ErrExecutionNotFound)
	}
	return &exec, nil
}

// list returns snapshots matching opts in insertion order.
func (s *executionStore) list(opts flow.ExecutionListOptions) []*flow.Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*flow.Execution, 0, len(s.order))
	for _, id := range s.order {
		exec := s.executions[id]
		if opts.Workflow != "" && exec.Workflow != opts.Workflow {
			continue
		}
		if opts.Status != "" && exec.Status != opts.Status {
			continue
		}
		out = append(out, &exec)
	}
	return out
}
