package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/theinterneti/loom/pkg/flow"
)

// registry holds workflow definitions by name and version. The most recently
// registered version of a name is its latest.
type registry struct {
	mu     sync.RWMutex
	byName map[string]map[string]flow.Workflow
	latest map[string]string
}

func newRegistry() *registry {
	return &registry{
		byName: make(map[string]map[string]flow.Workflow),
		latest: make(map[string]string),
	}
}

func (r *registry) register(wf flow.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions := r.byName[wf.Name]
	if versions == nil {
		versions = make(map[string]flow.Workflow)
		r.byName[wf.Name] = versions
	}

	if _, exists := versions[wf.Version]; exists {
		return fmt.Errorf("workflow %q version %q already registered", wf.Name, wf.Version)
	}

	versions[wf.Version] = wf
	r.latest[wf.Name] = wf.Version
	return nil
}

func (r *registry) get(name, version string) (flow.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wf, ok := r.byName[name][version]
	if !ok {
		return flow.Workflow{}, fmt.Errorf("workflow %q version %q: %w", name, version, flow.ErrWorkflowNotFound)
	}
	return wf, nil
}

func (r *registry) getLatest(name string) (flow.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version, ok := r.latest[name]
	if !ok {
		return flow.Workflow{}, fmt.Errorf("workflow %q: %w", name, flow.ErrWorkflowNotFound)
	}
	return r.byName[name][version], nil
}

func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *registry) versions(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byName[name]))
	for version := range r.byName[name] {
		out = append(out, version)
	}
	sort.Strings(out)
	return out
}
