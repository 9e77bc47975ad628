package flow

import (
	"context"
	"errors"
)

var (
	// ErrWorkflowNotFound reports a name or name/version with no
	// registration.
	ErrWorkflowNotFound = errors.New("workflow not found")
	// ErrExecutionNotFound reports an unknown execution id.
	ErrExecutionNotFound = errors.New("execution not found")
	// ErrNotResumable reports a Resume call on an execution that is not in
	// the failed state.
	ErrNotResumable = errors.New("execution is not resumable")
)

// Engine registers workflows and runs them, tracking each run as an
// Execution.
type Engine interface {
	// Register adds a workflow. Registering the same name and version twice
	// is an error; new versions of an existing name coexist with old ones.
	Register(workflow Workflow) error

	// Run executes the latest registered version of the named workflow
	// synchronously and returns the finished execution snapshot. The
	// returned error is the workflow's failure, also recorded on the
	// snapshot.
	Run(ctx context.Context, workflow string, input any) (*Execution, error)

	// RunVersion is Run pinned to an explicit version.
	RunVersion(ctx context.Context, workflow, version string, input any) (*Execution, error)

	// Execution returns a snapshot of one run.
	Execution(ctx context.Context, id string) (*Execution, error)

	// ListExecutions returns snapshots of runs matching opts, oldest first.
	ListExecutions(ctx context.Context, opts ExecutionListOptions) ([]*Execution, error)

	// Resume re-runs a failed execution from its recorded input, keeping
	// the execution id but assigning a fresh correlation id.
	Resume(ctx context.Context, id string) (*Execution, error)

	// Workflows lists the registered workflow names, sorted.
	Workflows() []string

	// Versions lists the registered versions of one workflow name, sorted.
	Versions(workflow string) []string
}
