package flow

import "time"

// Status is the lifecycle state of an Execution.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Workflow is a named, versioned primitive graph registered with an Engine.
type Workflow struct {
	Name string
	// Version distinguishes coexisting revisions of the same name.
	// Empty defaults to "v1" at registration.
	Version string
	// Root is the graph's entry primitive.
	Root Primitive
}

// Execution is one run of a workflow. The engine stamps lifecycle fields as
// the run progresses; values returned from engine methods are snapshots.
type Execution struct {
	ID            string
	Workflow      string
	Version       string
	CorrelationID string
	Status        Status
	Input         any
	Output        any
	Err           error
	StartedAt     time.Time
	EndedAt       time.Time
}

// ExecutionListOptions filters ListExecutions. Zero-value fields match
// everything.
type ExecutionListOptions struct {
	Workflow string
	Status   Status
}
