package workflow

import (
	"errors"
	"fmt"
)

// Node is a state of the workflow graph. Each non-terminal node runs one stage.
type Node string

// Nodes.
const (
	NodePlanning     Node = "PLANNING"
	NodeArchitecting Node = "ARCHITECTING"
	NodeCoding       Node = "CODING"
	NodeReviewing    Node = "REVIEWING"
	NodeEnd          Node = "END"
)

// Status is the outcome tag a stage reports. The next node is a function of the
// current node and this tag only.
type Status string

// Statuses.
const (
	StatusPlanned       Status = "PLANNED"
	StatusTasksReady    Status = "TASKS_READY"
	StatusInProgress    Status = "IN_PROGRESS"
	StatusDone          Status = "DONE"
	StatusApproved      Status = "APPROVED"
	StatusBugsFound     Status = "BUGS_FOUND"
	StatusDebuggerError Status = "DEBUGGER_ERROR"
)

// ErrNoTransition is returned for a status the current node cannot emit.
var ErrNoTransition = errors.New("no transition defined")

// Transitions is the complete routing table. A (node, status) pair missing here
// is a programming error surfaced as ErrNoTransition.
//
//nolint:gochecknoglobals // read-only routing table
var Transitions = map[Node]map[Status]Node{
	// The planner always hands its plan to the architect.
	NodePlanning: {
		StatusPlanned: NodeArchitecting,
	},
	// The architect always starts the coder on the new task plan.
	NodeArchitecting: {
		StatusTasksReady: NodeCoding,
	},
	// The coder loops until every step is applied, retrying failed steps in place.
	NodeCoding: {
		StatusInProgress: NodeCoding,
		StatusDone:       NodeReviewing,
	},
	// The debugger approves, sends a fix plan back to the coder, or retries itself.
	NodeReviewing: {
		StatusApproved:      NodeEnd,
		StatusBugsFound:     NodeCoding,
		StatusDebuggerError: NodeReviewing,
	},
}

// Next returns the node that follows from after it reported status.
func Next(from Node, status Status) (Node, error) {
	routes, ok := Transitions[from]
	if !ok {
		return "", fmt.Errorf("%w: node %s has no outgoing edges", ErrNoTransition, from)
	}
	to, ok := routes[status]
	if !ok {
		return "", fmt.Errorf("%w: %s cannot report status %q", ErrNoTransition, from, status)
	}
	return to, nil
}

// IsTerminal reports whether the workflow stops at n.
func (n Node) IsTerminal() bool {
	return n == NodeEnd
}

// AgentName returns the agent that runs the node's stage.
func (n Node) AgentName() string {
	switch n {
	case NodePlanning:
		return "planner"
	case NodeArchitecting:
		return "architect"
	case NodeCoding:
		return "coder"
	case NodeReviewing:
		return "debugger"
	default:
		return "engine"
	}
}
