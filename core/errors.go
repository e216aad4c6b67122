package core

import (
	"errors"
	"fmt"
)

// Phase names the lifecycle step in which a node failed.
type Phase string

const (
	PhasePrep  Phase = "prep"
	PhaseItems Phase = "items"
	PhaseExec  Phase = "exec"
	PhasePost  Phase = "post"
)

// NodeError is returned by Run when a node or flow fails fatally: Prep or
// Post returned an error, a batch sequence failed to iterate, or ExecFallback
// returned an error.
type NodeError struct {
	Node  string
	Phase Phase
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.Node, e.Phase, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// wrapNodeError attributes err to node and phase unless it already carries a
// NodeError from a nested workflow, in which case the innermost one is kept.
func wrapNodeError(node string, phase Phase, err error) error {
	if err == nil {
		return nil
	}
	var ne *NodeError
	if errors.As(err, &ne) {
		return err
	}
	return &NodeError{Node: node, Phase: phase, Err: err}
}
