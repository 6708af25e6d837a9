package edit

import (
	"errors"
	"fmt"
)

// Precondition identifies which of the five edit preconditions failed.
type Precondition int

const (
	// PreParentInTxn: the parent location named by the op must already
	// exist in the transaction (mk, cp, mv, res, add).
	PreParentInTxn Precondition = iota + 1
	// PreNameFree: the target name must be unused among its new siblings.
	PreNameFree
	// PreSourceCommitted: the copy source must exist at a committed revision.
	PreSourceCommitted
	// PreSourceInTxn: the copy/move source must exist within the current txn.
	PreSourceInTxn
	// PreTargetInTxn: the op's target node-branch must already exist in
	// the transaction (rm, put, delete, alter).
	PreTargetInTxn
)

func (p Precondition) String() string {
	switch p {
	case PreParentInTxn:
		return "parent not in transaction"
	case PreNameFree:
		return "name already in use"
	case PreSourceCommitted:
		return "source not found at committed revision"
	case PreSourceInTxn:
		return "source not found in transaction"
	case PreTargetInTxn:
		return "target not in transaction"
	default:
		return "unknown precondition"
	}
}

// PreconditionViolated reports that an edit operation's preconditions
// [1]-[5] were not met.
type PreconditionViolated struct {
	Op   string
	Pre  Precondition
	Name string
}

func (e *PreconditionViolated) Error() string {
	return fmt.Sprintf("%s: precondition %d violated: %s (%s)", e.Op, e.Pre, e.Pre, e.Name)
}

// OutOfDate reports a rebase conflict: the node-branch's own name,
// parent, or content changed since the op's stated base revision.
type OutOfDate struct {
	Op       string
	ID       NodeID
	SinceRev int64
	ChangedAt int64
}

func (e *OutOfDate) Error() string {
	return fmt.Sprintf("%s: node %s out of date: based on r%d, changed at r%d", e.Op, e.ID, e.SinceRev, e.ChangedAt)
}

// ErrTerminal marks an edit operation attempted after complete/abort.
var ErrTerminal = errors.New("transaction already completed or aborted")

// ErrCycle marks an edit that would introduce a cycle in the final tree.
var ErrCycle = errors.New("edit would introduce a cycle")

// ErrKindMismatch marks a put whose content kind does not match the
// existing node-branch's kind.
var ErrKindMismatch = errors.New("content kind does not match existing node kind")

// ErrAlreadySet marks a second put on the same node-branch within one edit.
var ErrAlreadySet = errors.New("content already set for this node-branch in this edit")

// ErrUnsupportedStyle marks an addressing style the receiver does not
// implement (spec: "unsupported slots are null, and invoking one
// surfaces an error").
var ErrUnsupportedStyle = errors.New("addressing style not supported")
