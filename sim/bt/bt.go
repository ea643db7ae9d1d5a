// Package bt provides a small, generic behavior-tree engine.
//
// Trees are built once and are immutable afterwards, so one tree can be
// shared by any number of concurrently running games. All mutable state
// lives in the subject S passed to Evaluate; nodes never hold any.
package bt

// Status is the result of evaluating a node.
type Status int

const (
	// Failure means the node did not apply.
	Failure Status = iota
	// Success means the node applied.
	Success
	// Running means the node has not finished. The engine propagates it
	// like any other non-terminal result but never produces it itself.
	Running
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Running:
		return "running"
	default:
		return "failure"
	}
}

// Node is any behavior-tree node. S is the shared subject (usually the
// simulation) and A the actor the tree is evaluated for.
type Node[S, A any] interface {
	Evaluate(s S, actor A) Status
}

// Selector evaluates children in order and returns the first result
// that is not Failure. It fails only when every child fails.
type Selector[S, A any] struct {
	Children []Node[S, A]
}

// NewSelector creates a Selector over the given children.
func NewSelector[S, A any](children ...Node[S, A]) *Selector[S, A] {
	return &Selector[S, A]{Children: children}
}

// Evaluate implements Node.
func (n *Selector[S, A]) Evaluate(s S, actor A) Status {
	for _, child := range n.Children {
		if st := child.Evaluate(s, actor); st != Failure {
			return st
		}
	}
	return Failure
}

// Sequence evaluates children in order and stops at the first result
// that is not Success. It succeeds only when every child succeeds.
type Sequence[S, A any] struct {
	Children []Node[S, A]
}

// NewSequence creates a Sequence over the given children.
func NewSequence[S, A any](children ...Node[S, A]) *Sequence[S, A] {
	return &Sequence[S, A]{Children: children}
}

// Evaluate implements Node.
func (n *Sequence[S, A]) Evaluate(s S, actor A) Status {
	for _, child := range n.Children {
		if st := child.Evaluate(s, actor); st != Success {
			return st
		}
	}
	return Success
}

// Predicate is the test behind a Condition. It must not mutate s.
type Predicate[S, A any] func(s S, actor A) bool

// Condition is a leaf that succeeds when its predicate holds.
type Condition[S, A any] struct {
	Kind string
	Test Predicate[S, A]
}

// NewCondition creates a named Condition leaf.
func NewCondition[S, A any](kind string, test Predicate[S, A]) *Condition[S, A] {
	return &Condition[S, A]{Kind: kind, Test: test}
}

// Evaluate implements Node.
func (n *Condition[S, A]) Evaluate(s S, actor A) Status {
	if n.Test(s, actor) {
		return Success
	}
	return Failure
}

// Effect is the body of an Action. It mutates s and reports Failure only
// when it has no valid target.
type Effect[S, A any] func(s S, actor A) Status

// Action is a leaf that applies an effect.
type Action[S, A any] struct {
	Kind string
	Run  Effect[S, A]
}

// NewAction creates a named Action leaf.
func NewAction[S, A any](kind string, run Effect[S, A]) *Action[S, A] {
	return &Action[S, A]{Kind: kind, Run: run}
}

// Evaluate implements Node.
func (n *Action[S, A]) Evaluate(s S, actor A) Status {
	return n.Run(s, actor)
}
