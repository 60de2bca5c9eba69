// Package task provides the submit/join task-parallel executor the block
// algebra uses to fan work out across sibling sub-blocks: an assembly
// pass or a block GEMM can dispatch its four quadrant recursions
// concurrently, bounded by config.Settings.MaxParallelLeaves.
//
// rwcarlsen-fem itself is single-threaded (mesh.Solve runs its sparse
// solvers serially), so there is nothing in the teacher to generalize
// here; golang.org/x/sync/errgroup is the standard library-adjacent
// building block the wider Go ecosystem reaches for to get bounded,
// error-propagating fan-out, and it composes cleanly with the
// context.Context cancellation idiom the teacher's sparse solvers already
// accept (sparse.CG and sparse.GaussSeidel both take an iteration budget
// as an exit condition; errgroup.WithContext gives block algebra the same
// kind of "stop everyone once one fails" behavior).
package task

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Executor bounds how many tasks of one Group may run concurrently and
// propagates the first error across that Group, cancelling the group's
// context so siblings still queued can bail out early. The limit applies
// to each Group separately: Groups started from the same Executor (for
// example one per level of a recursion) do not share it, so the total
// number of running tasks across Groups is not bounded.
type Executor struct {
	limit int
}

// New returns an Executor allowing at most limit concurrent tasks. A
// non-positive limit means unbounded (errgroup.SetLimit is not called).
func New(limit int) *Executor {
	return &Executor{limit: limit}
}

// Group is a bounded, cancellable batch of tasks sharing one error slot.
type Group struct {
	g   *errgroup.Group
	ctx context.Context
}

// Start begins a new task group derived from ctx.
func (e *Executor) Start(ctx context.Context) *Group {
	g, gctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	return &Group{g: g, ctx: gctx}
}

// Context returns the group's (possibly already cancelled) context, for
// tasks that want to check for early cancellation before doing expensive
// work.
func (g *Group) Context() context.Context { return g.ctx }

// Go submits fn to run, possibly deferred if the executor's limit is
// already saturated.
func (g *Group) Go(fn func() error) { g.g.Go(fn) }

// Wait blocks until every submitted task has returned, yielding the
// first non-nil error (if any).
func (g *Group) Wait() error { return g.g.Wait() }
