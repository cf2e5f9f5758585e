package parse

// A snapshot captures enough of a Context to resume parsing from the token
// index it was taken at.
type snapshot[S any] struct {
	pos       int
	current   *Node
	ndiags    int
	state     S
	horizon   int
	resumable bool
	// The path from the root to the current node, with the number of children
	// each node on it had.
	spine []spineEntry
}

type spineEntry struct {
	node *Node
	n    int
}

func takeSnapshot[S any](ctx *Context[S], clone func(S) S, resumable bool) *snapshot[S] {
	s := &snapshot[S]{
		pos: ctx.pos, current: ctx.Current, ndiags: len(ctx.diags),
		horizon: ctx.horizon, resumable: resumable,
	}
	if !resumable {
		// Never restored; skip the copies.
		return s
	}
	s.state = clone(ctx.State)
	for n := ctx.Current; n != nil; n = n.parent {
		s.spine = append(s.spine, spineEntry{n, len(n.children)})
	}
	return s
}

// Restores the context to the snapshot. Nodes added to the spine after the
// snapshot was taken are detached, so that the parts of the tree that will be
// re-parsed are not duplicated.
func (s *snapshot[S]) restore(ctx *Context[S], clone func(S) S) {
	for _, e := range s.spine {
		e.node.Truncate(e.n)
	}
	ctx.pos = s.pos
	ctx.Current = s.current
	ctx.diags = ctx.diags[:s.ndiags:s.ndiags]
	ctx.State = clone(s.state)
	ctx.horizon = s.horizon
}
