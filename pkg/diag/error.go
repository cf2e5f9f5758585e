package diag

import (
	"fmt"

	"src.marktree.dev/pkg/strutil"
)

// Error is a diagnostic: a problem with a type, a human-readable message and
// an optional context locating it in the source.
type Error struct {
	Type    string
	Message string
	// Nil when the problem is not tied to a position.
	Context *Context
}

// Error returns a plain text representation of the error.
func (e *Error) Error() string {
	if e.Context == nil {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Context.Describe(), e.Message)
}

// Range returns the range of the error, or NoRanging if it has no context.
func (e *Error) Range() Ranging {
	if e.Context == nil {
		return NoRanging
	}
	return e.Context.Range()
}

// Show shows the error.
func (e *Error) Show(indent string) string {
	header := fmt.Sprintf("%s: %s%s%s", strutil.Title(e.Type),
		messageStart, e.Message, messageEnd)
	if e.Context == nil {
		return header
	}
	return header + "\n" + indent + "  " + e.Context.ShowCompact(indent+"  ")
}
