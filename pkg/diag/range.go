// Package diag contains building blocks for reporting problems found in
// source text: ranges within the text and diagnostics attached to them.
package diag

// Ranger wraps the Range method.
type Ranger interface {
	// Range returns the range associated with the value.
	Range() Ranging
}

// Ranging represents a range [From, To) within an indexable sequence. Structs
// can embed Ranging to satisfy the [Ranger] interface.
//
// Ideally, this type would be called Range. However, doing that means structs
// embedding this type will have Range as a field instead of a method, thus not
// implementing the [Ranger] interface.
type Ranging struct {
	From int
	To   int
}

// NoRanging is the Ranging of values that are not associated with any
// position.
var NoRanging = Ranging{-1, -1}

// Range returns the Ranging itself.
func (r Ranging) Range() Ranging { return r }

// Len returns the number of elements covered by the range.
func (r Ranging) Len() int {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From
}

// Known reports whether the range refers to an actual position.
func (r Ranging) Known() bool { return r.From >= 0 && r.To >= r.From }

// PointRanging returns a zero-width Ranging at the given point.
func PointRanging(p int) Ranging {
	return Ranging{p, p}
}

// MixedRanging returns a Ranging from the start position of a to the end
// position of b.
func MixedRanging(a, b Ranger) Ranging {
	return Ranging{a.Range().From, b.Range().To}
}
