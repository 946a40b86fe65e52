package core

import "strings"

// Rel is a dense bit-set over the fixed five-relation alphabet a dependency
// edge can carry. A RelSet is the same type: both are subsets of the
// alphabet, so union/subset/membership all compile down to bitwise ops.
type Rel uint8

// RelSet is an alias for Rel: the edge-set algebra treats a single relation
// and a set of relations identically.
type RelSet = Rel

// Empty is the relation set with no members.
const Empty Rel = 0

// The fixed alphabet.
const (
	WW Rel = 1 << iota
	WR
	RW
	Process
	Realtime
	// MonotonicKey is the extension relation built by MonotonicKeyGraph;
	// it never appears in an anomaly-spec transition table.
	MonotonicKey
)

var relNames = []struct {
	bit  Rel
	name string
}{
	{WW, "ww"},
	{WR, "wr"},
	{RW, "rw"},
	{Process, "process"},
	{Realtime, "realtime"},
	{MonotonicKey, "monotonic-key"},
}

// Of builds a Rel from any number of individual relations.
func Of(rels ...Rel) Rel {
	var out Rel
	for _, r := range rels {
		out |= r
	}
	return out
}

// Union returns the union of two relation sets.
func Union(a, b Rel) Rel {
	return a | b
}

// Subset reports whether a is a subset of b (every bit of a is set in b).
func Subset(a, b Rel) bool {
	return a&b == a
}

// Contains reports whether rel is a member of set.
func Contains(set, rel Rel) bool {
	return set&rel == rel
}

// Intersects reports whether a and b share any relation.
func Intersects(a, b Rel) bool {
	return a&b != Empty
}

func (r Rel) String() string {
	if r == Empty {
		return "#{}"
	}
	var names []string
	for _, e := range relNames {
		if r&e.bit != 0 {
			names = append(names, e.name)
		}
	}
	return "#{" + strings.Join(names, ", ") + "}"
}

// ParseRel parses a single relation name ("ww", "wr", "rw", "process",
// "realtime") into its Rel bit. Unknown names return Empty.
func ParseRel(name string) Rel {
	for _, e := range relNames {
		if e.name == name {
			return e.bit
		}
	}
	return Empty
}
