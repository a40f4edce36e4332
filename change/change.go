// Package change classifies a fetch against the last stored snapshot.
package change

import "github.com/hazyhaar/pagewatch/snapshot"

// Result is the outcome of comparing current content with the latest
// snapshot. It is never persisted.
type Result int

const (
	Initial   Result = iota // no previous snapshot: first check of the target
	Unchanged               // normalized content is byte-identical
	Changed                 // content differs from the previous snapshot
)

// String returns the lowercase name of r.
func (r Result) String() string {
	switch r {
	case Initial:
		return "initial"
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	}
	return "unknown"
}

// Detect compares current normalized content with previous. It has no side
// effects.
func Detect(previous *snapshot.Snapshot, current string) Result {
	if previous == nil {
		return Initial
	}
	if previous.Content == current {
		return Unchanged
	}
	return Changed
}
