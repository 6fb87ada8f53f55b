// Package causes walks the cause chain of an error.
package causes

import (
	"errors"
	"iter"
)

// MaxDepth is the maximum number of causes explored before stopping. The
// bound keeps traversal finite for self-referential chains.
const MaxDepth = 20

// All returns a sequence over err and its transitive causes, outermost first.
// The sequence yields at most MaxDepth entries. A nil err yields nothing.
func All(err error) iter.Seq[error] {
	return func(yield func(error) bool) {
		for depth := 0; err != nil && depth < MaxDepth; depth++ {
			if !yield(err) {
				return
			}

			err = errors.Unwrap(err)
		}
	}
}

// Any reports whether pred holds for any cause of err, within MaxDepth.
func Any(err error, pred func(error) bool) bool {
	for cause := range All(err) {
		if pred(cause) {
			return true
		}
	}

	return false
}
