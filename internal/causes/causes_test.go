package causes

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type selfCaused struct{}

func (selfCaused) Error() string { return "self-caused" }
func (s selfCaused) Unwrap() error {
	return s
}

func collect(err error) []error {
	out := []error{}
	for cause := range All(err) {
		out = append(out, cause)
	}

	return out
}

func TestAll(t *testing.T) {
	assert.Empty(t, collect(nil))

	root := errors.New("root")
	assert.Equal(t, []error{root}, collect(root))

	mid := fmt.Errorf("mid: %w", root)
	top := fmt.Errorf("top: %w", mid)
	assert.Equal(t, []error{top, mid, root}, collect(top))
}

func TestAllBoundedOnCycles(t *testing.T) {
	assert.Len(t, collect(selfCaused{}), MaxDepth)
}

func TestAllEarlyStop(t *testing.T) {
	top := fmt.Errorf("top: %w", errors.New("root"))

	seen := 0
	for range All(top) {
		seen++

		break
	}

	assert.Equal(t, 1, seen)
}

func TestAny(t *testing.T) {
	root := errors.New("root")
	top := fmt.Errorf("top: %w", root)

	assert.True(t, Any(top, func(err error) bool { return err == root }))
	assert.False(t, Any(top, func(err error) bool { return err.Error() == "other" }))
	assert.False(t, Any(nil, func(error) bool { return true }))

	// the predicate must not be probed past the depth bound
	depth := 0
	assert.False(t, Any(selfCaused{}, func(error) bool {
		depth++

		return false
	}))
	assert.Equal(t, MaxDepth, depth)
}
