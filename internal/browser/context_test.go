// internal/browser/context_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCombineContext verifies the behavior of CombineContext.
func TestCombineContext(t *testing.T) {
	type ctxKey string
	const key ctxKey = "testKey"
	const value = "testValue"

	t.Run("InheritsValuesFromPrimary", func(t *testing.T) {
		ctx1 := context.WithValue(context.Background(), key, value)
		ctx2 := context.Background()

		combinedCtx, cancel := CombineContext(ctx1, ctx2)
		defer cancel()

		assert.Equal(t, value, combinedCtx.Value(key), "Combined context should inherit values from ctx1")
		assert.Nil(t, combinedCtx.Err(), "Context should not be done yet")
	})

	t.Run("CancelledByPrimary", func(t *testing.T) {
		ctx1, cancel1 := context.WithCancel(context.Background())
		ctx2 := context.Background()

		combinedCtx, cancelCombined := CombineContext(ctx1, ctx2)
		defer cancelCombined()

		cancel1()

		assert.Eventually(t, func() bool {
			return combinedCtx.Err() != nil
		}, 100*time.Millisecond, 10*time.Millisecond, "Combined context should be cancelled when ctx1 is cancelled")
		assert.ErrorIs(t, combinedCtx.Err(), context.Canceled)
	})

	t.Run("CancelledBySecondary", func(t *testing.T) {
		ctx1 := context.Background()
		ctx2, cancel2 := context.WithCancel(context.Background())

		combinedCtx, cancelCombined := CombineContext(ctx1, ctx2)
		defer cancelCombined()

		cancel2()

		assert.Eventually(t, func() bool {
			return combinedCtx.Err() != nil
		}, 100*time.Millisecond, 10*time.Millisecond, "Combined context should be cancelled when ctx2 is cancelled")
	})
}

// TestDetach verifies that a detached context keeps values but drops
// cancellation.
func TestDetach(t *testing.T) {
	type ctxKey string
	const key ctxKey = "sessionKey"

	parent, cancel := context.WithCancel(context.WithValue(context.Background(), key, "session-1"))

	detached := Detach(parent)
	cancel()

	require.Error(t, parent.Err(), "parent must be canceled")
	assert.NoError(t, detached.Err(), "detached context must survive parent cancellation")
	assert.Nil(t, detached.Done())
	assert.Equal(t, "session-1", detached.Value(key), "detached context must keep parent values")

	_, hasDeadline := detached.Deadline()
	assert.False(t, hasDeadline)
}
