// internal/humanoid/simulator_test.go
package humanoid

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/quotehound/api/schemas"
	"github.com/xkilldash9x/quotehound/internal/config"
)

// stubPage records the gesture calls the simulator makes. The embedded
// interface panics on anything the simulator is not supposed to touch.
type stubPage struct {
	schemas.PageSession

	moves   int
	scrolls []string
	moveErr error
}

func (s *stubPage) DispatchMouseMove(ctx context.Context, x, y float64) error {
	s.moves++
	return s.moveErr
}

func (s *stubPage) Evaluate(ctx context.Context, script string, res any) error {
	s.scrolls = append(s.scrolls, script)
	return nil
}

func newTestSimulator(t *testing.T) *Simulator {
	t.Helper()
	sim := New(config.HumanoidConfig{Enabled: true, Seed: 42}, zap.NewNop())
	require.NotNil(t, sim)
	return sim
}

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	assert.Nil(t, New(config.HumanoidConfig{Enabled: false}, zap.NewNop()))
}

func TestNilSimulatorIsSafe(t *testing.T) {
	var sim *Simulator
	ctx := context.Background()

	// Every method must be a no-op on the nil receiver.
	sim.Pause(ctx, PauseResults)
	sim.Drift(ctx, nil)
	sim.ScrollNudge(ctx, nil)
	sim.SurveyPage(ctx, nil)
}

func TestPauseRangesAreOrdered(t *testing.T) {
	classes := []PauseClass{
		PauseKeystroke, PauseDropdownKeystroke, PauseShort, PauseClick,
		PauseSettle, PauseNavigation, PauseFilter, PauseResults,
	}
	for _, class := range classes {
		min, max := pauseRange(class)
		assert.Positive(t, min, "class %d", class)
		assert.Greater(t, max, min, "class %d", class)
	}

	// Spot-check the tuned endpoints.
	min, max := pauseRange(PauseKeystroke)
	assert.Equal(t, 20*time.Millisecond, min)
	assert.Equal(t, 80*time.Millisecond, max)

	min, max = pauseRange(PauseResults)
	assert.Equal(t, 4*time.Second, min)
	assert.Equal(t, 6*time.Second, max)
}

func TestDurationStaysWithinClassRange(t *testing.T) {
	sim := newTestSimulator(t)
	min, max := pauseRange(PauseShort)

	for i := 0; i < 200; i++ {
		d := sim.duration(PauseShort)
		assert.GreaterOrEqual(t, d, min)
		assert.Less(t, d, max)
	}
}

func TestPauseHonorsContextCancellation(t *testing.T) {
	sim := newTestSimulator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	sim.Pause(ctx, PauseResults)
	assert.Less(t, time.Since(start), time.Second,
		"a canceled context must cut the pause short")
}

func TestDriftDispatchesPointerMoves(t *testing.T) {
	sim := newTestSimulator(t)
	page := &stubPage{}

	sim.Drift(context.Background(), page)
	assert.GreaterOrEqual(t, page.moves, 2)
	assert.LessOrEqual(t, page.moves, 4)
}

func TestDriftSwallowsDispatchErrors(t *testing.T) {
	sim := newTestSimulator(t)
	page := &stubPage{moveErr: context.DeadlineExceeded}

	// Must not panic or propagate; the gesture simply stops.
	sim.Drift(context.Background(), page)
	assert.Equal(t, 1, page.moves)
}

func TestScrollNudgeScrollsDown(t *testing.T) {
	sim := newTestSimulator(t)
	page := &stubPage{}

	sim.ScrollNudge(context.Background(), page)
	require.NotEmpty(t, page.scrolls)
	assert.True(t, strings.HasPrefix(page.scrolls[0], "window.scrollBy(0, "),
		"first gesture scrolls downward")
}
