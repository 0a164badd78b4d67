// internal/humanoid/simulator.go
//
// Behavioral camouflage for the wizard run. Every method here is
// best-effort: a failed mouse move or scroll must never fail a stage, so
// errors are logged at debug level and swallowed. All methods are safe on a
// nil receiver, which is how the layer is disabled.
package humanoid

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/quotehound/api/schemas"
	"github.com/xkilldash9x/quotehound/internal/config"
)

// PauseClass names one of the tuned delay distributions. Each class maps to
// a uniform range chosen to match observed human pacing for that action.
type PauseClass int

const (
	// PauseKeystroke is the inter-key delay while typing into a plain input.
	PauseKeystroke PauseClass = iota
	// PauseDropdownKeystroke is the slower inter-key delay used inside
	// searchable dropdowns, where each keystroke triggers a filter render.
	PauseDropdownKeystroke
	// PauseShort covers quick glances between related controls.
	PauseShort
	// PauseClick is the hesitation before committing a click.
	PauseClick
	// PauseSettle follows an interaction while the page reacts.
	PauseSettle
	// PauseNavigation follows a page transition.
	PauseNavigation
	// PauseFilter waits out a dropdown's option-list re-render.
	PauseFilter
	// PauseResults is the long dwell while the results page assembles quotes.
	PauseResults
)

// pauseRange returns the [min, max) bounds for a class.
func pauseRange(class PauseClass) (time.Duration, time.Duration) {
	switch class {
	case PauseKeystroke:
		return 20 * time.Millisecond, 80 * time.Millisecond
	case PauseDropdownKeystroke:
		return 50 * time.Millisecond, 120 * time.Millisecond
	case PauseShort:
		return 200 * time.Millisecond, 400 * time.Millisecond
	case PauseClick:
		return 300 * time.Millisecond, 600 * time.Millisecond
	case PauseSettle:
		return 500 * time.Millisecond, 1000 * time.Millisecond
	case PauseNavigation:
		return 1000 * time.Millisecond, 1500 * time.Millisecond
	case PauseFilter:
		return 800 * time.Millisecond, 1500 * time.Millisecond
	case PauseResults:
		return 4000 * time.Millisecond, 6000 * time.Millisecond
	default:
		return 200 * time.Millisecond, 400 * time.Millisecond
	}
}

// Simulator injects randomized pacing and incidental pointer/scroll activity
// into an automated run.
type Simulator struct {
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a Simulator from configuration. It returns nil when the layer is
// disabled; a nil Simulator is valid and every method on it is a no-op.
func New(cfg config.HumanoidConfig, logger *zap.Logger) *Simulator {
	if !cfg.Enabled {
		return nil
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		logger: logger.Named("humanoid"),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// duration draws a random duration from the class range.
func (s *Simulator) duration(class PauseClass) time.Duration {
	min, max := pauseRange(class)
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + time.Duration(s.rng.Int63n(int64(max-min)))
}

// intn draws a random int in [0, n) under the lock.
func (s *Simulator) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// chance reports true with probability p.
func (s *Simulator) chance(p float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < p
}

// Pause sleeps for a randomized duration drawn from the class range. Context
// cancellation cuts the pause short; it is never reported as an error.
func (s *Simulator) Pause(ctx context.Context, class PauseClass) {
	if s == nil {
		return
	}
	d := s.duration(class)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Drift performs a few small pointer movements around the current position.
// Mirrors the idle wiggle a hand resting on a mouse produces.
func (s *Simulator) Drift(ctx context.Context, page schemas.PageSession) {
	if s == nil || page == nil {
		return
	}

	// Anchor somewhere plausible in the viewport, then wander.
	x := float64(200 + s.intn(800))
	y := float64(150 + s.intn(500))

	moves := 2 + s.intn(3)
	for i := 0; i < moves; i++ {
		if ctx.Err() != nil {
			return
		}
		x += float64(s.intn(21) - 10)
		y += float64(s.intn(21) - 10)
		if err := page.DispatchMouseMove(ctx, x, y); err != nil {
			s.logger.Debug("Pointer drift dispatch failed.", zap.Error(err))
			return
		}
		s.Pause(ctx, PauseKeystroke)
	}
}

// ScrollNudge scrolls the page down a short distance and, about half the
// time, partway back up.
func (s *Simulator) ScrollNudge(ctx context.Context, page schemas.PageSession) {
	if s == nil || page == nil {
		return
	}

	down := 100 + s.intn(300)
	if err := page.Evaluate(ctx, fmt.Sprintf("window.scrollBy(0, %d);", down), nil); err != nil {
		s.logger.Debug("Scroll nudge failed.", zap.Error(err))
		return
	}
	s.Pause(ctx, PauseShort)

	if s.chance(0.5) {
		back := 50 + s.intn(100)
		if err := page.Evaluate(ctx, fmt.Sprintf("window.scrollBy(0, -%d);", back), nil); err != nil {
			s.logger.Debug("Scroll nudge return failed.", zap.Error(err))
			return
		}
		s.Pause(ctx, PauseShort)
	}
}

// SurveyPage is the composite idle gesture run between wizard stages: a
// scroll nudge plus pointer drift, each independently best-effort.
func (s *Simulator) SurveyPage(ctx context.Context, page schemas.PageSession) {
	if s == nil || page == nil {
		return
	}
	s.ScrollNudge(ctx, page)
	s.Drift(ctx, page)
}
