// internal/wizard/orchestrator.go
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/quotehound/api/schemas"
	"github.com/xkilldash9x/quotehound/internal/humanoid"
)

// Phase is a stage's position in its lifecycle.
type Phase string

const (
	PhasePending     Phase = "pending"
	PhaseResolving   Phase = "resolving"
	PhaseInteracting Phase = "interacting"
	PhaseVerifying   Phase = "verifying"
	PhaseAdvanced    Phase = "advanced"
	PhaseFailed      Phase = "failed"
	PhaseSkipped     Phase = "skipped"
)

// StageResult records the terminal phase a stage reached during a run.
type StageResult struct {
	Name  string
	Phase Phase
}

// Stage is one entry in the ordered wizard table.
type Stage struct {
	Name string
	// Skip, when non-nil and true, causes the stage to be recorded as
	// skipped without being attempted.
	Skip func(sc StepContext) (bool, string)
	Run  func(ctx context.Context, o *Orchestrator, t *Tracker) error
}

// Tracker lets a running stage advance its lifecycle phase.
type Tracker struct {
	o   *Orchestrator
	idx int
}

func (t *Tracker) Resolving()   { t.o.setPhase(t.idx, PhaseResolving) }
func (t *Tracker) Interacting() { t.o.setPhase(t.idx, PhaseInteracting) }
func (t *Tracker) Verifying()   { t.o.setPhase(t.idx, PhaseVerifying) }

// Orchestrator sequences the ordered form stages. Execution is strictly
// sequential; the first mandatory-stage failure halts the run with a
// StageError, and no partial payload is produced before the results stage.
type Orchestrator struct {
	sc       StepContext
	page     schemas.PageSession
	resolver *Resolver
	dropdown *DropdownController
	sim      *humanoid.Simulator
	logger   *zap.Logger

	stages   []Stage
	progress []StageResult
}

// New builds an orchestrator over the default stage table.
func New(sc StepContext, sim *humanoid.Simulator, logger *zap.Logger) *Orchestrator {
	return NewWithStages(sc, sim, logger, DefaultStages())
}

// NewWithStages builds an orchestrator over a caller-supplied stage table.
func NewWithStages(sc StepContext, sim *humanoid.Simulator, logger *zap.Logger, stages []Stage) *Orchestrator {
	wizardLogger := logger.Named("wizard")
	resolver := NewResolver(sc.Page, sc.Waits.ElementTimeout, wizardLogger)

	o := &Orchestrator{
		sc:       sc,
		page:     sc.Page,
		resolver: resolver,
		dropdown: NewDropdownController(sc.Page, resolver, sim, wizardLogger),
		sim:      sim,
		logger:   wizardLogger,
		stages:   stages,
		progress: make([]StageResult, len(stages)),
	}
	for i, st := range stages {
		o.progress[i] = StageResult{Name: st.Name, Phase: PhasePending}
	}
	return o
}

// Context returns the run's immutable step context.
func (o *Orchestrator) Context() StepContext { return o.sc }

// Resolver returns the run's shared element resolver.
func (o *Orchestrator) Resolver() *Resolver { return o.resolver }

// Dropdown returns the run's shared dropdown controller.
func (o *Orchestrator) Dropdown() *DropdownController { return o.dropdown }

// Results reports the terminal phase of every stage in table order.
func (o *Orchestrator) Results() []StageResult {
	out := make([]StageResult, len(o.progress))
	copy(out, o.progress)
	return out
}

func (o *Orchestrator) setPhase(idx int, p Phase) {
	o.progress[idx].Phase = p
	o.logger.Debug("Stage phase transition.",
		zap.String("stage", o.progress[idx].Name), zap.String("phase", string(p)))
}

// Run navigates to the wizard's entry URL and executes the stage table in
// order. The returned error, when non-nil, is always a *StageError.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("Starting wizard run.", zap.String("url", o.sc.StartURL))

	if err := o.page.Navigate(ctx, o.sc.StartURL); err != nil {
		return NewStageError("navigate", KindSessionInit, "", err)
	}
	o.awaitInteractive(ctx)
	o.sim.SurveyPage(ctx, o.page)
	o.sim.Pause(ctx, humanoid.PauseNavigation)

	for i, stage := range o.stages {
		if stage.Skip != nil {
			if skip, reason := stage.Skip(o.sc); skip {
				o.setPhase(i, PhaseSkipped)
				o.logger.Info("Stage skipped.",
					zap.String("stage", stage.Name), zap.String("reason", reason))
				continue
			}
		}

		o.logger.Info("Running stage.", zap.String("stage", stage.Name))
		t := &Tracker{o: o, idx: i}
		t.Resolving()

		if err := stage.Run(ctx, o, t); err != nil {
			o.setPhase(i, PhaseFailed)

			var stageErr *StageError
			if errors.As(err, &stageErr) {
				return stageErr
			}
			return NewStageError(stage.Name, classifyKind(err), "", err)
		}

		o.setPhase(i, PhaseAdvanced)
		if url, err := o.page.CurrentURL(ctx); err == nil {
			o.logger.Info("Stage completed.",
				zap.String("stage", stage.Name), zap.String("url", url))
		}
	}

	o.logger.Info("Wizard run completed; results page reached.")
	return nil
}

// awaitInteractive waits for the page to expose interactive elements after
// the first navigation. The landing page mounts its form client-side, so a
// committed navigation is not the same as a usable page.
func (o *Orchestrator) awaitInteractive(ctx context.Context) {
	ok := PollUntil(ctx, func(c context.Context) (bool, error) {
		var count int
		err := o.page.Evaluate(c,
			`document.querySelectorAll('[data-cy], [class*="radio"], button, input').length`, &count)
		return count > 0, err
	}, 500*time.Millisecond, o.sc.Waits.ElementTimeout)
	if !ok {
		o.logger.Warn("Could not detect interactive elements, continuing anyway.")
	}
}

// continueThrough presses an enable-gated continue control and verifies the
// page advanced by watching for a URL change.
func (o *Orchestrator) continueThrough(ctx context.Context, t *Tracker, dataCy string) error {
	button := CySelector(dataCy, dataCy, Present)

	t.Resolving()
	if _, err := o.resolver.Resolve(ctx, button); err != nil {
		return err
	}

	// Poll the disabled attribute until it clears. Expiry does not abort;
	// disabled-state exposure is sometimes stale, so the click is attempted
	// regardless, under a warning.
	enabled := PollUntil(ctx, func(c context.Context) (bool, error) {
		_, disabled, err := o.resolver.Attribute(c, button, "disabled")
		if err != nil {
			return false, err
		}
		return !disabled, nil
	}, 750*time.Millisecond, o.enablePollTimeout())
	if !enabled {
		o.logger.Warn("Button may still be disabled, attempting to click anyway.",
			zap.String("button", dataCy))
	}

	t.Interacting()
	o.resolver.ScrollTo(ctx, button)
	o.sim.Pause(ctx, humanoid.PauseSettle)
	o.sim.Drift(ctx, o.page)
	o.sim.Pause(ctx, humanoid.PauseClick)

	before, err := o.page.CurrentURL(ctx)
	if err != nil {
		return fmt.Errorf("reading URL before continue: %w", err)
	}

	if err := o.resolver.Click(ctx, button); err != nil {
		return err
	}

	t.Verifying()
	if err := o.verifyURLChanged(ctx, before); err != nil {
		return fmt.Errorf("after clicking %q: %w", dataCy, err)
	}
	o.sim.Pause(ctx, humanoid.PauseNavigation)
	return nil
}

// verifyURLChanged blocks until the page URL differs from before, or fails
// the stage. Proceeding without this check risks interacting with content
// that is about to be replaced.
func (o *Orchestrator) verifyURLChanged(ctx context.Context, before string) error {
	changed := PollUntil(ctx, func(c context.Context) (bool, error) {
		url, err := o.page.CurrentURL(c)
		return url != before, err
	}, 500*time.Millisecond, o.sc.Waits.ElementTimeout)
	if !changed {
		return fmt.Errorf("%w: URL did not change from %s", ErrVerification, before)
	}
	return nil
}

func (o *Orchestrator) enablePollTimeout() time.Duration {
	if o.sc.Waits.EnablePollTimeout > 0 {
		return o.sc.Waits.EnablePollTimeout
	}
	return 10 * time.Second
}

// clickRadio clicks a radio control addressed by data-cy, falling back to its
// label and raw input variants the way the page inconsistently exposes them.
func (o *Orchestrator) clickRadio(ctx context.Context, name, dataCy string) error {
	parts := strings.Split(dataCy, "-")
	lastToken := parts[len(parts)-1]

	sel := FieldSelector{
		Name: name,
		Need: Clickable,
		Locators: []schemas.Locator{
			schemas.CSS(fmt.Sprintf(`[data-cy=%q]`, dataCy)),
			schemas.CSS(fmt.Sprintf(`label[data-cy*=%q]`, lastToken)),
			schemas.CSS(fmt.Sprintf(`input[data-cy*=%q]`, lastToken)),
		},
	}

	o.resolver.ScrollTo(ctx, sel)
	o.sim.Pause(ctx, humanoid.PauseShort)
	o.sim.Drift(ctx, o.page)
	o.sim.Pause(ctx, humanoid.PauseClick)

	if err := o.resolver.Click(ctx, sel); err != nil {
		return err
	}
	o.sim.Pause(ctx, humanoid.PauseSettle)
	return nil
}

// radioSelected reports whether the radio's enclosing label already carries
// the is-selected marker, meaning the page pre-filled the answer.
func (o *Orchestrator) radioSelected(ctx context.Context, dataCy string) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector('[data-cy=%q]');
		if (!el) { return "missing"; }
		const label = el.closest('label');
		if (label && (label.className || '').includes('is-selected')) { return "selected"; }
		return "unselected";
	})()`, dataCy)

	var state string
	if err := o.page.Evaluate(ctx, script, &state); err != nil {
		return false, err
	}
	if state == "missing" {
		return false, fmt.Errorf("%w: radio %q", ErrElementNotFound, dataCy)
	}
	return state == "selected", nil
}

// optionalRadio clicks a radio unless the page already selected it. Failures
// degrade to a logged skip; these answers are not mandatory.
func (o *Orchestrator) optionalRadio(ctx context.Context, name, dataCy string) {
	selected, err := o.radioSelected(ctx, dataCy)
	if err != nil {
		o.logger.Warn("Could not check radio state, skipping.",
			zap.String("field", name), zap.Error(err))
		return
	}
	if selected {
		o.logger.Info("Radio already selected, skipping.", zap.String("field", name))
		return
	}
	if err := o.clickRadio(ctx, name, dataCy); err != nil {
		o.logger.Warn("Could not select radio, continuing.",
			zap.String("field", name), zap.Error(err))
	}
}

// typeInput focuses a text input, clears it, and types the value one rune at
// a time with keystroke pacing.
func (o *Orchestrator) typeInput(ctx context.Context, name, dataCy, value string) error {
	sel := CySelector(name, dataCy, Present)

	o.resolver.ScrollTo(ctx, sel)
	o.sim.Pause(ctx, humanoid.PauseShort)
	o.sim.Drift(ctx, o.page)

	if err := o.resolver.Click(ctx, sel); err != nil {
		return err
	}
	o.sim.Pause(ctx, humanoid.PauseShort)

	if err := o.resolver.ClearField(ctx, sel); err != nil {
		return err
	}
	o.sim.Pause(ctx, humanoid.PauseShort)

	if err := o.resolver.TypeRunes(ctx, sel, value, func() {
		o.sim.Pause(ctx, humanoid.PauseKeystroke)
	}); err != nil {
		return err
	}
	o.sim.Pause(ctx, humanoid.PauseSettle)
	return nil
}
