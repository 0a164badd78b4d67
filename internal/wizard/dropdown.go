// internal/wizard/dropdown.go
package wizard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/quotehound/api/schemas"
	"github.com/xkilldash9x/quotehound/internal/humanoid"
)

// DropdownController drives the site's searchable "custom-dropdown" widget: a
// text input wrapped in a clickable control region that filters its option
// list reactively per keystroke. The first filtered option is accepted
// sight-unseen via Enter; the widget sorts exact matches first, so verifying
// the list before confirming buys nothing but latency.
type DropdownController struct {
	page     schemas.PageSession
	resolver *Resolver
	sim      *humanoid.Simulator
	logger   *zap.Logger
}

// NewDropdownController builds a controller sharing the run's resolver and
// behavior simulator.
func NewDropdownController(page schemas.PageSession, resolver *Resolver, sim *humanoid.Simulator, logger *zap.Logger) *DropdownController {
	return &DropdownController{
		page:     page,
		resolver: resolver,
		sim:      sim,
		logger:   logger.Named("dropdown"),
	}
}

// inputSelector targets the widget's text-input sub-element.
func (d *DropdownController) inputSelector(dataCy string) FieldSelector {
	return CySelector(dataCy, dataCy, Clickable)
}

// controlSelector targets the enclosing clickable control region, which is
// distinct from the input and owns the open/close behavior.
func (d *DropdownController) controlSelector(dataCy string) FieldSelector {
	return FieldSelector{
		Name: dataCy + "-control",
		Need: Present,
		Locators: []schemas.Locator{
			schemas.XPath(fmt.Sprintf(
				`//input[@data-cy='%s']/ancestor::div[contains(@class, 'custom-dropdown__control')]`, dataCy)),
			schemas.XPath(fmt.Sprintf(
				`//input[@data-cy='%s']/ancestor::div[contains(@class, 'custom-dropdown')]`, dataCy)),
		},
	}
}

// presetValue reads the widget's displayed single-value text, if any. A
// non-empty value means the page pre-filled the field.
func (d *DropdownController) presetValue(ctx context.Context, dataCy string) string {
	loc := schemas.XPath(fmt.Sprintf(
		`//input[@data-cy='%s']/ancestor::div[contains(@class, 'custom-dropdown__control')]//div[contains(@class, 'custom-dropdown__single-value')]`,
		dataCy))

	exists, err := d.page.Exists(ctx, loc)
	if err != nil || !exists {
		return ""
	}
	text, err := d.page.Text(ctx, loc)
	if err != nil {
		return ""
	}
	return text
}

// open activates the control region to expand the option list. Activation
// order: trusted click on the control, scripted click on the control, click
// on the input itself.
func (d *DropdownController) open(ctx context.Context, dataCy string) error {
	control := d.controlSelector(dataCy)
	d.resolver.ScrollTo(ctx, control)
	d.sim.Pause(ctx, humanoid.PauseShort)
	d.sim.Drift(ctx, d.page)

	if err := d.resolver.Click(ctx, control); err == nil {
		return nil
	}
	d.logger.Debug("Control region activation failed, clicking input directly.",
		zap.String("field", dataCy))
	return d.resolver.Click(ctx, d.inputSelector(dataCy))
}

// Select runs the full searchable-selection protocol for the field: open,
// clear, type the value rune by rune, let the filter settle, confirm with
// Enter. When the field already carries a value the protocol is skipped
// entirely and the pre-existing value is recorded instead of overwritten.
func (d *DropdownController) Select(ctx context.Context, dataCy, value, fieldName string) (schemas.DropdownSelection, error) {
	d.logger.Info("Selecting dropdown value.",
		zap.String("field", fieldName), zap.String("value", value))

	if preset := d.presetValue(ctx, dataCy); preset != "" {
		d.logger.Info("Field already carries a value, skipping selection.",
			zap.String("field", fieldName), zap.String("preset", preset))
		return schemas.DropdownSelection{Attempted: false, Succeeded: true, ConfirmedValue: preset}, nil
	}

	result := schemas.DropdownSelection{Attempted: true}

	input := d.inputSelector(dataCy)
	if _, err := d.resolver.Resolve(ctx, FieldSelector{
		Name:     dataCy,
		Need:     Present,
		Locators: input.Locators,
	}); err != nil {
		return result, fmt.Errorf("%w: dropdown %q input missing: %v", ErrSelection, fieldName, err)
	}

	if err := d.open(ctx, dataCy); err != nil {
		return result, fmt.Errorf("%w: dropdown %q would not open: %v", ErrSelection, fieldName, err)
	}
	d.sim.Pause(ctx, humanoid.PauseSettle)

	// The open action may have replaced the input node; resolve fresh before
	// touching it.
	if err := d.resolver.ClearField(ctx, input); err != nil {
		return result, fmt.Errorf("%w: dropdown %q could not be cleared: %v", ErrSelection, fieldName, err)
	}
	d.sim.Pause(ctx, humanoid.PauseShort)

	if err := d.resolver.TypeRunes(ctx, input, value, func() {
		d.sim.Pause(ctx, humanoid.PauseDropdownKeystroke)
	}); err != nil {
		return result, fmt.Errorf("%w: typing %q into dropdown %q: %v", ErrSelection, value, fieldName, err)
	}

	// Give the filtered option list time to render before confirming.
	d.sim.Pause(ctx, humanoid.PauseFilter)

	if err := d.resolver.PressEnter(ctx, input); err != nil {
		return result, fmt.Errorf("%w: confirming dropdown %q: %v", ErrSelection, fieldName, err)
	}
	d.sim.Pause(ctx, humanoid.PauseSettle)

	result.Succeeded = true
	if confirmed := d.presetValue(ctx, dataCy); confirmed != "" {
		result.ConfirmedValue = confirmed
	}
	d.logger.Info("Dropdown value selected.", zap.String("field", fieldName))
	return result, nil
}

// AcceptFirst opens the widget without typing a filter and confirms whatever
// option sits on top. Used for fields like vehicle trim where any valid value
// will do. Activation order: dropdown indicator arrow, control region, input.
func (d *DropdownController) AcceptFirst(ctx context.Context, dataCy, fieldName string) (schemas.DropdownSelection, error) {
	if preset := d.presetValue(ctx, dataCy); preset != "" {
		d.logger.Info("Field already preset, skipping.",
			zap.String("field", fieldName), zap.String("preset", preset))
		return schemas.DropdownSelection{Attempted: false, Succeeded: true, ConfirmedValue: preset}, nil
	}

	result := schemas.DropdownSelection{Attempted: true}

	indicator := FieldSelector{
		Name: dataCy + "-indicator",
		Need: Present,
		Locators: []schemas.Locator{
			schemas.XPath(fmt.Sprintf(
				`//input[@data-cy='%s']/ancestor::div[contains(@class, 'custom-dropdown__control')]//div[contains(@class, 'custom-dropdown__indicator')]`,
				dataCy)),
		},
	}

	opened := false
	if loc, err := d.resolver.Resolve(ctx, indicator); err == nil {
		if err := d.page.ClickScript(ctx, loc); err == nil {
			opened = d.optionListVisible(ctx)
		}
	}
	if !opened {
		if loc, err := d.resolver.Resolve(ctx, d.controlSelector(dataCy)); err == nil {
			if err := d.page.ClickScript(ctx, loc); err == nil {
				opened = d.optionListVisible(ctx)
			}
		}
	}
	if !opened {
		if err := d.resolver.Click(ctx, d.inputSelector(dataCy)); err != nil {
			return result, fmt.Errorf("%w: dropdown %q would not open: %v", ErrSelection, fieldName, err)
		}
	}
	d.sim.Pause(ctx, humanoid.PauseSettle)

	if err := d.resolver.PressEnter(ctx, d.inputSelector(dataCy)); err != nil {
		return result, fmt.Errorf("%w: accepting first option of %q: %v", ErrSelection, fieldName, err)
	}
	d.sim.Pause(ctx, humanoid.PauseSettle)

	result.Succeeded = true
	result.ConfirmedValue = d.presetValue(ctx, dataCy)
	return result, nil
}

// optionListVisible probes for an expanded option list.
func (d *DropdownController) optionListVisible(ctx context.Context) bool {
	ok, err := d.page.Exists(ctx, schemas.CSS(`.custom-dropdown__option, [role="option"]`))
	return err == nil && ok
}
