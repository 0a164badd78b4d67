// internal/wizard/stages.go
//
// The ordered stage table for thezebra.com's car-insurance wizard. Selector
// literals here mirror the page's data-cy test hooks; when the page renames
// one, this is the only file that needs to follow.
package wizard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/quotehound/api/schemas"
	"github.com/xkilldash9x/quotehound/internal/humanoid"
)

const continueButton = "primary-button_section-continue"

// DefaultStages returns the wizard's stage table in execution order.
func DefaultStages() []Stage {
	return []Stage{
		{Name: "help_today", Run: stageHelpToday},
		{Name: "residence_ownership", Run: stageResidenceOwnership},
		{Name: "purchase_timeframe", Run: stagePurchaseTimeframe},
		{Name: "section_continue", Run: stageSectionContinue},
		{Name: "garaging_address", Run: stageGaragingAddress},
		{Name: "personal_info", Run: stagePersonalInfo},
		{
			Name: "vehicle_selection",
			Skip: func(sc StepContext) (bool, string) {
				if !sc.Vehicle.Complete() {
					return true, "vehicle year/make/model not provided"
				}
				return false, ""
			},
			Run: stageVehicleSelection,
		},
		{Name: "add_another_vehicle", Run: stageAddAnotherVehicle},
		{Name: "vehicle_usage", Run: stageVehicleUsage},
		{Name: "driver_profile", Run: stageDriverProfile},
		{Name: "show_quotes", Run: stageShowQuotes},
	}
}

// stageHelpToday answers the opening "How can we help you today?" question
// with the compare-current option. The landing page is the least predictable
// render of the run, so this selector carries the deepest fallback chain.
func stageHelpToday(ctx context.Context, o *Orchestrator, t *Tracker) error {
	sel := FieldSelector{
		Name: "help_today",
		Need: Clickable,
		Locators: []schemas.Locator{
			schemas.CSS(`[data-cy="radio-text-help_today-compare_current"]`),
			schemas.XPath(`//div[contains(text(), 'I want to compare my current insurance')]`),
			schemas.Script(`(() => {
				let els = document.querySelectorAll('[data-cy="radio-text-help_today-compare_current"]');
				if (els.length === 0) {
					els = Array.from(document.querySelectorAll('div')).filter(el =>
						el.textContent && el.textContent.includes('I want to compare my current insurance'));
				}
				return els.length > 0 ? els[0] : null;
			})()`),
			schemas.XPath(`//div[contains(., 'compare my current insurance')]`),
		},
	}

	t.Interacting()
	o.resolver.ScrollTo(ctx, sel)
	o.sim.Pause(ctx, humanoid.PauseSettle)
	if err := o.resolver.Click(ctx, sel); err != nil {
		return err
	}
	o.sim.Pause(ctx, humanoid.PauseSettle)
	return nil
}

func stageResidenceOwnership(ctx context.Context, o *Orchestrator, t *Tracker) error {
	t.Interacting()
	return o.clickRadio(ctx, "residence_ownership", "radio-text-residence_ownership-0-3")
}

func stagePurchaseTimeframe(ctx context.Context, o *Orchestrator, t *Tracker) error {
	t.Interacting()
	return o.clickRadio(ctx, "purchase_timeframe", "radio-text-user_purchase_timeframe-0-FUTURE")
}

func stageSectionContinue(ctx context.Context, o *Orchestrator, t *Tracker) error {
	o.sim.ScrollNudge(ctx, o.page)
	return o.continueThrough(ctx, t, continueButton)
}

// stageGaragingAddress types the profile address and accepts the first
// autocomplete suggestion. The suggestion list has shipped under several
// different markups, hence the long selector chain.
func stageGaragingAddress(ctx context.Context, o *Orchestrator, t *Tracker) error {
	t.Interacting()
	if err := o.typeInput(ctx, "garaging_address", "textinput-input-garaging_address", o.sc.Profile.GaragingAddress); err != nil {
		return err
	}

	// Let the suggestion list render before hunting for it.
	o.sim.Pause(ctx, humanoid.PauseFilter)

	t.Resolving()
	suggestion := FieldSelector{
		Name: "address_suggestion",
		Need: Clickable,
		Locators: []schemas.Locator{
			schemas.CSS(`#address-suggestion-0`),
			schemas.CSS(`.address-suggestion.suggestion-selected`),
			schemas.CSS(`[role="option"][id="address-suggestion-0"]`),
			schemas.XPath(`//div[@id='address-suggestion-0']`),
			schemas.CSS(`#ex-list-box li:first-child`),
			schemas.CSS(`ul[role="listbox"] li:first-child`),
			schemas.XPath(`//li[@role='option'][1]`),
			schemas.XPath(`//ul[contains(@class, 'autocomplete')]//li[1]`),
		},
	}

	t.Interacting()
	o.resolver.ScrollTo(ctx, suggestion)
	o.sim.Pause(ctx, humanoid.PauseShort)
	if err := o.resolver.Click(ctx, suggestion); err != nil {
		return fmt.Errorf("address suggestion list did not appear: %w", err)
	}
	o.sim.Pause(ctx, humanoid.PauseFilter)
	return nil
}

func stagePersonalInfo(ctx context.Context, o *Orchestrator, t *Tracker) error {
	t.Interacting()
	fields := []struct {
		name, dataCy, value string
	}{
		{"first_name", "textinput-input-first_name-0", o.sc.Profile.FirstName},
		{"last_name", "textinput-input-last_name-0", o.sc.Profile.LastName},
		{"date_of_birth", "textinput-input-date_of_birth-0", o.sc.Profile.DateOfBirth},
	}
	for _, f := range fields {
		if err := o.typeInput(ctx, f.name, f.dataCy, f.value); err != nil {
			return fmt.Errorf("filling %s: %w", f.name, err)
		}
	}

	return o.continueThrough(ctx, t, continueButton)
}

// stageVehicleSelection picks year, make, and model via the searchable
// dropdowns, then accepts whatever trim the page offers first. Trim is
// optional; a trim failure degrades to a logged skip.
func stageVehicleSelection(ctx context.Context, o *Orchestrator, t *Tracker) error {
	t.Interacting()
	selections := []struct {
		dataCy, value, field string
	}{
		{"dropdown-search-vehicles-0-year", o.sc.Vehicle.Year, "Year"},
		{"dropdown-search-vehicles-0-make", o.sc.Vehicle.Make, "Make"},
		{"dropdown-search-vehicles-0-model", o.sc.Vehicle.Model, "Model"},
	}
	for _, s := range selections {
		if _, err := o.dropdown.Select(ctx, s.dataCy, s.value, s.field); err != nil {
			return fmt.Errorf("could not select vehicle %s: %w", s.field, err)
		}
	}

	t.Verifying()
	result, err := o.dropdown.AcceptFirst(ctx, "dropdown-search-vehicles-0-submodel", "Trim")
	switch {
	case err != nil:
		o.logger.Info("Trim selection unavailable, skipping.", zap.Error(err))
	case result.ConfirmedValue != "":
		o.logger.Info("Trim selected.", zap.String("trim", result.ConfirmedValue))
	default:
		o.logger.Warn("Trim selection could not be verified, continuing.")
	}
	return nil
}

func stageAddAnotherVehicle(ctx context.Context, o *Orchestrator, t *Tracker) error {
	t.Interacting()
	if err := o.clickRadio(ctx, "add_another_vehicle", "radio-text-addAnother-vehicle-1-0"); err != nil {
		return err
	}
	return o.continueThrough(ctx, t, continueButton)
}

func stageVehicleUsage(ctx context.Context, o *Orchestrator, t *Tracker) error {
	t.Resolving()
	// The ownership answer is exposed inconsistently: sometimes only the text
	// element is clickable, sometimes the label, sometimes the raw input.
	ownership := FieldSelector{
		Name: "vehicle_ownership",
		Need: Clickable,
		Locators: []schemas.Locator{
			schemas.CSS(`[data-cy="radio-text-vehicle-ownership-0-0"]`),
			schemas.CSS(`[data-cy="radio-vehicle-ownership-0-0"]`),
			schemas.CSS(`[data-cy="radio-input-vehicle-ownership-0-0"]`),
		},
	}

	t.Interacting()
	o.resolver.ScrollTo(ctx, ownership)
	o.sim.Pause(ctx, humanoid.PauseShort)
	o.sim.Drift(ctx, o.page)
	if err := o.resolver.Click(ctx, ownership); err != nil {
		return fmt.Errorf("selecting vehicle ownership: %w", err)
	}
	o.sim.Pause(ctx, humanoid.PauseSettle)

	if err := o.clickRadio(ctx, "primary_use", "radio-text-vehicle-primary_use-0-0"); err != nil {
		return fmt.Errorf("selecting primary use: %w", err)
	}

	if err := o.typeInput(ctx, "annual_miles", "textinput-input-miles-0", o.sc.Profile.AnnualMiles); err != nil {
		return fmt.Errorf("entering annual miles: %w", err)
	}

	// Ownership length is tolerated: the page accepts the form without it.
	if _, err := o.dropdown.Select(ctx, "dropdown-search-vehicle-ownership_length-0",
		o.sc.Profile.OwnershipLength, "Ownership Length"); err != nil {
		o.logger.Warn("Could not fill ownership duration, continuing.", zap.Error(err))
	}

	return o.continueThrough(ctx, t, continueButton)
}

// stageDriverProfile fills the long demographics page: radios, two searchable
// dropdowns, contact fields, and the coverage-level answer.
func stageDriverProfile(ctx context.Context, o *Orchestrator, t *Tracker) error {
	t.Interacting()

	if err := o.clickRadio(ctx, "gender", "radio-text-gender-0-0"); err != nil {
		return fmt.Errorf("selecting gender: %w", err)
	}
	if err := o.clickRadio(ctx, "marital_status", "radio-text-marital_status-0-0"); err != nil {
		return fmt.Errorf("selecting marital status: %w", err)
	}
	if err := o.clickRadio(ctx, "credit_score", "radio-text-credit_score-0-1"); err != nil {
		return fmt.Errorf("selecting credit score: %w", err)
	}

	// The page sometimes pre-answers these; overwriting a pre-selected radio
	// toggles it off.
	o.optionalRadio(ctx, "education", "radio-text-education-0-0")

	if _, err := o.dropdown.Select(ctx, "dropdown-search-employment-0",
		o.sc.Profile.Employment, "Employment"); err != nil {
		o.logger.Warn("Could not select employment status, continuing.", zap.Error(err))
	}
	if _, err := o.dropdown.Select(ctx, "dropdown-search-current_carrier-0",
		o.sc.Profile.CurrentCarrier, "Current Carrier"); err != nil {
		o.logger.Warn("Could not select current carrier, continuing.", zap.Error(err))
	}

	o.optionalRadio(ctx, "insured_length", "radio-text-insured_length-0-0")

	// The bodily-injury data-cy embeds "$" and spaces, which CSS attribute
	// selectors handle poorly; XPath first, text content last.
	bodilyInjury := FieldSelector{
		Name: "bodily_injury",
		Need: Clickable,
		Locators: []schemas.Locator{
			schemas.XPath(`//div[@data-cy='radio-text-current_bodily_injury_per_person-0-$15k / $30k']`),
			schemas.XPath(`//div[contains(@data-cy, 'current_bodily_injury_per_person') and contains(@data-cy, '$15k')]`),
			schemas.XPath(`//div[contains(text(), '$15k / $30k')]`),
		},
	}
	o.resolver.ScrollTo(ctx, bodilyInjury)
	o.sim.Pause(ctx, humanoid.PauseShort)
	o.sim.Drift(ctx, o.page)
	if err := o.resolver.Click(ctx, bodilyInjury); err != nil {
		return fmt.Errorf("selecting bodily injury coverage: %w", err)
	}
	o.sim.Pause(ctx, humanoid.PauseShort)

	o.optionalRadio(ctx, "violations", "radio-text-violations-0")

	if err := o.typeInput(ctx, "email", "textinput-input-email-0", o.sc.Profile.Email); err != nil {
		return fmt.Errorf("entering email: %w", err)
	}
	if err := o.typeInput(ctx, "phone", "textinput-input-phone-number-input", o.sc.Profile.Phone); err != nil {
		return fmt.Errorf("entering phone: %w", err)
	}

	if err := o.clickRadio(ctx, "military_affiliation", "radio-text-has_military_affiliation-false"); err != nil {
		return fmt.Errorf("selecting military affiliation: %w", err)
	}

	return o.continueThrough(ctx, t, continueButton)
}

// stageShowQuotes presses the quotes CTA; once its URL-change verification
// passes, the run is on the results page and failures stop being fatal.
func stageShowQuotes(ctx context.Context, o *Orchestrator, t *Tracker) error {
	cta := CySelector("show_quotes", "primary-button_show-quotes-minimum-desktop", Clickable)

	t.Interacting()
	o.resolver.ScrollTo(ctx, cta)
	o.sim.Pause(ctx, humanoid.PauseSettle)
	o.sim.Drift(ctx, o.page)
	o.sim.Pause(ctx, humanoid.PauseClick)

	before, err := o.page.CurrentURL(ctx)
	if err != nil {
		return fmt.Errorf("reading URL before showing quotes: %w", err)
	}

	if err := o.resolver.Click(ctx, cta); err != nil {
		return err
	}

	t.Verifying()
	if err := o.verifyURLChanged(ctx, before); err != nil {
		return err
	}
	o.sim.Pause(ctx, humanoid.PauseNavigation)
	return nil
}
