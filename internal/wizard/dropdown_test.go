// internal/wizard/dropdown_test.go
package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDropdown(page *fakePage) *DropdownController {
	resolver := NewResolver(page, 50*time.Millisecond, zap.NewNop())
	return NewDropdownController(page, resolver, nil, zap.NewNop())
}

func TestSelectSkipsWhenValueAlreadyPresent(t *testing.T) {
	page := newFakePage()
	page.present["custom-dropdown__single-value"] = true
	page.texts["custom-dropdown__single-value"] = "Toyota"

	result, err := newTestDropdown(page).Select(context.Background(), "dropdown-search-vehicles-0-make", "Honda", "vehicle make")
	require.NoError(t, err)

	assert.False(t, result.Attempted, "a preset field must not be re-selected")
	assert.True(t, result.Succeeded)
	assert.Equal(t, "Toyota", result.ConfirmedValue, "the pre-existing value is recorded, not overwritten")

	// The selection protocol must not have touched the widget.
	assert.Zero(t, page.countCalls("keys:"))
	assert.Zero(t, page.countCalls("clear:"))
	assert.Zero(t, page.countCalls("enter:"))
}

func TestSelectTypesFilterAndConfirms(t *testing.T) {
	page := newFakePage()
	page.visible[`[data-cy="dropdown-search-vehicles-0-make"]`] = true
	page.present["custom-dropdown__control"] = true

	result, err := newTestDropdown(page).Select(context.Background(), "dropdown-search-vehicles-0-make", "Toyota", "vehicle make")
	require.NoError(t, err)

	assert.True(t, result.Attempted)
	assert.True(t, result.Succeeded)

	// One keystroke per rune, then Enter confirms the top filtered option.
	assert.Equal(t, len("Toyota"), page.countCalls("keys:"))
	assert.Equal(t, 1, page.countCalls("enter:"))
	assert.Equal(t, 1, page.countCalls("clear:"))
}

func TestSelectFailsWhenInputMissing(t *testing.T) {
	page := newFakePage()

	result, err := newTestDropdown(page).Select(context.Background(), "dropdown-search-vehicles-0-year", "2020", "vehicle year")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSelection)
	assert.True(t, result.Attempted)
	assert.False(t, result.Succeeded)
}

func TestAcceptFirstConfirmsTopOption(t *testing.T) {
	page := newFakePage()
	page.visible[`[data-cy="dropdown-search-vehicles-0-submodel"]`] = true
	page.present["custom-dropdown__indicator"] = true
	page.present[`[role="option"]`] = true

	result, err := newTestDropdown(page).AcceptFirst(context.Background(), "dropdown-search-vehicles-0-submodel", "vehicle trim")
	require.NoError(t, err)

	assert.True(t, result.Attempted)
	assert.True(t, result.Succeeded)
	// No filter text is typed; whatever sits on top is accepted.
	assert.Zero(t, page.countCalls("keys:"))
	assert.Equal(t, 1, page.countCalls("enter:"))
}
