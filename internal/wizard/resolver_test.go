// internal/wizard/resolver_test.go
package wizard

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/quotehound/api/schemas"
)

func newTestResolver(page *fakePage) *Resolver {
	return NewResolver(page, 50*time.Millisecond, zap.NewNop())
}

func TestResolveWalksStrategiesInOrder(t *testing.T) {
	page := newFakePage()
	page.present["#fallback-target"] = true

	sel := FieldSelector{
		Name: "target",
		Need: Present,
		Locators: []schemas.Locator{
			schemas.CSS("#primary-target"),
			schemas.CSS("#fallback-target"),
		},
	}

	loc, err := newTestResolver(page).Resolve(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, "#fallback-target", loc.Query)

	// The primary strategy must have been probed before the fallback.
	calls := page.Calls()
	primaryIdx, fallbackIdx := -1, -1
	for i, c := range calls {
		if strings.Contains(c, "#primary-target") && primaryIdx == -1 {
			primaryIdx = i
		}
		if strings.Contains(c, "#fallback-target") && fallbackIdx == -1 {
			fallbackIdx = i
		}
	}
	require.NotEqual(t, -1, primaryIdx)
	require.NotEqual(t, -1, fallbackIdx)
	assert.Less(t, primaryIdx, fallbackIdx, "strategies must be tried in declared order")
}

func TestResolveClickableUsesVisibility(t *testing.T) {
	page := newFakePage()
	page.visible["#button"] = true

	loc, err := newTestResolver(page).Resolve(context.Background(), FieldSelector{
		Name:     "button",
		Need:     Clickable,
		Locators: []schemas.Locator{schemas.CSS("#button")},
	})
	require.NoError(t, err)
	assert.Equal(t, "#button", loc.Query)
	assert.Equal(t, 1, page.countCalls("waitvisible:"))
}

func TestResolveExhaustedReturnsNotFound(t *testing.T) {
	page := newFakePage()

	_, err := newTestResolver(page).Resolve(context.Background(), FieldSelector{
		Name: "ghost",
		Need: Present,
		Locators: []schemas.Locator{
			schemas.CSS("#nowhere"),
			schemas.XPath("//div[@id='nowhere-else']"),
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Contains(t, err.Error(), "ghost")
}

func TestClickFallsBackToScriptedClick(t *testing.T) {
	page := newFakePage()
	page.visible["#obstructed"] = true
	page.clickErrs["#obstructed"] = 1

	err := newTestResolver(page).Click(context.Background(), FieldSelector{
		Name:     "obstructed",
		Need:     Clickable,
		Locators: []schemas.Locator{schemas.CSS("#obstructed")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, page.countCalls("click:"))
	assert.Equal(t, 1, page.countCalls("clickscript:"))
}

func TestClickExhaustsStaleRetries(t *testing.T) {
	page := newFakePage()
	page.visible["#flaky"] = true
	// Both click paths fail on every attempt.
	page.clickErrs["#flaky"] = staleRetryLimit
	page.clickScriptErrs["#flaky"] = staleRetryLimit

	err := newTestResolver(page).Click(context.Background(), FieldSelector{
		Name:     "flaky",
		Need:     Clickable,
		Locators: []schemas.Locator{schemas.CSS("#flaky")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Equal(t, staleRetryLimit, page.countCalls("click:"))
}

func TestClickRecoversAfterStaleAttempt(t *testing.T) {
	page := newFakePage()
	page.visible["#rerendered"] = true
	// First attempt fails on both paths; the retry succeeds.
	page.clickErrs["#rerendered"] = 1
	page.clickScriptErrs["#rerendered"] = 1

	err := newTestResolver(page).Click(context.Background(), FieldSelector{
		Name:     "rerendered",
		Need:     Clickable,
		Locators: []schemas.Locator{schemas.CSS("#rerendered")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.countCalls("click:"))
}

func TestTypeRunesReplaysAfterStaleNode(t *testing.T) {
	page := newFakePage()
	page.visible["#name-input"] = true
	page.sendKeyErrs["#name-input"] = 1

	err := newTestResolver(page).TypeRunes(context.Background(), FieldSelector{
		Name:     "name",
		Need:     Clickable,
		Locators: []schemas.Locator{schemas.CSS("#name-input")},
	}, "alex", nil)
	require.NoError(t, err)

	// Four runes plus the one replayed after the induced failure.
	assert.Equal(t, 5, page.countCalls("keys:"))
}

func TestClearFieldFallsBackToSelectAllDelete(t *testing.T) {
	page := newFakePage()
	page.visible["#stubborn"] = true
	page.clearErrs["#stubborn"] = 1

	err := newTestResolver(page).ClearField(context.Background(), FieldSelector{
		Name:     "stubborn",
		Need:     Clickable,
		Locators: []schemas.Locator{schemas.CSS("#stubborn")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, page.countCalls("selectalldelete:"))
}

func TestCySelector(t *testing.T) {
	sel := CySelector("continue", "button-continue-0", Clickable)
	assert.Equal(t, "continue", sel.Name)
	assert.Equal(t, Clickable, sel.Need)
	require.Len(t, sel.Locators, 1)
	assert.Equal(t, `[data-cy="button-continue-0"]`, sel.Locators[0].Query)
}
