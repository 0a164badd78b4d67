// internal/wizard/resolver.go
package wizard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/quotehound/api/schemas"
)

// Readiness is the predicate a resolved element must satisfy.
type Readiness int

const (
	// Present requires the node to exist in the DOM.
	Present Readiness = iota
	// Clickable additionally requires the node to be visible.
	Clickable
)

const (
	// staleRetryLimit bounds re-resolution when the page replaces a node
	// between lookup and use. The page re-renders after most keystrokes and
	// radio clicks, so every interaction point carries this retry budget.
	staleRetryLimit = 3
	staleRetryPause = 250 * time.Millisecond

	presentPollInterval = 200 * time.Millisecond
)

// FieldSelector is an ordered sequence of independent lookup strategies for
// one logical element. Order is fixed and deterministic; every strategy is a
// semantically equivalent way to reach the same target.
type FieldSelector struct {
	Name     string
	Need     Readiness
	Locators []schemas.Locator
}

// CySelector builds the common single-strategy selector for a data-cy
// attribute.
func CySelector(name, dataCy string, need Readiness) FieldSelector {
	return FieldSelector{
		Name:     name,
		Need:     need,
		Locators: []schemas.Locator{schemas.CSS(fmt.Sprintf(`[data-cy=%q]`, dataCy))},
	}
}

// Resolver locates elements by walking a FieldSelector's strategies in
// declared order and retries interactions on transient staleness. Resolution
// itself never mutates page state.
type Resolver struct {
	page    schemas.PageSession
	logger  *zap.Logger
	timeout time.Duration
}

// NewResolver builds a resolver. timeout bounds each strategy's readiness
// wait.
func NewResolver(page schemas.PageSession, timeout time.Duration, logger *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{
		page:    page,
		logger:  logger.Named("resolver"),
		timeout: timeout,
	}
}

// Resolve returns the first locator in declared order whose element satisfies
// the selector's readiness predicate.
func (r *Resolver) Resolve(ctx context.Context, sel FieldSelector) (schemas.Locator, error) {
	for i, loc := range sel.Locators {
		if err := ctx.Err(); err != nil {
			return schemas.Locator{}, err
		}

		var ok bool
		switch sel.Need {
		case Clickable:
			ok = r.page.WaitVisible(ctx, loc, r.timeout) == nil
		default:
			ok = PollUntil(ctx, func(c context.Context) (bool, error) {
				return r.page.Exists(c, loc)
			}, presentPollInterval, r.timeout)
		}

		if ok {
			if i > 0 {
				r.logger.Debug("Element resolved via fallback strategy.",
					zap.String("field", sel.Name), zap.Int("strategy", i+1))
			}
			return loc, nil
		}
		r.logger.Debug("Lookup strategy failed.",
			zap.String("field", sel.Name), zap.Int("strategy", i+1), zap.String("query", loc.Query))
	}

	return schemas.Locator{}, fmt.Errorf("%w: all %d strategies exhausted for field %q",
		ErrElementNotFound, len(sel.Locators), sel.Name)
}

// withRetries re-resolves and re-attempts op when it fails, up to the stale
// retry budget.
func (r *Resolver) withRetries(ctx context.Context, sel FieldSelector, op func(schemas.Locator) error) error {
	var lastErr error
	for attempt := 0; attempt < staleRetryLimit; attempt++ {
		if attempt > 0 {
			r.logger.Debug("Retrying after stale interaction.",
				zap.String("field", sel.Name), zap.Int("attempt", attempt+1))
			select {
			case <-time.After(staleRetryPause):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		loc, err := r.Resolve(ctx, sel)
		if err != nil {
			return err
		}
		if err := op(loc); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: field %q failed after %d attempts: %v",
		ErrElementNotFound, sel.Name, staleRetryLimit, lastErr)
}

// Click resolves the element, scrolls it into view, and clicks it. A trusted
// click that fails falls back to a script-dispatched click before the attempt
// counts as failed.
func (r *Resolver) Click(ctx context.Context, sel FieldSelector) error {
	return r.withRetries(ctx, sel, func(loc schemas.Locator) error {
		if err := r.page.Click(ctx, loc); err != nil {
			r.logger.Debug("Trusted click failed, falling back to scripted click.",
				zap.String("field", sel.Name), zap.Error(err))
			return r.page.ClickScript(ctx, loc)
		}
		return nil
	})
}

// TypeRunes emits the text one rune at a time, invoking pause between runes.
// The widget under test filters reactively per input event; bulk-setting the
// value bypasses that filtering entirely.
func (r *Resolver) TypeRunes(ctx context.Context, sel FieldSelector, text string, pause func()) error {
	loc, err := r.Resolve(ctx, sel)
	if err != nil {
		return err
	}

	for _, ch := range text {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.page.SendKeys(ctx, loc, string(ch)); err != nil {
			// Node was likely replaced by a re-render; re-resolve and replay
			// the rune once.
			loc, err = r.Resolve(ctx, sel)
			if err != nil {
				return err
			}
			if err := r.page.SendKeys(ctx, loc, string(ch)); err != nil {
				return fmt.Errorf("%w: typing into field %q: %v", ErrElementNotFound, sel.Name, err)
			}
		}
		if pause != nil {
			pause()
		}
	}
	return nil
}

// ClearField empties the element, falling back to select-all + delete when
// the direct clear is rejected.
func (r *Resolver) ClearField(ctx context.Context, sel FieldSelector) error {
	return r.withRetries(ctx, sel, func(loc schemas.Locator) error {
		if err := r.page.Clear(ctx, loc); err != nil {
			return r.page.SelectAllAndDelete(ctx, loc)
		}
		return nil
	})
}

// Text reads the trimmed text content of the element.
func (r *Resolver) Text(ctx context.Context, sel FieldSelector) (string, error) {
	var out string
	err := r.withRetries(ctx, sel, func(loc schemas.Locator) error {
		var opErr error
		out, opErr = r.page.Text(ctx, loc)
		return opErr
	})
	return out, err
}

// Attribute reads the named attribute of the element, reporting whether it is
// present.
func (r *Resolver) Attribute(ctx context.Context, sel FieldSelector, name string) (string, bool, error) {
	var value string
	var present bool
	err := r.withRetries(ctx, sel, func(loc schemas.Locator) error {
		var opErr error
		value, present, opErr = r.page.Attribute(ctx, loc, name)
		return opErr
	})
	return value, present, err
}

// ScrollTo brings the element into the viewport. Best-effort.
func (r *Resolver) ScrollTo(ctx context.Context, sel FieldSelector) {
	loc, err := r.Resolve(ctx, sel)
	if err != nil {
		return
	}
	if err := r.page.ScrollIntoView(ctx, loc); err != nil {
		r.logger.Debug("Scroll into view failed.", zap.String("field", sel.Name), zap.Error(err))
	}
}

// PressEnter sends a Return keystroke to the element with one stale retry.
func (r *Resolver) PressEnter(ctx context.Context, sel FieldSelector) error {
	loc, err := r.Resolve(ctx, sel)
	if err != nil {
		return err
	}
	if err := r.page.PressEnter(ctx, loc); err != nil {
		loc, err = r.Resolve(ctx, sel)
		if err != nil {
			return err
		}
		if err := r.page.PressEnter(ctx, loc); err != nil {
			return fmt.Errorf("%w: enter on field %q: %v", ErrElementNotFound, sel.Name, err)
		}
	}
	return nil
}
