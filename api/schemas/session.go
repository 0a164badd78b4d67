// api/schemas/session.go
package schemas

import (
	"context"
	"time"
)

// LocatorKind identifies the lookup mechanism a Locator uses.
type LocatorKind string

const (
	// ByCSS locates an element with a CSS selector.
	ByCSS LocatorKind = "css"
	// ByXPath locates an element with an XPath expression.
	ByXPath LocatorKind = "xpath"
	// ByScript locates an element with a JavaScript expression that
	// evaluates to a DOM node.
	ByScript LocatorKind = "js"
)

// Locator is a single, self-contained strategy for reaching one page element.
type Locator struct {
	By    LocatorKind
	Query string
}

// CSS returns a CSS-selector locator.
func CSS(query string) Locator { return Locator{By: ByCSS, Query: query} }

// XPath returns an XPath locator.
func XPath(query string) Locator { return Locator{By: ByXPath, Query: query} }

// Script returns a JavaScript locator. The expression must evaluate to a
// single DOM node.
func Script(expr string) Locator { return Locator{By: ByScript, Query: expr} }

// PageSession is the capability surface the wizard core requires from the
// browser automation layer. The core depends only on this interface, never on
// a concrete automation product.
type PageSession interface {
	// Navigate loads the URL and blocks until the navigation commits.
	Navigate(ctx context.Context, url string) error
	// CurrentURL returns the document URL of the active page.
	CurrentURL(ctx context.Context) (string, error)
	// Title returns the document title of the active page.
	Title(ctx context.Context) (string, error)

	// WaitVisible blocks until the locator matches a visible element or the
	// timeout elapses.
	WaitVisible(ctx context.Context, loc Locator, timeout time.Duration) error
	// Exists reports whether the locator currently matches at least one node.
	// It never blocks waiting for the node to appear.
	Exists(ctx context.Context, loc Locator) (bool, error)

	// Click dispatches a trusted click on the matched element.
	Click(ctx context.Context, loc Locator) error
	// ClickScript dispatches a synthetic element.click() via page script.
	// Used as a fallback when the trusted click path is obstructed.
	ClickScript(ctx context.Context, loc Locator) error
	// SendKeys types the text into the matched element.
	SendKeys(ctx context.Context, loc Locator, text string) error
	// PressEnter sends a Return keystroke to the matched element.
	PressEnter(ctx context.Context, loc Locator) error
	// Clear empties the matched input element.
	Clear(ctx context.Context, loc Locator) error
	// SelectAllAndDelete clears an input via select-all + delete keystrokes,
	// for widgets whose value is not clearable directly.
	SelectAllAndDelete(ctx context.Context, loc Locator) error

	// Text returns the trimmed text content of the matched element.
	Text(ctx context.Context, loc Locator) (string, error)
	// Attribute returns the named attribute of the matched element and
	// whether it is present at all.
	Attribute(ctx context.Context, loc Locator, name string) (string, bool, error)

	// Evaluate runs arbitrary page script and optionally unmarshals the
	// result into res.
	Evaluate(ctx context.Context, script string, res any) error
	// ScrollIntoView scrolls the matched element into the viewport.
	ScrollIntoView(ctx context.Context, loc Locator) error
	// DispatchMouseMove sends a raw pointer-move event at viewport
	// coordinates. Best-effort; used only for behavioral camouflage.
	DispatchMouseMove(ctx context.Context, x, y float64) error

	// Close tears the underlying browser session down. Idempotent.
	Close(ctx context.Context) error
}
