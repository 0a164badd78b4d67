// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/quotehound/api/schemas"
	"github.com/xkilldash9x/quotehound/internal/browser/stealth"
	"github.com/xkilldash9x/quotehound/internal/config"
)

// Session represents one live browser tab and implements schemas.PageSession.
// Its lifetime is bounded by the exec allocator it was launched under; Close
// tears both down.
type Session struct {
	id          string
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
	cfg         *config.Config

	onClose func()

	mu       sync.Mutex
	isClosed bool
}

var _ schemas.PageSession = (*Session)(nil)

func newSession(
	tabCtx context.Context,
	tabCancel, allocCancel context.CancelFunc,
	cfg *config.Config,
	logger *zap.Logger,
	onClose func(),
) *Session {
	sessionID := uuid.New().String()
	return &Session{
		id:          sessionID,
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		logger:      logger.With(zap.String("session_id", sessionID)),
		cfg:         cfg,
		onClose:     onClose,
	}
}

// initialize connects to the target and applies the stealth persona. The
// persona must land before the first navigation or the landing page sees the
// unmasked headless fingerprint.
func (s *Session) initialize(ctx context.Context) error {
	if err := chromedp.Run(ctx); err != nil {
		return fmt.Errorf("failed to initialize browser context/target connection: %w", err)
	}

	persona := stealth.DefaultPersona
	if s.cfg.Browser.UserAgent != "" {
		persona.UserAgent = s.cfg.Browser.UserAgent
	}

	if err := chromedp.Run(ctx, stealth.Apply(persona, s.logger)); err != nil {
		return fmt.Errorf("failed to apply stealth persona: %w", err)
	}
	return nil
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// Close terminates the browser session. Idempotent; every exit path of the
// run loop funnels here so the Chrome process never outlives its session.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")

	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

// runActions executes chromedp.Actions, ensuring they respect both the
// session lifetime (s.ctx) and the incoming request context (ctx).
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	return chromedp.Run(runCtx, actions...)
}

// queryOptions maps a locator onto chromedp's selector machinery.
func queryOptions(loc schemas.Locator) (string, chromedp.QueryOption) {
	switch loc.By {
	case schemas.ByXPath:
		return loc.Query, chromedp.BySearch
	case schemas.ByScript:
		return loc.Query, chromedp.ByJSPath
	default:
		return loc.Query, chromedp.ByQuery
	}
}

// nodeExpr returns a JavaScript expression that evaluates to the locator's
// element, or null when nothing matches.
func nodeExpr(loc schemas.Locator) string {
	switch loc.By {
	case schemas.ByXPath:
		return fmt.Sprintf(
			`document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`,
			strconv.Quote(loc.Query))
	case schemas.ByScript:
		return fmt.Sprintf(`(%s)`, loc.Query)
	default:
		return fmt.Sprintf(`document.querySelector(%s)`, strconv.Quote(loc.Query))
	}
}

// Navigate loads the specified URL and waits for the page to stabilize.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating to URL", zap.String("url", url))

	opCtx, opCancel := CombineContext(s.ctx, ctx)
	defer opCancel()

	navTimeout := s.cfg.Network.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 90 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(opCtx, navTimeout)
	defer navCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		if opCtx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", opCtx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	if err := s.stabilize(opCtx); err != nil {
		if opCtx.Err() != nil {
			return opCtx.Err()
		}
		s.logger.Warn("Page stabilization failed after navigation (non-critical).", zap.Error(err))
	}
	return nil
}

// stabilize waits for the DOM to be ready and the document to finish loading.
func (s *Session) stabilize(ctx context.Context) error {
	stabCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := chromedp.Run(stabCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Debug("WaitReady failed during stabilization.", zap.Error(err))
	}

	if err := chromedp.Run(stabCtx,
		chromedp.Poll(`document.readyState === "complete"`, nil,
			chromedp.WithPollingTimeout(10*time.Second)),
	); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Debug("readyState poll failed during stabilization.", zap.Error(err))
	}
	return nil
}

// CurrentURL returns the document URL of the active page.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.runActions(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read page location: %w", err)
	}
	return url, nil
}

// Title returns the document title of the active page.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.runActions(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}
	return title, nil
}

// WaitVisible blocks until the locator matches a visible element or the
// timeout elapses.
func (s *Session) WaitVisible(ctx context.Context, loc schemas.Locator, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.cfg.Network.ElementTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	q, opt := queryOptions(loc)
	if err := s.runActions(waitCtx, chromedp.WaitVisible(q, opt)); err != nil {
		return fmt.Errorf("wait for '%s' failed: %w", loc.Query, err)
	}
	return nil
}

// Exists reports whether the locator currently matches at least one node. It
// probes the DOM once and never blocks.
func (s *Session) Exists(ctx context.Context, loc schemas.Locator) (bool, error) {
	script := fmt.Sprintf(`(() => { try { return Boolean(%s); } catch (e) { return false; } })()`, nodeExpr(loc))

	var found bool
	if err := s.runActions(ctx, chromedp.Evaluate(script, &found)); err != nil {
		return false, fmt.Errorf("existence probe for '%s' failed: %w", loc.Query, err)
	}
	return found, nil
}

// Click scrolls the element into view and dispatches a trusted click.
func (s *Session) Click(ctx context.Context, loc schemas.Locator) error {
	s.logger.Debug("Attempting to click element", zap.String("locator", loc.Query))

	q, opt := queryOptions(loc)
	action := chromedp.Tasks{
		chromedp.ScrollIntoView(q, opt),
		chromedp.WaitVisible(q, opt),
		chromedp.Click(q, opt),
	}

	clickCtx, cancel := context.WithTimeout(ctx, s.cfg.Network.ElementTimeout)
	defer cancel()

	if err := s.runActions(clickCtx, action); err != nil {
		return fmt.Errorf("click action failed for '%s': %w", loc.Query, err)
	}
	return nil
}

// ClickScript dispatches a synthetic element.click() via page script. Used as
// a fallback when an overlay or animation obstructs the trusted click path.
func (s *Session) ClickScript(ctx context.Context, loc schemas.Locator) error {
	script := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) { return false; }
		el.click();
		return true;
	})()`, nodeExpr(loc))

	var clicked bool
	if err := s.runActions(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		return fmt.Errorf("scripted click failed for '%s': %w", loc.Query, err)
	}
	if !clicked {
		return fmt.Errorf("scripted click found no element for '%s'", loc.Query)
	}
	return nil
}

// SendKeys types the text into the matched element.
func (s *Session) SendKeys(ctx context.Context, loc schemas.Locator, text string) error {
	q, opt := queryOptions(loc)

	typeCtx, cancel := context.WithTimeout(ctx, s.cfg.Network.ElementTimeout)
	defer cancel()

	if err := s.runActions(typeCtx, chromedp.SendKeys(q, text, opt)); err != nil {
		return fmt.Errorf("type action failed for '%s': %w", loc.Query, err)
	}
	return nil
}

// PressEnter sends a Return keystroke to the matched element.
func (s *Session) PressEnter(ctx context.Context, loc schemas.Locator) error {
	q, opt := queryOptions(loc)
	if err := s.runActions(ctx, chromedp.SendKeys(q, kb.Enter, opt)); err != nil {
		return fmt.Errorf("enter keystroke failed for '%s': %w", loc.Query, err)
	}
	return nil
}

// Clear empties the matched input element.
func (s *Session) Clear(ctx context.Context, loc schemas.Locator) error {
	q, opt := queryOptions(loc)
	if err := s.runActions(ctx, chromedp.Clear(q, opt)); err != nil {
		return fmt.Errorf("clear action failed for '%s': %w", loc.Query, err)
	}
	return nil
}

// SelectAllAndDelete clears an input via select-all + delete keystrokes, for
// widgets that reject a direct value reset.
func (s *Session) SelectAllAndDelete(ctx context.Context, loc schemas.Locator) error {
	q, opt := queryOptions(loc)
	action := chromedp.Tasks{
		chromedp.Focus(q, opt),
		chromedp.KeyEvent("a", chromedp.KeyModifiers(input.ModifierCtrl)),
		chromedp.KeyEvent(kb.Delete),
	}
	if err := s.runActions(ctx, action); err != nil {
		return fmt.Errorf("select-all clear failed for '%s': %w", loc.Query, err)
	}
	return nil
}

// Text returns the trimmed text content of the matched element.
func (s *Session) Text(ctx context.Context, loc schemas.Locator) (string, error) {
	q, opt := queryOptions(loc)
	var out string
	if err := s.runActions(ctx, chromedp.Text(q, &out, opt)); err != nil {
		return "", fmt.Errorf("text read failed for '%s': %w", loc.Query, err)
	}
	return strings.TrimSpace(out), nil
}

// Attribute returns the named attribute of the matched element and whether it
// is present at all.
func (s *Session) Attribute(ctx context.Context, loc schemas.Locator, name string) (string, bool, error) {
	q, opt := queryOptions(loc)
	var value string
	var ok bool
	if err := s.runActions(ctx, chromedp.AttributeValue(q, name, &value, &ok, opt)); err != nil {
		return "", false, fmt.Errorf("attribute read failed for '%s': %w", loc.Query, err)
	}
	return value, ok, nil
}

// Evaluate runs arbitrary page script and optionally unmarshals the result
// into res.
func (s *Session) Evaluate(ctx context.Context, script string, res any) error {
	if err := s.runActions(ctx, chromedp.Evaluate(script, res)); err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	return nil
}

// ScrollIntoView scrolls the matched element into the viewport.
func (s *Session) ScrollIntoView(ctx context.Context, loc schemas.Locator) error {
	q, opt := queryOptions(loc)
	if err := s.runActions(ctx, chromedp.ScrollIntoView(q, opt)); err != nil {
		return fmt.Errorf("scroll into view failed for '%s': %w", loc.Query, err)
	}
	return nil
}

// DispatchMouseMove sends a raw pointer-move event at viewport coordinates.
func (s *Session) DispatchMouseMove(ctx context.Context, x, y float64) error {
	action := chromedp.ActionFunc(func(c context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(c)
	})
	if err := s.runActions(ctx, action); err != nil {
		return fmt.Errorf("mouse move dispatch failed: %w", err)
	}
	return nil
}
