// internal/wizard/page_fake_test.go
package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/quotehound/api/schemas"
)

// fakePage is an in-memory PageSession for exercising the wizard core without
// a browser. Lookups match configured keys as substrings of the locator query,
// so tests can key on the distinctive fragment of a long XPath.
type fakePage struct {
	mu sync.Mutex

	url    string
	title  string
	navErr error

	visible map[string]bool
	present map[string]bool
	texts   map[string]string
	attrs   map[string]map[string]string

	// Remaining induced failures per query fragment.
	clickErrs       map[string]int
	clickScriptErrs map[string]int
	sendKeyErrs     map[string]int
	clearErrs       map[string]int

	// urlAfterClick rewrites the page URL when a matching element is clicked.
	urlAfterClick map[string]string

	evalFn func(script string, res any) error

	calls []string
}

func newFakePage() *fakePage {
	return &fakePage{
		url:             "https://example.test/start",
		title:           "Example",
		visible:         map[string]bool{},
		present:         map[string]bool{},
		texts:           map[string]string{},
		attrs:           map[string]map[string]string{},
		clickErrs:       map[string]int{},
		clickScriptErrs: map[string]int{},
		sendKeyErrs:     map[string]int{},
		clearErrs:       map[string]int{},
		urlAfterClick:   map[string]string{},
	}
}

func (f *fakePage) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// Calls returns a snapshot of the interaction log.
func (f *fakePage) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakePage) countCalls(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func matchBool(m map[string]bool, query string) bool {
	for k, v := range m {
		if v && strings.Contains(query, k) {
			return true
		}
	}
	return false
}

func matchString(m map[string]string, query string) (string, bool) {
	for k, v := range m {
		if strings.Contains(query, k) {
			return v, true
		}
	}
	return "", false
}

// consumeErr decrements a per-query failure budget and reports whether this
// call should fail.
func (f *fakePage) consumeErr(m map[string]int, query string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, n := range m {
		if n > 0 && strings.Contains(query, k) {
			m[k] = n - 1
			return true
		}
	}
	return false
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	f.record("navigate:" + url)
	if f.navErr != nil {
		return f.navErr
	}
	f.mu.Lock()
	f.url = url
	f.mu.Unlock()
	return nil
}

func (f *fakePage) CurrentURL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url, nil
}

func (f *fakePage) Title(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.title, nil
}

func (f *fakePage) WaitVisible(ctx context.Context, loc schemas.Locator, timeout time.Duration) error {
	f.record("waitvisible:" + loc.Query)
	if matchBool(f.visible, loc.Query) {
		return nil
	}
	return fmt.Errorf("not visible: %s", loc.Query)
}

func (f *fakePage) Exists(ctx context.Context, loc schemas.Locator) (bool, error) {
	f.record("exists:" + loc.Query)
	return matchBool(f.present, loc.Query) || matchBool(f.visible, loc.Query), nil
}

func (f *fakePage) Click(ctx context.Context, loc schemas.Locator) error {
	f.record("click:" + loc.Query)
	if f.consumeErr(f.clickErrs, loc.Query) {
		return fmt.Errorf("click failed: %s", loc.Query)
	}
	f.applyClickURL(loc.Query)
	return nil
}

func (f *fakePage) ClickScript(ctx context.Context, loc schemas.Locator) error {
	f.record("clickscript:" + loc.Query)
	if f.consumeErr(f.clickScriptErrs, loc.Query) {
		return fmt.Errorf("scripted click failed: %s", loc.Query)
	}
	f.applyClickURL(loc.Query)
	return nil
}

func (f *fakePage) applyClickURL(query string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, next := range f.urlAfterClick {
		if strings.Contains(query, k) {
			f.url = next
			return
		}
	}
}

func (f *fakePage) SendKeys(ctx context.Context, loc schemas.Locator, text string) error {
	f.record("keys:" + loc.Query + ":" + text)
	if f.consumeErr(f.sendKeyErrs, loc.Query) {
		return fmt.Errorf("send keys failed: %s", loc.Query)
	}
	return nil
}

func (f *fakePage) PressEnter(ctx context.Context, loc schemas.Locator) error {
	f.record("enter:" + loc.Query)
	return nil
}

func (f *fakePage) Clear(ctx context.Context, loc schemas.Locator) error {
	f.record("clear:" + loc.Query)
	if f.consumeErr(f.clearErrs, loc.Query) {
		return fmt.Errorf("clear failed: %s", loc.Query)
	}
	return nil
}

func (f *fakePage) SelectAllAndDelete(ctx context.Context, loc schemas.Locator) error {
	f.record("selectalldelete:" + loc.Query)
	return nil
}

func (f *fakePage) Text(ctx context.Context, loc schemas.Locator) (string, error) {
	f.record("text:" + loc.Query)
	if v, ok := matchString(f.texts, loc.Query); ok {
		return v, nil
	}
	return "", fmt.Errorf("no text for: %s", loc.Query)
}

func (f *fakePage) Attribute(ctx context.Context, loc schemas.Locator, name string) (string, bool, error) {
	f.record("attr:" + loc.Query + ":" + name)
	for k, attrs := range f.attrs {
		if strings.Contains(loc.Query, k) {
			v, ok := attrs[name]
			return v, ok, nil
		}
	}
	return "", false, nil
}

func (f *fakePage) Evaluate(ctx context.Context, script string, res any) error {
	f.record("evaluate")
	if f.evalFn != nil {
		return f.evalFn(script, res)
	}
	return nil
}

func (f *fakePage) ScrollIntoView(ctx context.Context, loc schemas.Locator) error {
	f.record("scroll:" + loc.Query)
	return nil
}

func (f *fakePage) DispatchMouseMove(ctx context.Context, x, y float64) error {
	f.record("mousemove")
	return nil
}

func (f *fakePage) Close(ctx context.Context) error {
	f.record("close")
	return nil
}

// setJSON assigns v to res through a JSON round trip, matching how the real
// session unmarshals script results.
func setJSON(res any, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, res)
}
