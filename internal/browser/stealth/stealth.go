package stealth

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

//go:embed evasions.js
var evasionsScript string

// Persona defines the browser characteristics to emulate.
type Persona struct {
	UserAgent string
	Platform  string
	Languages []string
	Timezone  string
	Locale    string
}

// DefaultPersona provides a realistic default browser profile.
var DefaultPersona = Persona{
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	Platform:  "Win32",
	Languages: []string{"en-US", "en"},
	Timezone:  "America/Los_Angeles",
	Locale:    "en-US",
}

// Apply constructs a sequence of Chrome DevTools Protocol actions to make the
// headless browser appear more like a standard, user-operated browser. The
// evasion script must be registered before the first navigation; overrides
// installed afterwards miss the landing page's detection probes.
func Apply(p Persona, logger *zap.Logger) chromedp.Tasks {
	logger.Debug("Applying browser stealth persona",
		zap.String("userAgent", p.UserAgent),
		zap.String("platform", p.Platform),
	)

	return chromedp.Tasks{
		emulation.SetUserAgentOverride(p.UserAgent),

		// page.AddScriptToEvaluateOnNewDocument's Do returns two values, so it
		// needs the ActionFunc wrapper to satisfy chromedp.Action.
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(evasionsScript).Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to inject evasions script: %w", err)
			}
			return nil
		}),

		emulation.SetTimezoneOverride(p.Timezone),
		emulation.SetLocaleOverride().WithLocale(p.Locale),

		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": acceptLanguage(p.Languages),
		}),
	}
}

// acceptLanguage renders the persona's languages as an Accept-Language value,
// with descending q-values after the primary language.
func acceptLanguage(languages []string) string {
	if len(languages) == 0 {
		languages = DefaultPersona.Languages
	}

	parts := make([]string, 0, len(languages))
	parts = append(parts, languages[0])
	q := 0.9
	for _, lang := range languages[1:] {
		parts = append(parts, fmt.Sprintf("%s;q=%.1f", lang, q))
		if q > 0.2 {
			q -= 0.1
		}
	}
	return strings.Join(parts, ",")
}
