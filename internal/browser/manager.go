// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/quotehound/internal/config"
)

const shutdownGracePeriod = 15 * time.Second

// Manager owns the single browser session. At most one session exists at a
// time; starting a new one tears the previous one down first, so the last
// writer always wins.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	mu      sync.Mutex
	current *Session
}

// NewManager creates a new browser manager. The browser process itself is not
// launched until a session is requested.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}
}

// launchOptions assembles the exec allocator flags. The defaults mirror what
// commodity bot detection checks for: the AutomationControlled blink feature,
// missing window metrics, and the sandbox flags containers require.
func (m *Manager) launchOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{},
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", m.cfg.Browser.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", m.cfg.Browser.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-ipc-flooding-protection", true),
		chromedp.WindowSize(m.cfg.Browser.WindowWidth, m.cfg.Browser.WindowHeight),
	)

	if m.cfg.Browser.BinaryPath != "" {
		opts = append(opts, chromedp.ExecPath(m.cfg.Browser.BinaryPath))
	}
	for _, arg := range m.cfg.Browser.Args {
		opts = append(opts, chromedp.Flag(trimFlag(arg), true))
	}
	return opts
}

func trimFlag(arg string) string {
	for len(arg) > 0 && arg[0] == '-' {
		arg = arg[1:]
	}
	return arg
}

// StartSession launches a fresh browser and registers it as the current
// session, replacing (and closing) any session that was already live.
func (m *Manager) StartSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	previous := m.current
	m.current = nil
	m.mu.Unlock()

	if previous != nil {
		m.logger.Info("Replacing live session.", zap.String("session_id", previous.ID()))
		// Detached so the teardown survives cancellation of the request that
		// triggered the replacement.
		closeCtx, cancel := context.WithTimeout(Detach(ctx), shutdownGracePeriod)
		if err := previous.Close(closeCtx); err != nil {
			m.logger.Warn("Error closing previous session.", zap.Error(err))
		}
		cancel()
	}

	m.logger.Info("Launching browser.",
		zap.Bool("headless", m.cfg.Browser.Headless),
		zap.String("binary", m.cfg.Browser.BinaryPath),
	)

	// The allocator hangs off context.Background() so the browser's lifetime
	// is governed by the session, not by the HTTP request that started it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), m.launchOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	session := newSession(tabCtx, tabCancel, allocCancel, m.cfg, m.logger, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.current != nil && m.current.ctx == tabCtx {
			m.current = nil
		}
	})

	initCtx, initCancel := CombineContext(tabCtx, ctx)
	defer initCancel()

	if err := session.initialize(initCtx); err != nil {
		cleanupCtx, cancel := context.WithTimeout(Detach(ctx), shutdownGracePeriod)
		defer cancel()
		session.Close(cleanupCtx)
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	m.mu.Lock()
	m.current = session
	m.mu.Unlock()

	m.logger.Info("New session created.", zap.String("session_id", session.ID()))
	return session, nil
}

// Current returns the live session, or nil when none exists.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// StopSession closes the live session if one exists and reports whether it
// did. The registry slot is vacated before the close begins so a concurrent
// StartSession never adopts a dying session.
func (m *Manager) StopSession(ctx context.Context) bool {
	m.mu.Lock()
	session := m.current
	m.current = nil
	m.mu.Unlock()

	if session == nil {
		return false
	}

	if err := session.Close(ctx); err != nil {
		m.logger.Warn("Error during session close.", zap.String("session_id", session.ID()), zap.Error(err))
	}
	return true
}

// Shutdown closes any live session as part of process teardown.
func (m *Manager) Shutdown(ctx context.Context) {
	m.logger.Info("Shutting down browser manager.")

	closeCtx, cancel := context.WithTimeout(ctx, shutdownGracePeriod)
	defer cancel()

	if m.StopSession(closeCtx) {
		m.logger.Info("Live session closed during shutdown.")
	}
}
