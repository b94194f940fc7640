// internal/browser/manager.go
// Package browser manages headless Chrome lifecycles and exposes a
// session-oriented interaction surface over chromedp.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/internal/config"
)

// Manager owns a shared Chrome allocator and hands out isolated tab sessions.
type Manager struct {
	cfg        config.Config
	logger     *zap.Logger
	allocCtx   context.Context
	allocStop  context.CancelFunc
	mu         sync.Mutex
	closed     bool
}

// NewManager launches the browser allocator. Sessions created from it share
// one Chrome process but run in separate tabs.
func NewManager(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Manager, error) {
	opts := buildExecOptions(cfg.Browser)
	allocCtx, allocStop := chromedp.NewExecAllocator(ctx, opts...)

	m := &Manager{
		cfg:       cfg,
		logger:    logger.Named("browser"),
		allocCtx:  allocCtx,
		allocStop: allocStop,
	}
	m.logger.Info("Browser allocator initialized.",
		zap.Bool("headless", cfg.Browser.Headless),
		zap.Int("debugging_port", cfg.Browser.DebuggingPort))
	return m, nil
}

func buildExecOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.DisableGPU {
		opts = append(opts, chromedp.DisableGPU)
	}
	if cfg.DebuggingPort > 0 {
		opts = append(opts, chromedp.Flag("remote-debugging-port", fmt.Sprintf("%d", cfg.DebuggingPort)))
	}
	for _, arg := range cfg.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}
	return opts
}

// NewSession opens a fresh tab and returns a Session bound to it.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrSessionClosed
	}

	tabCtx, tabCancel := chromedp.NewContext(m.allocCtx)
	// Force the browser process to start now so failures surface here rather
	// than on the first navigation.
	setup := []chromedp.Action{network.Enable()}
	if ua := m.cfg.Browser.UserAgent; ua != "" {
		setup = append(setup, emulation.SetUserAgentOverride(ua))
	}
	if err := chromedp.Run(tabCtx, setup...); err != nil {
		tabCancel()
		return nil, fmt.Errorf("browser: failed to start tab: %w", err)
	}

	return &Session{
		ctx:        tabCtx,
		cancel:     tabCancel,
		network:    m.cfg.Network,
		logger:     m.logger.Named("session"),
		runActions: chromedp.Run,
	}, nil
}

// Close tears down the allocator and every tab spawned from it.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.allocStop()
	m.logger.Info("Browser allocator closed.")
}
