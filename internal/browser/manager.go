package browser

import (
	"browser-agent-engine/internal/config"
	"browser-agent-engine/internal/dom"
	"browser-agent-engine/internal/entity"
	"browser-agent-engine/pkg/apperr"
	"browser-agent-engine/pkg/logg"
	"browser-agent-engine/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
	userAgent          = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// Manager is the playwright-backed browser session. It implements
// ports.BrowserManager.
type Manager struct {
	config         *config.Config
	logger         *zap.Logger
	tracer         trace.Tracer
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext
	page           playwright.Page
	ready          bool

	mu       sync.Mutex
	snapshot uuid.UUID
	pageIDs  map[playwright.Page]string
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewManager(params Params) *Manager {
	return &Manager{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, browserManagerName)),
		tracer:  otel.Tracer(browserTracer),
		pageIDs: make(map[playwright.Page]string),
	}
}

func (m *Manager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")
	step.AddEvent("installing playwright")

	err = playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_install_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.playwright = pw

	if m.config.BrowserConfig.UserDataDir != "" {
		return m.launchPersistent(ctx)
	}

	return m.launchNew(ctx)
}

func (m *Manager) launchPersistent(ctx context.Context) (err error) {
	const op = "launchPersistent"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	userDataDir := m.config.BrowserConfig.UserDataDir

	if err := os.MkdirAll(userDataDir, 0755); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "mkdir_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	browserContext, err := m.playwright.Chromium.LaunchPersistentContext(userDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:          playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:            playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
		Viewport:          &playwright.Size{Width: 1280, Height: 720},
		UserAgent:         playwright.String(userAgent),
		JavaScriptEnabled: playwright.Bool(true),
		Args:              []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "launch_persistent_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.browserContext = browserContext

	if pages := browserContext.Pages(); len(pages) > 0 {
		m.setPage(pages[0])
		logger.Info("Using existing page")
	} else {
		page, err := browserContext.NewPage()
		if err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "new_page_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}
		m.setPage(page)
	}

	m.ready = true
	logger.Info("Browser launched successfully", zap.String("user_data_dir", userDataDir))

	return nil
}

func (m *Manager) launchNew(ctx context.Context) (err error) {
	const op = "launchNew"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:   playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browser = browser

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:          &playwright.Size{Width: 1280, Height: 720},
		UserAgent:         playwright.String(userAgent),
		JavaScriptEnabled: playwright.Bool(true),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browserContext = browserContext

	page, err := browserContext.NewPage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.setPage(page)

	m.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

func (m *Manager) IsReady() bool {
	return m.ready
}

// setPage makes page the active one. Any main-frame navigation of it
// invalidates the current snapshot.
func (m *Manager) setPage(page playwright.Page) {
	m.page = page
	m.refOf(page)
	m.invalidate()

	page.OnFrameNavigated(func(frame playwright.Frame) {
		if frame.ParentFrame() == nil {
			m.invalidate()
		}
	})
}

func (m *Manager) invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshot = uuid.Nil
}

func (m *Manager) ensurePageActive() error {
	if m.browserContext == nil {
		return errors.New("browser context is nil")
	}

	if m.page != nil && !m.page.IsClosed() {
		return nil
	}

	m.logger.Info("Page closed, reconnecting to active page...")

	for _, p := range m.browserContext.Pages() {
		if !p.IsClosed() {
			m.setPage(p)

			return nil
		}
	}

	page, err := m.browserContext.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create new page: %w", err)
	}

	m.setPage(page)
	m.logger.Info("Created new page")

	return nil
}

func (m *Manager) checkReady(op string) error {
	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	return nil
}

// timeoutMs turns the remaining context deadline, capped by fallback, into a
// playwright timeout. Playwright reads 0 as "no timeout", so the result is
// never below one millisecond.
func timeoutMs(ctx context.Context, fallback time.Duration) *float64 {
	d := fallback

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); d <= 0 || remaining < d {
			d = remaining
		}
	}

	if d < time.Millisecond {
		d = time.Millisecond
	}

	return playwright.Float(float64(d.Milliseconds()))
}

func (m *Manager) actionTimeout() time.Duration {
	return time.Duration(m.config.BrowserConfig.Timeout) * time.Millisecond
}

func interactionError(op, reason string, loc entity.Locator, err error) error {
	code := apperr.CodeActionFailed
	if errors.Is(err, playwright.ErrTimeout) {
		code = apperr.CodeTimeout
	}

	return apperr.Wrap(op, code, err, map[string]any{
		apperr.MetaReason:   reason,
		apperr.MetaStage:    apperr.StageInteraction,
		apperr.MetaSelector: loc.String(),
		apperr.MetaHandle:   loc.Handle,
	})
}

func (m *Manager) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if err := m.checkReady(op); err != nil {
		return err
	}

	m.invalidate()
	step.AddEvent("navigating to URL")

	_, err = m.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   timeoutMs(ctx, m.actionTimeout()),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	step.AddEvent("navigation completed")

	return nil
}

func (m *Manager) WaitForLoad(ctx context.Context, timeout time.Duration) (err error) {
	const op = "WaitForLoad"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := m.checkReady(op); err != nil {
		return err
	}

	err = m.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateLoad,
		Timeout: timeoutMs(ctx, timeout),
	})
	if err != nil {
		if ctx.Err() != nil {
			return apperr.Wrap(op, apperr.CodeCancelled, ctx.Err(), nil)
		}

		code := apperr.CodeInternal
		if errors.Is(err, playwright.ErrTimeout) {
			code = apperr.CodeTimeout
		}

		return apperr.Wrap(op, code, err, map[string]any{
			apperr.MetaReason: "load_state_failed",
			apperr.MetaStage:  apperr.StageNavigation,
		})
	}

	return nil
}

// TakeSnapshot captures the page through the snapshot script, falling back
// to parsing the serialized content when the script cannot run.
func (m *Manager) TakeSnapshot(ctx context.Context) (model *entity.PageModel, err error) {
	const op = "TakeSnapshot"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := m.checkReady(op); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeCancelled, err, nil)
	}

	_ = m.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: timeoutMs(ctx, 5*time.Second),
	})

	url := m.page.URL()
	title, _ := m.page.Title()

	model, err = m.scriptSnapshot(url, title)
	if err != nil {
		logger.Warn("Snapshot script failed, parsing page content", zap.Error(err))
		step.AddEvent("falling back to html snapshot")

		content, cerr := m.page.Content()
		if cerr != nil {
			return nil, apperr.Wrap(op, apperr.CodeInternal, multierr.Append(err, cerr), map[string]any{
				apperr.MetaReason: "snapshot_failed",
				apperr.MetaStage:  apperr.StageSnapshot,
			})
		}

		model, err = dom.FromHTML(url, strings.NewReader(content))
		if err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.snapshot = model.ID()
	m.mu.Unlock()

	step.SetAttributes(attribute.Int("nodes", model.Len()))
	logger.Debug("Snapshot taken", zap.String(logg.Snapshot, model.ID().String()), zap.Int("nodes", model.Len()))

	return model, nil
}

func (m *Manager) scriptSnapshot(url, title string) (*entity.PageModel, error) {
	result, err := m.page.Evaluate(snapshotScript())
	if err != nil {
		return nil, err
	}

	records, err := dom.RecordsFromEvaluate(result)
	if err != nil {
		return nil, err
	}

	return dom.Build(url, title, records)
}

// locate maps a locator of the current snapshot onto the live page.
func (m *Manager) locate(op string, loc entity.Locator) (playwright.Locator, error) {
	m.mu.Lock()
	current := m.snapshot
	m.mu.Unlock()

	if current == uuid.Nil || loc.Snapshot != current {
		return nil, apperr.Wrap(op, apperr.CodeStaleHandle, fmt.Errorf("locator from snapshot %s", loc.Snapshot), map[string]any{
			apperr.MetaReason: "stale_snapshot",
			apperr.MetaHandle: loc.Handle,
		})
	}

	switch {
	case loc.XPath != "":
		return m.page.Locator("xpath=" + loc.XPath).First(), nil
	case loc.Selector != "":
		return m.page.Locator(loc.Selector).First(), nil
	}

	return nil, apperr.NotFoundError(op, fmt.Errorf("handle %d has no path", loc.Handle))
}

func (m *Manager) Probe(ctx context.Context, loc entity.Locator) (state entity.ElementState, err error) {
	const op = "Probe"

	if err := m.checkReady(op); err != nil {
		return state, err
	}

	locator, err := m.locate(op, loc)
	if err != nil {
		return state, err
	}

	count, err := locator.Count()
	if err != nil {
		return state, interactionError(op, "count_failed", loc, err)
	}

	if count == 0 {
		return state, nil
	}

	state.Attached = true

	if ctx.Err() != nil {
		return state, ctx.Err()
	}

	state.Displayed, err = locator.IsVisible()
	if err != nil {
		return state, interactionError(op, "visibility_failed", loc, err)
	}

	if ctx.Err() != nil {
		return state, ctx.Err()
	}

	state.Enabled, err = locator.IsEnabled(playwright.LocatorIsEnabledOptions{
		Timeout: timeoutMs(ctx, m.actionTimeout()),
	})
	if err != nil {
		return state, interactionError(op, "enabled_failed", loc, err)
	}

	return state, nil
}

func (m *Manager) Click(ctx context.Context, loc entity.Locator) (err error) {
	const op = "Click"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, loc.String()))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", loc.String()))
	defer func() {
		step.End(err)
	}()

	if err := m.checkReady(op); err != nil {
		return err
	}

	locator, err := m.locate(op, loc)
	if err != nil {
		return err
	}

	strategies := []struct {
		name string
		fn   func() error
	}{
		{
			name: "locator_click",
			fn: func() error {
				return locator.Click(playwright.LocatorClickOptions{Timeout: timeoutMs(ctx, m.actionTimeout())})
			},
		},
		{
			name: "js_direct_click",
			fn: func() error {
				if loc.XPath == "" {
					return errors.New("no xpath for direct click")
				}

				result, err := m.page.Evaluate(jsClickScript, loc.XPath)
				if err != nil {
					return fmt.Errorf("js evaluation failed: %w", err)
				}

				if resultMap, ok := result.(map[string]interface{}); ok {
					if success, ok := resultMap["success"].(bool); ok && !success {
						return fmt.Errorf("js click failed: %v", resultMap["error"])
					}
				}

				return nil
			},
		},
	}

	var lastErr error

	for _, strategy := range strategies {
		if ctx.Err() != nil {
			return apperr.Wrap(op, apperr.CodeCancelled, ctx.Err(), nil)
		}

		step.AddEvent("trying click strategy", attribute.String("strategy", strategy.name))

		if lastErr = strategy.fn(); lastErr == nil {
			step.AddEvent("click completed")

			return nil
		}

		logger.Warn("Click strategy failed", zap.String(logg.Strategy, strategy.name), zap.Error(lastErr))
	}

	return interactionError(op, "click_failed_all_strategies", loc, lastErr)
}

func (m *Manager) Fill(ctx context.Context, loc entity.Locator, value string) (err error) {
	const op = "Fill"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, loc.String()))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", loc.String()))
	defer func() {
		step.End(err)
	}()

	if err := m.checkReady(op); err != nil {
		return err
	}

	locator, err := m.locate(op, loc)
	if err != nil {
		return err
	}

	if err := locator.Fill(value, playwright.LocatorFillOptions{Timeout: timeoutMs(ctx, m.actionTimeout())}); err != nil {
		return interactionError(op, "fill_failed", loc, err)
	}

	return nil
}

func (m *Manager) Check(ctx context.Context, loc entity.Locator) (err error) {
	const op = "Check"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, loc.String()))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", loc.String()))
	defer func() {
		step.End(err)
	}()

	if err := m.checkReady(op); err != nil {
		return err
	}

	locator, err := m.locate(op, loc)
	if err != nil {
		return err
	}

	if err := locator.Check(playwright.LocatorCheckOptions{Timeout: timeoutMs(ctx, m.actionTimeout())}); err != nil {
		return interactionError(op, "check_failed", loc, err)
	}

	return nil
}
