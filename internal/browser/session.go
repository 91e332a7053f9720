package browser

import (
	"browser-agent-engine/internal/entity"
	"browser-agent-engine/pkg/apperr"
	"browser-agent-engine/pkg/logg"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var errNoSession = errors.New("browser session is closed")

// refOf returns the stable reference of page, assigning one on first sight.
func (m *Manager) refOf(page playwright.Page) entity.PageRef {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.pageIDs[page]
	if !ok {
		id = uuid.NewString()
		m.pageIDs[page] = id
	}

	return entity.PageRef{ID: id, URL: page.URL()}
}

func (m *Manager) ListOpenPages(ctx context.Context) ([]entity.PageRef, error) {
	const op = "ListOpenPages"

	if m.browserContext == nil {
		return nil, apperr.Wrap(op, apperr.CodeResourceFault, errNoSession, nil)
	}

	var refs []entity.PageRef

	for _, p := range m.browserContext.Pages() {
		if !p.IsClosed() {
			refs = append(refs, m.refOf(p))
		}
	}

	return refs, nil
}

func (m *Manager) ActivePage(ctx context.Context) (entity.PageRef, error) {
	const op = "ActivePage"

	if m.browserContext == nil {
		return entity.PageRef{}, apperr.Wrap(op, apperr.CodeResourceFault, errNoSession, nil)
	}

	if err := m.ensurePageActive(); err != nil {
		return entity.PageRef{}, apperr.Wrap(op, apperr.CodeResourceFault, err, nil)
	}

	return m.refOf(m.page), nil
}

func (m *Manager) ClosePage(ctx context.Context, ref entity.PageRef) error {
	const op = "ClosePage"

	if m.browserContext == nil {
		return apperr.Wrap(op, apperr.CodeResourceFault, errNoSession, nil)
	}

	for _, p := range m.browserContext.Pages() {
		if m.refOf(p).ID != ref.ID {
			continue
		}

		if err := p.Close(); err != nil {
			return apperr.Wrap(op, apperr.CodeResourceFault, err, map[string]any{
				apperr.MetaURL: ref.URL,
			})
		}

		m.mu.Lock()
		delete(m.pageIDs, p)
		m.mu.Unlock()

		m.logger.Debug("Page closed", zap.String(logg.PageRef, ref.ID), zap.String(logg.URL, ref.URL))

		return nil
	}

	return apperr.NotFoundError(op, fmt.Errorf("page %s is not open", ref.ID))
}

func (m *Manager) ClearCookies(ctx context.Context) error {
	const op = "ClearCookies"

	if m.browserContext == nil {
		return apperr.Wrap(op, apperr.CodeResourceFault, errNoSession, nil)
	}

	if err := m.browserContext.ClearCookies(); err != nil {
		return apperr.Wrap(op, apperr.CodeResourceFault, err, nil)
	}

	return nil
}

func (m *Manager) ClearLocalStorage(ctx context.Context) error {
	return m.clearStorage("ClearLocalStorage", clearLocalStorageScript)
}

func (m *Manager) ClearSessionStorage(ctx context.Context) error {
	return m.clearStorage("ClearSessionStorage", clearSessionStorageScript)
}

func (m *Manager) clearStorage(op, script string) error {
	if m.page == nil || m.page.IsClosed() {
		return apperr.Wrap(op, apperr.CodeResourceFault, errNoSession, nil)
	}

	result, err := m.page.Evaluate(script)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeResourceFault, err, nil)
	}

	if ok, _ := result.(bool); !ok {
		return apperr.Wrap(op, apperr.CodeResourceFault, errors.New("storage not accessible"), map[string]any{
			apperr.MetaURL: m.page.URL(),
		})
	}

	return nil
}

// CloseHandle closes the browser context, the browser and the playwright
// driver. The manager is unusable afterwards.
func (m *Manager) CloseHandle(ctx context.Context) error {
	const op = "CloseHandle"

	var errs error

	if m.browserContext != nil {
		errs = multierr.Append(errs, m.browserContext.Close())
	}

	if m.browser != nil {
		errs = multierr.Append(errs, m.browser.Close())
	}

	if m.playwright != nil {
		errs = multierr.Append(errs, m.playwright.Stop())
	}

	m.ready = false
	m.page = nil
	m.browserContext = nil
	m.browser = nil
	m.playwright = nil
	m.invalidate()

	if errs != nil {
		return apperr.Wrap(op, apperr.CodeResourceFault, errs, nil)
	}

	m.logger.Info("Browser closed")

	return nil
}
