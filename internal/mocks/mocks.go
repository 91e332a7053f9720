// Package mocks holds testify mocks of the browser ports.
package mocks

import (
	"browser-agent-engine/internal/entity"
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// Browser is a mock implementation of ports.BrowserManager.
type Browser struct {
	mock.Mock
}

// Page and Session are the same mock seen through the narrower ports.
type (
	Page    = Browser
	Session = Browser
)

func (m *Browser) Launch(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Browser) IsReady() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *Browser) Probe(ctx context.Context, loc entity.Locator) (entity.ElementState, error) {
	args := m.Called(ctx, loc)
	return args.Get(0).(entity.ElementState), args.Error(1)
}

func (m *Browser) TakeSnapshot(ctx context.Context) (*entity.PageModel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PageModel), args.Error(1)
}

func (m *Browser) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *Browser) Click(ctx context.Context, loc entity.Locator) error {
	args := m.Called(ctx, loc)
	return args.Error(0)
}

func (m *Browser) Fill(ctx context.Context, loc entity.Locator, value string) error {
	args := m.Called(ctx, loc, value)
	return args.Error(0)
}

func (m *Browser) Check(ctx context.Context, loc entity.Locator) error {
	args := m.Called(ctx, loc)
	return args.Error(0)
}

func (m *Browser) WaitForLoad(ctx context.Context, timeout time.Duration) error {
	args := m.Called(ctx, timeout)
	return args.Error(0)
}

func (m *Browser) ListOpenPages(ctx context.Context) ([]entity.PageRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PageRef), args.Error(1)
}

func (m *Browser) ActivePage(ctx context.Context) (entity.PageRef, error) {
	args := m.Called(ctx)
	return args.Get(0).(entity.PageRef), args.Error(1)
}

func (m *Browser) ClosePage(ctx context.Context, page entity.PageRef) error {
	args := m.Called(ctx, page)
	return args.Error(0)
}

func (m *Browser) ClearCookies(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Browser) ClearLocalStorage(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Browser) ClearSessionStorage(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Browser) CloseHandle(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Handle matches a locator by snapshot handle.
func Handle(h int) interface{} {
	return mock.MatchedBy(func(loc entity.Locator) bool {
		return loc.Handle == h
	})
}

// Actionable is the probe result of an attached, displayed, enabled element.
var Actionable = entity.ElementState{Attached: true, Displayed: true, Enabled: true}
