package ports

import (
	"browser-agent-engine/internal/entity"
	"context"
	"time"
)

// Prober resolves a locator against the live page and reports whether the
// element is attached, displayed and enabled.
type Prober interface {
	Probe(ctx context.Context, loc entity.Locator) (entity.ElementState, error)
}

// Page is the live page the resolvers act on.
type Page interface {
	Prober
	TakeSnapshot(ctx context.Context) (*entity.PageModel, error)
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, loc entity.Locator) error
	Fill(ctx context.Context, loc entity.Locator, value string) error
	Check(ctx context.Context, loc entity.Locator) error
	WaitForLoad(ctx context.Context, timeout time.Duration) error
}

// Session is the browser handle consumed by teardown.
type Session interface {
	ListOpenPages(ctx context.Context) ([]entity.PageRef, error)
	ActivePage(ctx context.Context) (entity.PageRef, error)
	ClosePage(ctx context.Context, page entity.PageRef) error
	ClearCookies(ctx context.Context) error
	ClearLocalStorage(ctx context.Context) error
	ClearSessionStorage(ctx context.Context) error
	CloseHandle(ctx context.Context) error
}

type BrowserManager interface {
	Page
	Session
	Launch(ctx context.Context) error
	IsReady() bool
}
