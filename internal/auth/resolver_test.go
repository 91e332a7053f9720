package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"browser-agent-engine/internal/config"
	"browser-agent-engine/internal/dom"
	"browser-agent-engine/internal/entity"
	"browser-agent-engine/internal/mocks"
	"browser-agent-engine/internal/strategy"
	"browser-agent-engine/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const loginForm = `<form action="/session">` +
	`<input type="email" name="email">` +
	`<input type="password" name="password">` +
	`<button type="submit">Sign in</button>` +
	`</form>`

var jane = entity.Credentials{Username: "jane@example.com", Password: "s3cret"}

func fixture(t *testing.T, body string) *entity.PageModel {
	t.Helper()

	model, err := dom.FromHTML("https://app.example/login", strings.NewReader("<html><body>"+body+"</body></html>"))
	require.NoError(t, err)

	return model
}

func newTestResolver(t *testing.T) *Resolver {
	logger := zaptest.NewLogger(t)
	cfg := config.Default()
	cfg.LoginConfig.Username = "env-user"
	cfg.LoginConfig.Password = "env-pass"

	return NewResolver(Params{
		Config: cfg,
		Logger: logger,
		Chain:  strategy.New(logger, time.Second, strategy.DefaultStrategies()...),
	})
}

// submittingPage expects one full pass over loginForm and serves after as the
// page reached by submitting.
func submittingPage(t *testing.T, after *entity.PageModel) *mocks.Page {
	page := &mocks.Page{}
	page.On("TakeSnapshot", mock.Anything).Return(fixture(t, loginForm), nil).Once()
	page.On("TakeSnapshot", mock.Anything).Return(after, nil).Once()
	page.On("Probe", mock.Anything, mock.Anything).Return(mocks.Actionable, nil)
	page.On("Fill", mock.Anything, mocks.Handle(2), jane.Username).Return(nil).Once()
	page.On("Fill", mock.Anything, mocks.Handle(3), jane.Password).Return(nil).Once()
	page.On("Click", mock.Anything, mocks.Handle(4)).Return(nil).Once()

	return page
}

func TestLoginSucceedsOnWelcomePage(t *testing.T) {
	page := submittingPage(t, fixture(t, `<div class="greeting">Welcome, Jane</div>`))
	page.On("WaitForLoad", mock.Anything, 15*time.Second).Return(nil)

	report := newTestResolver(t).Run(context.Background(), page, jane, "")

	assert.True(t, report.Success())
	assert.Equal(t, []entity.LoginState{
		entity.LoginStateScanning,
		entity.LoginStateFieldsFound,
		entity.LoginStateFilling,
		entity.LoginStateSubmitting,
		entity.LoginStateVerifying,
		entity.LoginStateSuccess,
	}, report.History)
	page.AssertExpectations(t)
	page.AssertNotCalled(t, "Navigate", mock.Anything, mock.Anything)
}

func TestLoginFailsOnErrorIndicator(t *testing.T) {
	page := submittingPage(t, fixture(t, `<div class="alert-error">Incorrect password</div>`))
	page.On("WaitForLoad", mock.Anything, mock.Anything).Return(nil)

	report := newTestResolver(t).Run(context.Background(), page, jane, "")

	assert.False(t, report.Success())
	assert.Equal(t, entity.LoginStateFailure, report.State)
	assert.Equal(t, "error_indicator", report.Reason)
}

func TestLoginErrorIndicatorOutweighsSuccess(t *testing.T) {
	page := submittingPage(t, fixture(t,
		`<a href="/logout">Log out</a><span class="avatar"></span><p class="form-error">Login failed</p>`))
	page.On("WaitForLoad", mock.Anything, mock.Anything).Return(nil)

	assert.False(t, newTestResolver(t).Login(context.Background(), page, jane, ""))
}

func TestLoginWithoutCredentialsTouchesNothing(t *testing.T) {
	resolver := newTestResolver(t)

	for _, creds := range []entity.Credentials{
		{},
		{Username: "jane@example.com"},
		{Password: "s3cret"},
	} {
		page := &mocks.Page{}

		report := resolver.Run(context.Background(), page, creds, "https://app.example/login")

		assert.Equal(t, entity.LoginStateNoCredentials, report.State)
		assert.False(t, report.Success())
		assert.Empty(t, page.Calls)
	}
}

func TestLoginNavigatesFirst(t *testing.T) {
	page := submittingPage(t, fixture(t, `<nav><a href="/me">My account</a></nav>`))
	page.On("Navigate", mock.Anything, "https://app.example/login").Return(nil).Once()
	page.On("WaitForLoad", mock.Anything, mock.Anything).Return(nil)

	report := newTestResolver(t).Run(context.Background(), page, jane, "https://app.example/login")

	assert.True(t, report.Success())
	assert.Equal(t, entity.LoginStateNavigating, report.History[0])
	page.AssertExpectations(t)
}

func TestLoginFieldsMissing(t *testing.T) {
	page := &mocks.Page{}
	page.On("TakeSnapshot", mock.Anything).Return(fixture(t, `<p>Nothing to see</p>`), nil).Once()

	report := newTestResolver(t).Run(context.Background(), page, jane, "")

	assert.Equal(t, entity.LoginStateFieldsMissing, report.State)
	page.AssertNotCalled(t, "Fill", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginRequiresSubmit(t *testing.T) {
	page := &mocks.Page{}
	page.On("TakeSnapshot", mock.Anything).
		Return(fixture(t, `<input type="email" name="email"><input type="password" name="password">`), nil).Once()
	page.On("Probe", mock.Anything, mock.Anything).Return(mocks.Actionable, nil)

	report := newTestResolver(t).Run(context.Background(), page, jane, "")

	assert.Equal(t, entity.LoginStateFailure, report.State)
	assert.Equal(t, "submit_missing", report.Reason)
	page.AssertNotCalled(t, "Fill", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginFillFailure(t *testing.T) {
	page := &mocks.Page{}
	page.On("TakeSnapshot", mock.Anything).Return(fixture(t, loginForm), nil).Once()
	page.On("Probe", mock.Anything, mock.Anything).Return(mocks.Actionable, nil)
	page.On("Fill", mock.Anything, mocks.Handle(2), jane.Username).Return(errors.New("element detached"))

	report := newTestResolver(t).Run(context.Background(), page, jane, "")

	assert.Equal(t, entity.LoginStateFailure, report.State)
	assert.Equal(t, "fill_username_failed", report.Reason)
	page.AssertNotCalled(t, "Click", mock.Anything, mock.Anything)
}

func TestLoginLoadTimeoutIsNotFatal(t *testing.T) {
	page := submittingPage(t, fixture(t, `<button class="user-menu">Jane</button>`))
	page.On("WaitForLoad", mock.Anything, mock.Anything).
		Return(apperr.Wrap("WaitForLoad", apperr.CodeTimeout, errors.New("timeout 15000ms exceeded"), nil))

	assert.True(t, newTestResolver(t).Login(context.Background(), page, jane, ""))
}

func TestLoginCancelledWhileWaitingForLoad(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	page := &mocks.Page{}
	page.On("TakeSnapshot", mock.Anything).Return(fixture(t, loginForm), nil).Once()
	page.On("Probe", mock.Anything, mock.Anything).Return(mocks.Actionable, nil)
	page.On("Fill", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	page.On("Click", mock.Anything, mock.Anything).Return(nil)
	page.On("WaitForLoad", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(context.Canceled)

	report := newTestResolver(t).Run(ctx, page, jane, "")

	assert.Equal(t, entity.LoginStateFailure, report.State)
	assert.Equal(t, "cancelled", report.Reason)
	page.AssertNumberOfCalls(t, "TakeSnapshot", 1)
}

func TestLoginChecksRememberMe(t *testing.T) {
	form := `<form>` +
		`<input type="email" name="email">` +
		`<input type="password" name="password">` +
		`<input type="checkbox" name="remember_me">` +
		`<button type="submit">Sign in</button>` +
		`</form>`

	page := &mocks.Page{}
	page.On("TakeSnapshot", mock.Anything).Return(fixture(t, form), nil).Once()
	page.On("TakeSnapshot", mock.Anything).Return(fixture(t, `<a href="/logout">Sign out</a>`), nil).Once()
	page.On("Probe", mock.Anything, mock.Anything).Return(mocks.Actionable, nil)
	page.On("Fill", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	page.On("Check", mock.Anything, mocks.Handle(4)).Return(errors.New("not a checkbox")).Once()
	page.On("Click", mock.Anything, mocks.Handle(5)).Return(nil).Once()
	page.On("WaitForLoad", mock.Anything, mock.Anything).Return(nil)

	assert.True(t, newTestResolver(t).Login(context.Background(), page, jane, ""))
	page.AssertExpectations(t)
}

func TestLoginLeavesCheckedRememberMe(t *testing.T) {
	form := `<form>` +
		`<input type="email" name="email">` +
		`<input type="password" name="password">` +
		`<input type="checkbox" name="remember_me" checked>` +
		`<button type="submit">Sign in</button>` +
		`</form>`

	page := &mocks.Page{}
	page.On("TakeSnapshot", mock.Anything).Return(fixture(t, form), nil).Once()
	page.On("TakeSnapshot", mock.Anything).Return(fixture(t, `<a href="/logout">Sign out</a>`), nil).Once()
	page.On("Probe", mock.Anything, mock.Anything).Return(mocks.Actionable, nil)
	page.On("Fill", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	page.On("Click", mock.Anything, mock.Anything).Return(nil)
	page.On("WaitForLoad", mock.Anything, mock.Anything).Return(nil)

	assert.True(t, newTestResolver(t).Login(context.Background(), page, jane, ""))
	page.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestDefaultCredentialsComeFromConfig(t *testing.T) {
	assert.Equal(t, entity.Credentials{Username: "env-user", Password: "env-pass"}, newTestResolver(t).DefaultCredentials())
}
