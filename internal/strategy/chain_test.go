package strategy

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"browser-agent-engine/internal/dom"
	"browser-agent-engine/internal/entity"
	"browser-agent-engine/internal/mocks"
	"browser-agent-engine/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fixture(t *testing.T, body string) *entity.PageModel {
	t.Helper()

	model, err := dom.FromHTML("https://example.test/", strings.NewReader("<html><body>"+body+"</body></html>"))
	require.NoError(t, err)

	return model
}

func newTestChain(t *testing.T, probeTimeout time.Duration) *Chain {
	return New(zaptest.NewLogger(t), probeTimeout, DefaultStrategies()...)
}

const loginForm = `<form action="/session">` +
	`<input type="email" name="email">` +
	`<input type="password" name="password">` +
	`<button type="submit">Sign in</button>` +
	`</form>`

func TestDefaultStrategiesOrder(t *testing.T) {
	var names []string
	for _, s := range DefaultStrategies() {
		names = append(names, s.Name())
	}

	assert.Equal(t, []string{StructuralName, ClassName, TextName, AriaName}, names)
}

func TestResolveLoginFields(t *testing.T) {
	model := fixture(t, loginForm)
	page := &mocks.Page{}
	page.On("Probe", mock.Anything, mock.Anything).Return(mocks.Actionable, nil)

	chain := newTestChain(t, time.Second)

	tests := []struct {
		target  Target
		handle  int
		pattern string
	}{
		{target: Username(), handle: 2, pattern: "input[type=email]"},
		{target: Password(), handle: 3, pattern: "input[type=password]"},
		{target: Submit(), handle: 4, pattern: "button[type=submit]"},
	}

	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			result := chain.Resolve(context.Background(), page, model, tt.target)

			require.True(t, result.Resolved(), result.Trail())
			assert.Equal(t, tt.handle, result.Locator.Handle)
			assert.Equal(t, model.ID(), result.Locator.Snapshot)
			assert.Equal(t, StructuralName, result.Strategy)
			assert.Equal(t, tt.pattern, result.Pattern)
		})
	}
}

func TestResolveSkipsCandidateFailingLiveCheck(t *testing.T) {
	model := fixture(t, `<button type="submit" id="first">Sign in</button><button type="submit" id="second">Log in</button>`)
	page := &mocks.Page{}
	page.On("Probe", mock.Anything, mocks.Handle(1)).Return(entity.ElementState{Attached: true, Enabled: true}, nil)
	page.On("Probe", mock.Anything, mocks.Handle(2)).Return(mocks.Actionable, nil)

	result := newTestChain(t, time.Second).Resolve(context.Background(), page, model, Submit())

	require.True(t, result.Resolved())
	assert.Equal(t, 2, result.Locator.Handle)
	assert.Equal(t, "second", result.Node.ID)
}

func TestResolveNeverReturnsDisabledSoleMatch(t *testing.T) {
	model := fixture(t, `<button type="submit">Sign in</button>`)
	page := &mocks.Page{}
	page.On("Probe", mock.Anything, mock.Anything).Return(entity.ElementState{Attached: true, Displayed: true}, nil)

	result := newTestChain(t, time.Second).Resolve(context.Background(), page, model, Submit())

	assert.False(t, result.Resolved())
	assert.Nil(t, result.Locator)
	require.Len(t, result.Attempts, 4)
	assert.Equal(t, entity.OutcomeNotEnabled, result.Attempts[0].Outcome)
	assert.Equal(t, entity.OutcomeNotFound, result.Attempts[1].Outcome)
	assert.Equal(t, entity.OutcomeNotEnabled, result.Attempts[2].Outcome)
	assert.Equal(t, apperr.CodeNotActionable, apperr.CodeOf(result.Err()))
}

func TestResolveRejectsStaticallyHiddenWithoutProbing(t *testing.T) {
	model := fixture(t, `<button type="submit" style="display: none">Go</button>`)
	page := &mocks.Page{}

	result := newTestChain(t, time.Second).Resolve(context.Background(), page, model, Submit())

	assert.False(t, result.Resolved())
	assert.Equal(t, entity.OutcomeNotVisible, result.Attempts[0].Outcome)
	page.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
}

func TestResolveAcceptAllCookiesDivByText(t *testing.T) {
	model := fixture(t, `<div id="banner">`+
		`<p>We use cookies to improve your experience.</p>`+
		`<div class="banner-btn">Accept All Cookies</div>`+
		`</div>`)
	page := &mocks.Page{}
	page.On("Probe", mock.Anything, mocks.Handle(3)).Return(mocks.Actionable, nil)

	result := newTestChain(t, time.Second).Resolve(context.Background(), page, model, Consent())

	require.True(t, result.Resolved(), result.Trail())
	assert.Equal(t, 3, result.Locator.Handle)
	assert.Equal(t, TextName, result.Strategy)
	assert.Equal(t, entity.OutcomeNotFound, result.Attempts[0].Outcome)
	assert.Equal(t, entity.OutcomeNotFound, result.Attempts[1].Outcome)
}

func TestResolveLiteralText(t *testing.T) {
	model := fixture(t, `<a href="/cart" id="cart">Cart</a><button>Checkout</button>`)
	page := &mocks.Page{}
	page.On("Probe", mock.Anything, mocks.Handle(2)).Return(mocks.Actionable, nil)

	result := newTestChain(t, time.Second).Resolve(context.Background(), page, model, Text("  Checkout "))

	require.True(t, result.Resolved(), result.Trail())
	assert.Equal(t, 2, result.Locator.Handle)
	assert.Equal(t, "text(checkout)", result.Pattern)
	assert.Equal(t, "text:checkout", result.Target)
}

func TestResolveProbeFaultFallsThrough(t *testing.T) {
	model := fixture(t, `<button type="submit" class="btn-login">Sign in</button>`)
	page := &mocks.Page{}
	page.On("Probe", mock.Anything, mock.Anything).Return(entity.ElementState{}, errors.New("target closed"))

	result := newTestChain(t, time.Second).Resolve(context.Background(), page, model, Submit())

	assert.False(t, result.Resolved())
	assert.Equal(t, entity.OutcomeFault, result.Attempts[0].Outcome)
	assert.Equal(t, entity.OutcomeFault, result.Attempts[1].Outcome)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(result.Err()))
}

func TestResolveProbeTimeout(t *testing.T) {
	model := fixture(t, `<input type="password" name="pw">`)
	page := &mocks.Page{}
	page.On("Probe", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(entity.ElementState{}, context.DeadlineExceeded)

	result := newTestChain(t, 10*time.Millisecond).Resolve(context.Background(), page, model, Password())

	assert.False(t, result.Resolved())
	assert.Equal(t, entity.OutcomeTimedOut, result.Attempts[0].Outcome)
	assert.Equal(t, apperr.CodeTimeout, apperr.CodeOf(result.Err()))
	page.AssertNumberOfCalls(t, "Probe", 1)
}

func TestResolveCancelledContext(t *testing.T) {
	model := fixture(t, loginForm)
	page := &mocks.Page{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := newTestChain(t, time.Second).Resolve(ctx, page, model, Submit())

	assert.False(t, result.Resolved())
	require.Len(t, result.Attempts, 4)

	for _, a := range result.Attempts {
		assert.Equal(t, entity.OutcomeTimedOut, a.Outcome)
	}

	page.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
}

func TestTextStrategyPrefersClickableInnermost(t *testing.T) {
	model := fixture(t, `<div><span>Checkout</span></div><button>Checkout</button><p><span tabindex="0">Checkout</span></p>`)

	var text Strategy
	for _, s := range DefaultStrategies() {
		if s.Name() == TextName {
			text = s
		}
	}
	require.NotNil(t, text)

	candidates := text.Candidates(model, Text("checkout"))

	handles := make([]int, 0, len(candidates))
	for _, c := range candidates {
		handles = append(handles, c.Handle)
	}

	assert.Equal(t, []int{3, 5, 2}, handles)
}

func TestResolveSelectorShapedTokens(t *testing.T) {
	model := fixture(t, `<form>`+
		`<input id="q" name="search" type="text">`+
		`<button class="btn primary" data-action="go">Search</button>`+
		`<a href="/help" rel="help">Help</a>`+
		`</form>`)
	page := &mocks.Page{}
	page.On("Probe", mock.Anything, mock.Anything).Return(mocks.Actionable, nil)

	chain := newTestChain(t, time.Second)

	tests := []struct {
		token  string
		handle int
	}{
		{token: "#Q", handle: 2},
		{token: ".primary", handle: 3},
		{token: "button[data-action=go]", handle: 3},
		{token: `[rel="help"]`, handle: 4},
		{token: "[name]", handle: 2},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			result := chain.Resolve(context.Background(), page, model, Text(tt.token))

			require.True(t, result.Resolved(), result.Trail())
			assert.Equal(t, tt.handle, result.Locator.Handle)
			assert.Equal(t, StructuralName, result.Strategy)
			assert.Equal(t, "selector("+Text(tt.token).Token+")", result.Pattern)
		})
	}
}

func TestSimpleSelectorRejectsOtherShapes(t *testing.T) {
	for _, token := range []string{"add to cart", "div > a", "#", "[broken", "a:hover", "p#"} {
		_, ok := simpleSelector(token)
		assert.False(t, ok, token)
	}
}
