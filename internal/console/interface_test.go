package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"browser-agent-engine/internal/entity"
	"browser-agent-engine/internal/usecase"
	"browser-agent-engine/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap/zaptest"
)

type fakeEngine struct {
	actions []entity.EngineAction
	err     error
}

func (e *fakeEngine) Execute(_ context.Context, action entity.EngineAction) (*entity.ActionRecord, error) {
	e.actions = append(e.actions, action)

	record := &entity.ActionRecord{
		Type:        action.Type,
		Description: string(action.Type),
		StartedAt:   time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Success:     e.err == nil,
		Detail:      "done",
	}

	return record, e.err
}

func (e *fakeEngine) History() []entity.ActionRecord {
	records := make([]entity.ActionRecord, 0, len(e.actions))
	for _, a := range e.actions {
		records = append(records, entity.ActionRecord{Type: a.Type, Description: string(a.Type), Success: true})
	}

	return records
}

type fakeShutdowner struct {
	calls int
}

func (s *fakeShutdowner) Shutdown(...fx.ShutdownOption) error {
	s.calls++

	return nil
}

func newTestInterface(t *testing.T, engine *fakeEngine, input string) (*Interface, *bytes.Buffer, *fakeShutdowner) {
	out := &bytes.Buffer{}
	shutdowner := &fakeShutdowner{}

	i := New(zaptest.NewLogger(t), &usecase.Service{Engine: engine}, shutdowner, strings.NewReader(input), out)

	return i, out, shutdowner
}

func TestHandleCommandMapsActions(t *testing.T) {
	engine := &fakeEngine{}
	i, out, _ := newTestInterface(t, engine, "")

	for _, cmd := range []string{"open https://shop.example/", "consent", "login", "login https://app.example/login", "find Add to cart", "teardown"} {
		require.NoError(t, i.handleCommand(cmd), cmd)
	}

	assert.Equal(t, []entity.EngineAction{
		{Type: entity.ActionTypeNavigate, URL: "https://shop.example/"},
		{Type: entity.ActionTypeConsent},
		{Type: entity.ActionTypeLogin},
		{Type: entity.ActionTypeLogin, URL: "https://app.example/login"},
		{Type: entity.ActionTypeFind, Text: "Add to cart"},
		{Type: entity.ActionTypeTeardown},
	}, engine.actions)
	assert.Contains(t, out.String(), "[OK] navigate: done")
}

func TestHandleCommandUsage(t *testing.T) {
	engine := &fakeEngine{}
	i, _, _ := newTestInterface(t, engine, "")

	assert.EqualError(t, i.handleCommand("open"), "usage: open <url>")
	assert.EqualError(t, i.handleCommand("find  "), "usage: find <text>")
	assert.ErrorContains(t, i.handleCommand("scroll down"), `unknown command "scroll"`)
	assert.ErrorIs(t, i.handleCommand("QUIT"), errExit)
	assert.Empty(t, engine.actions)
}

func TestExecuteReportsFailure(t *testing.T) {
	engine := &fakeEngine{err: apperr.WrapErrorWithReason("Execute", apperr.CodeBrowserNotReady, "browser_not_ready")}
	i, out, _ := newTestInterface(t, engine, "")

	err := i.handleCommand("consent")

	assert.True(t, apperr.HasCode(err, apperr.CodeBrowserNotReady))
	assert.Contains(t, out.String(), "Failed: done")
}

func TestStartRunsUntilExit(t *testing.T) {
	engine := &fakeEngine{}
	i, out, shutdowner := newTestInterface(t, engine, "\nfind Cart\nhistory\nbogus\nexit\nconsent\n")

	require.NoError(t, i.Start())

	assert.Len(t, engine.actions, 1)
	assert.Contains(t, out.String(), "Browser Agent Engine")
	assert.Contains(t, out.String(), "Error: unknown command")
	assert.Contains(t, out.String(), "Shutting down...")
	assert.Equal(t, 1, shutdowner.calls)
}

func TestStartAfterStopDoesNotShutDown(t *testing.T) {
	engine := &fakeEngine{}
	i, _, shutdowner := newTestInterface(t, engine, "consent\n")

	i.Stop()
	i.Stop()

	require.NoError(t, i.Start())

	assert.Empty(t, engine.actions)
	assert.Zero(t, shutdowner.calls)
}
