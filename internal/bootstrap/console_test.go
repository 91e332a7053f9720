package bootstrap

import (
	"context"
	"errors"
	"testing"

	"browser-agent-engine/internal/entity"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	events []string
	err    error
}

func (r *recorder) Stop() {
	r.events = append(r.events, "stop")
}

func (r *recorder) Execute(_ context.Context, action entity.EngineAction) (*entity.ActionRecord, error) {
	r.events = append(r.events, "execute "+string(action.Type))

	return &entity.ActionRecord{Type: action.Type, Detail: "5/5 steps succeeded"}, r.err
}

func TestShutdownStopsConsoleThenTearsDownThroughEngine(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := &recorder{}

	shutdown(context.Background(), r, r, zap.New(core))

	assert.Equal(t, []string{"stop", "execute teardown"}, r.events)
	assert.Equal(t, 1, logs.FilterMessage("Session released").Len())
}

func TestShutdownLogsTeardownError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := &recorder{err: errors.New("boom")}

	shutdown(context.Background(), r, r, zap.New(core))

	assert.Equal(t, 1, logs.FilterMessage("Teardown failed").Len())
	assert.Zero(t, logs.FilterMessage("Session released").Len())
}
