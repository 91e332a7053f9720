package adapters

import (
	"browser-agent-engine/internal/entity"
	"context"
)

type BrowserService interface {
	Launch(ctx context.Context) error
	IsReady() bool
}

type EngineService interface {
	Execute(ctx context.Context, action entity.EngineAction) (*entity.ActionRecord, error)
	History() []entity.ActionRecord
}
