package usecase

import (
	"browser-agent-engine/internal/auth"
	"browser-agent-engine/internal/config"
	"browser-agent-engine/internal/consent"
	"browser-agent-engine/internal/ports"
	"browser-agent-engine/internal/strategy"
	"browser-agent-engine/internal/teardown"
	"browser-agent-engine/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Engine  adapters.EngineService
	Browser adapters.BrowserService
}

type Params struct {
	fx.In

	Logger   *zap.Logger
	Config   *config.Config
	Browser  ports.BrowserManager
	Chain    *strategy.Chain
	Consent  *consent.Resolver
	Login    *auth.Resolver
	Teardown *teardown.ResourceTeardown
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Engine:  factory.CreateEngineService(),
		Browser: factory.CreateBrowserService(),
	}
}
