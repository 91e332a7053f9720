package bootstrap

import (
	"browser-agent-engine/internal/auth"
	"browser-agent-engine/internal/browser"
	"browser-agent-engine/internal/config"
	"browser-agent-engine/internal/consent"
	"browser-agent-engine/internal/console"
	"browser-agent-engine/internal/ports"
	"browser-agent-engine/internal/strategy"
	"browser-agent-engine/internal/teardown"
	"browser-agent-engine/internal/usecase"
	"time"

	"go.uber.org/fx"
)

func NewApp() *fx.App {
	return fx.New(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,

			fx.Annotate(browser.NewManager, fx.As(new(ports.BrowserManager), new(ports.Session))),

			strategy.NewChain,
			consent.NewResolver,
			auth.NewResolver,
			teardown.NewResourceTeardown,

			usecase.NewUsecase,

			console.NewInterface,
		),

		fx.Invoke(
			registerTracing,
			runConsole,
		),

		fx.StartTimeout(2*time.Minute),
		fx.StopTimeout(time.Minute),
	)
}
