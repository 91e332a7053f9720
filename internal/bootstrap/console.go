package bootstrap

import (
	"browser-agent-engine/internal/console"
	"browser-agent-engine/internal/entity"
	"browser-agent-engine/internal/usecase"
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func runConsole(lc fx.Lifecycle, consoleInterface *console.Interface, uc *usecase.Service, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting browser agent engine...")

			if err := uc.Browser.Launch(ctx); err != nil {
				logger.Error("Failed to launch browser", zap.Error(err))

				return err
			}

			go func() {
				if err := consoleInterface.Start(); err != nil {
					logger.Error("Console interface error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down browser agent engine...")

			shutdown(ctx, consoleInterface, uc.Engine, logger)

			return nil
		},
	})
}

type stopper interface {
	Stop()
}

type executor interface {
	Execute(ctx context.Context, action entity.EngineAction) (*entity.ActionRecord, error)
}

// shutdown cancels the console's action in flight and tears the session down
// through the engine, which waits for that action to return first.
func shutdown(ctx context.Context, ui stopper, engine executor, logger *zap.Logger) {
	ui.Stop()

	record, err := engine.Execute(ctx, entity.EngineAction{Type: entity.ActionTypeTeardown})
	if err != nil {
		logger.Error("Teardown failed", zap.Error(err))

		return
	}

	logger.Info("Session released", zap.String("detail", record.Detail))
}
