// Package teardown releases everything a browsing session holds. Every step
// runs regardless of earlier failures and nothing is ever returned to the
// caller as an error.
package teardown

import (
	"browser-agent-engine/internal/config"
	"browser-agent-engine/internal/entity"
	"browser-agent-engine/internal/ports"
	"browser-agent-engine/pkg/apperr"
	"browser-agent-engine/pkg/logg"
	"browser-agent-engine/pkg/tracing"
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	teardownName   = "ResourceTeardown"
	teardownTracer = "teardown"
)

// Step is one teardown action and what it does to the session.
type Step struct {
	Name   string
	Effect string
	Run    func(ctx context.Context, session ports.Session) error
}

// Steps returns the teardown sequence in execution order.
func Steps() []Step {
	return []Step{
		{Name: "close_extra_pages", Effect: "closes every page except the active one", Run: closeExtraPages},
		{Name: "clear_cookies", Effect: "deletes all cookies of the browser context", Run: call(ports.Session.ClearCookies)},
		{Name: "clear_local_storage", Effect: "empties localStorage of the active page", Run: call(ports.Session.ClearLocalStorage)},
		{Name: "clear_session_storage", Effect: "empties sessionStorage of the active page", Run: call(ports.Session.ClearSessionStorage)},
		{Name: "close_handle", Effect: "closes the browser session", Run: call(ports.Session.CloseHandle)},
	}
}

func call(method func(ports.Session, context.Context) error) func(context.Context, ports.Session) error {
	return func(ctx context.Context, session ports.Session) error {
		return method(session, ctx)
	}
}

type ResourceTeardown struct {
	logger      *zap.Logger
	tracer      trace.Tracer
	stepTimeout time.Duration

	mu      sync.Mutex
	session ports.Session
	last    entity.TeardownReport
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Session ports.Session
}

func NewResourceTeardown(params Params) *ResourceTeardown {
	return New(params.Logger, params.Session, params.Config.EngineConfig.TeardownStepTimeout)
}

func New(logger *zap.Logger, session ports.Session, stepTimeout time.Duration) *ResourceTeardown {
	return &ResourceTeardown{
		logger:      logger.With(zap.String(logg.Layer, teardownName)),
		tracer:      otel.Tracer(teardownTracer),
		stepTimeout: stepTimeout,
		session:     session,
	}
}

// Teardown runs every step once and reports each outcome. Later calls are
// no-ops reporting Skipped.
func (t *ResourceTeardown) Teardown(ctx context.Context) entity.TeardownReport {
	const op = "Teardown"
	logger := t.logger.With(zap.String(logg.Operation, op))

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		logger.Debug("Session already released")

		return entity.TeardownReport{Skipped: true}
	}

	session := t.session
	t.session = nil

	ctx, span := tracing.StartSpan(ctx, t.tracer, logger, op)

	var (
		report entity.TeardownReport
		errs   error
	)

	for _, step := range Steps() {
		result := t.runStep(ctx, session, step, logger)
		report.Steps = append(report.Steps, result)
		errs = multierr.Append(errs, result.Err)

		span.AddEvent("teardown step",
			attribute.String("step", step.Name),
			attribute.Bool("ok", result.Err == nil))
	}

	if errs != nil {
		logger.Warn("Teardown finished with errors",
			zap.Int("failed_steps", len(multierr.Errors(errs))),
			zap.Error(errs))
	} else {
		logger.Info("Teardown finished")
	}

	span.End(errs)
	t.last = report

	return report
}

// LastReport returns the report of the teardown that released the session.
func (t *ResourceTeardown) LastReport() entity.TeardownReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.last
}

func (t *ResourceTeardown) runStep(ctx context.Context, session ports.Session, step Step, logger *zap.Logger) (result entity.TeardownStepResult) {
	result = entity.TeardownStepResult{Name: step.Name, Effect: step.Effect}
	logger = logger.With(zap.String(logg.Step, step.Name))

	stepCtx := ctx
	if t.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, t.stepTimeout)
		defer cancel()
	}

	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			result.Err = fmt.Errorf("panic: %v", rec)
		}

		result.Duration = time.Since(start)

		if result.Err != nil {
			result.Err = apperr.Wrap(step.Name, apperr.CodeResourceFault, result.Err, map[string]any{
				apperr.MetaStage: apperr.StageTeardown,
				apperr.MetaStep:  step.Name,
			})
			logger.Warn("Teardown step failed", zap.Duration("took", result.Duration), zap.Error(result.Err))

			return
		}

		logger.Debug("Teardown step done", zap.Duration("took", result.Duration))
	}()

	result.Err = step.Run(stepCtx, session)

	return result
}

func closeExtraPages(ctx context.Context, session ports.Session) error {
	pages, err := session.ListOpenPages(ctx)
	if err != nil {
		return err
	}

	active, err := session.ActivePage(ctx)
	if err != nil {
		return err
	}

	var errs error

	for _, p := range pages {
		if p.ID == active.ID {
			continue
		}

		errs = multierr.Append(errs, session.ClosePage(ctx, p))
	}

	return errs
}
