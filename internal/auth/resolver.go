package auth

import (
	"browser-agent-engine/internal/config"
	"browser-agent-engine/internal/entity"
	"browser-agent-engine/internal/ports"
	"browser-agent-engine/internal/strategy"
	"browser-agent-engine/pkg/apperr"
	"browser-agent-engine/pkg/logg"
	"browser-agent-engine/pkg/tracing"
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	resolverName   = "CredentialResolver"
	resolverTracer = "auth.resolver"
)

// Resolver locates a login form, fills it, submits it and checks the page
// that follows.
type Resolver struct {
	logger      *zap.Logger
	tracer      trace.Tracer
	chain       *strategy.Chain
	loadTimeout time.Duration
	defaults    entity.Credentials
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
	Chain  *strategy.Chain
}

func NewResolver(params Params) *Resolver {
	return &Resolver{
		logger:      params.Logger.With(zap.String(logg.Layer, resolverName)),
		tracer:      otel.Tracer(resolverTracer),
		chain:       params.Chain,
		loadTimeout: params.Config.EngineConfig.LoadTimeout,
		defaults: entity.Credentials{
			Username: params.Config.LoginConfig.Username,
			Password: params.Config.LoginConfig.Password,
		},
	}
}

// DefaultCredentials are the credentials taken from the environment.
func (r *Resolver) DefaultCredentials() entity.Credentials {
	return r.defaults
}

// Login reports whether the login sequence ended in a verified success.
func (r *Resolver) Login(ctx context.Context, page ports.Page, creds entity.Credentials, targetURL string) bool {
	return r.Run(ctx, page, creds, targetURL).Success()
}

type run struct {
	report entity.LoginReport
	logger *zap.Logger
	step   *tracing.Span
}

func (s *run) enter(state entity.LoginState) {
	s.report.State = state
	s.report.History = append(s.report.History, state)
	s.step.AddEvent("login state", attribute.String("state", string(state)))
	s.logger.Debug("Login state changed", zap.String(logg.State, string(state)))
}

func (s *run) fail(state entity.LoginState, reason string, err error) entity.LoginReport {
	if state != s.report.State {
		s.enter(state)
	}

	s.report.Reason = reason
	s.logger.Info("Login failed", zap.String(logg.State, string(state)), zap.String("reason", reason), zap.Error(err))

	return s.report
}

// Run drives the login state machine and returns its terminal report.
func (r *Resolver) Run(ctx context.Context, page ports.Page, creds entity.Credentials, targetURL string) (report entity.LoginReport) {
	const op = "Login"
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, targetURL))

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op, attribute.String("url", targetURL))
	defer func() {
		step.SetAttributes(attribute.String("state", string(report.State)))
		step.End(nil)
	}()

	s := &run{logger: logger, step: step}

	if !creds.Complete() {
		return s.fail(entity.LoginStateNoCredentials, "missing_credentials", nil)
	}

	if targetURL != "" {
		s.enter(entity.LoginStateNavigating)

		if err := page.Navigate(ctx, targetURL); err != nil {
			return s.fail(entity.LoginStateFailure, "navigation_failed", err)
		}
	}

	s.enter(entity.LoginStateScanning)

	model, err := page.TakeSnapshot(ctx)
	if err != nil {
		return s.fail(entity.LoginStateFailure, "snapshot_failed", err)
	}

	username := r.chain.Resolve(ctx, page, model, strategy.Username())
	password := r.chain.Resolve(ctx, page, model, strategy.Password())

	if ctx.Err() != nil {
		return s.fail(entity.LoginStateFailure, "cancelled", ctx.Err())
	}

	if !username.Resolved() || !password.Resolved() {
		return s.fail(entity.LoginStateFieldsMissing, "fields_missing", errors.Join(username.Err(), password.Err()))
	}

	submit := r.chain.Resolve(ctx, page, model, strategy.Submit())
	if !submit.Resolved() {
		return s.fail(entity.LoginStateFailure, "submit_missing", submit.Err())
	}

	s.enter(entity.LoginStateFieldsFound)
	s.enter(entity.LoginStateFilling)

	if err := r.fill(ctx, page, username, creds.Username); err != nil {
		return s.fail(entity.LoginStateFailure, "fill_username_failed", err)
	}

	if err := r.fill(ctx, page, password, creds.Password); err != nil {
		return s.fail(entity.LoginStateFailure, "fill_password_failed", err)
	}

	r.rememberMe(ctx, page, model, logger)

	if ctx.Err() != nil {
		return s.fail(entity.LoginStateFailure, "cancelled", ctx.Err())
	}

	s.enter(entity.LoginStateSubmitting)

	if err := page.Click(ctx, *submit.Locator); err != nil {
		return s.fail(entity.LoginStateFailure, "submit_failed", err)
	}

	if err := page.WaitForLoad(ctx, r.loadTimeout); err != nil {
		if ctx.Err() != nil {
			return s.fail(entity.LoginStateFailure, "cancelled", err)
		}

		logger.Warn("Page did not finish loading after submit", zap.Duration("timeout", r.loadTimeout), zap.Error(err))
	}

	s.enter(entity.LoginStateVerifying)

	after, err := page.TakeSnapshot(ctx)
	if err != nil {
		return s.fail(entity.LoginStateFailure, "snapshot_failed", err)
	}

	verdict := Verify(after)
	switch verdict {
	case VerdictSuccess:
		s.enter(entity.LoginStateSuccess)
		logger.Info("Login successful")

		return s.report
	case VerdictError:
		return s.fail(entity.LoginStateFailure, "error_indicator", nil)
	}

	return s.fail(entity.LoginStateFailure, "ambiguous", apperr.Wrap(op, apperr.CodeAmbiguousVerification,
		errors.New("no success or error indicator after submit"), map[string]any{
			apperr.MetaStage: apperr.StageLogin,
			apperr.MetaURL:   after.URL(),
		}))
}

func (r *Resolver) fill(ctx context.Context, page ports.Page, field entity.ResolutionResult, value string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return page.Fill(ctx, *field.Locator, value)
}

// rememberMe ticks the remember-me box when there is one. It never fails the
// login.
func (r *Resolver) rememberMe(ctx context.Context, page ports.Page, model *entity.PageModel, logger *zap.Logger) {
	result := r.chain.Resolve(ctx, page, model, strategy.RememberMe())
	if !result.Resolved() || result.Node.Checked || ctx.Err() != nil {
		return
	}

	if err := page.Check(ctx, *result.Locator); err != nil {
		logger.Debug("Failed to check remember-me", zap.Int(logg.Handle, result.Locator.Handle), zap.Error(err))
	}
}
