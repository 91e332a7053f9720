package usecase

import (
	"browser-agent-engine/internal/auth"
	"browser-agent-engine/internal/config"
	"browser-agent-engine/internal/consent"
	"browser-agent-engine/internal/entity"
	"browser-agent-engine/internal/ports"
	"browser-agent-engine/internal/strategy"
	"browser-agent-engine/internal/teardown"
	"browser-agent-engine/pkg/apperr"
	"browser-agent-engine/pkg/logg"
	"browser-agent-engine/pkg/tracing"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	engineServiceName = "EngineService"
	engineTracer      = "usecase.engine"
)

// EngineService runs one engine action at a time against the session's
// active page.
type EngineService struct {
	config   *config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
	page     ports.Page
	ready    func() bool
	chain    *strategy.Chain
	consent  *consent.Resolver
	login    *auth.Resolver
	teardown *teardown.ResourceTeardown

	mu      sync.Mutex
	history []entity.ActionRecord
}

type EngineServiceParams struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Browser  ports.BrowserManager
	Chain    *strategy.Chain
	Consent  *consent.Resolver
	Login    *auth.Resolver
	Teardown *teardown.ResourceTeardown
}

func NewEngineService(params EngineServiceParams) *EngineService {
	return &EngineService{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, engineServiceName)),
		tracer:   otel.Tracer(engineTracer),
		page:     params.Browser,
		ready:    params.Browser.IsReady,
		chain:    params.Chain,
		consent:  params.Consent,
		login:    params.Login,
		teardown: params.Teardown,
	}
}

// Execute runs action and records its outcome. Resolver verdicts are
// reported through the record; the error is reserved for actions that could
// not be carried out at all.
func (s *EngineService) Execute(ctx context.Context, action entity.EngineAction) (record *entity.ActionRecord, err error) {
	const op = "Execute"

	s.mu.Lock()
	defer s.mu.Unlock()

	record = &entity.ActionRecord{
		ID:          uuid.New(),
		Type:        action.Type,
		Description: describe(action),
		StartedAt:   time.Now(),
	}

	logger := s.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Action, string(action.Type)),
		zap.String(logg.ActionID, record.ID.String()))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("action_type", string(action.Type)),
		attribute.String("action_id", record.ID.String()))
	defer func() {
		record.FinishedAt = time.Now()
		if err != nil {
			record.Success = false
			record.Error = err.Error()
		}

		s.history = append(s.history, *record)
		step.End(err)
	}()

	if action.Type != entity.ActionTypeTeardown && !s.ready() {
		return record, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	logger.Info("Executing action", zap.String("description", record.Description))

	err = s.executeAction(ctx, action, record)

	return record, err
}

// History returns the records of every executed action, oldest first.
func (s *EngineService) History() []entity.ActionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.ActionRecord, len(s.history))
	copy(out, s.history)

	return out
}

func describe(action entity.EngineAction) string {
	switch action.Type {
	case entity.ActionTypeNavigate:
		return "navigate to " + action.URL
	case entity.ActionTypeLogin:
		if action.URL != "" {
			return "log in at " + action.URL
		}

		return "log in on the current page"
	case entity.ActionTypeFind:
		return "find " + action.Text
	case entity.ActionTypeConsent:
		return "accept cookie consent"
	case entity.ActionTypeTeardown:
		return "tear down session"
	}

	return string(action.Type)
}
