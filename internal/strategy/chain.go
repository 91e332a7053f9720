package strategy

import (
	"browser-agent-engine/internal/classify"
	"browser-agent-engine/internal/config"
	"browser-agent-engine/internal/entity"
	"browser-agent-engine/internal/ports"
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
	chainName   = "StrategyChain"
	chainTracer = "strategy.chain"
)

// Chain tries its strategies in order and returns the first candidate that
// is attached, displayed and enabled in the live page.
type Chain struct {
	logger       *zap.Logger
	tracer       trace.Tracer
	strategies   []Strategy
	probeTimeout time.Duration
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewChain(params Params) *Chain {
	return New(params.Logger, params.Config.EngineConfig.ProbeTimeout, DefaultStrategies()...)
}

func New(logger *zap.Logger, probeTimeout time.Duration, strategies ...Strategy) *Chain {
	return &Chain{
		logger:       logger.With(zap.String(logg.Layer, chainName)),
		tracer:       otel.Tracer(chainTracer),
		strategies:   strategies,
		probeTimeout: probeTimeout,
	}
}

// Resolve never returns an element that failed the live check, even when it
// is the only match. Exhaustion is reported through the result, not an error.
func (c *Chain) Resolve(ctx context.Context, prober ports.Prober, page *entity.PageModel, target Target) (result entity.ResolutionResult) {
	const op = "Resolve"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.Target, target.String()))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.String("target", target.String()),
		attribute.String("snapshot", page.ID().String()))
	defer func() {
		step.SetAttributes(attribute.Bool("resolved", result.Resolved()))
		step.End(nil)
	}()

	result.Target = target.String()

	for i, s := range c.strategies {
		if ctx.Err() != nil {
			for _, rest := range c.strategies[i:] {
				result.Attempts = append(result.Attempts, entity.StrategyAttempt{
					Strategy: rest.Name(),
					Outcome:  entity.OutcomeTimedOut,
				})
			}

			break
		}

		attempt, winner, ok := c.try(ctx, prober, page, s, target)
		result.Attempts = append(result.Attempts, attempt)
		step.AddEvent("strategy tried",
			attribute.String("strategy", attempt.Strategy),
			attribute.String("outcome", string(attempt.Outcome)))

		if ok {
			loc := winner.locator
			result.Locator = &loc
			result.Node = winner.node
			result.Strategy = s.Name()
			result.Pattern = winner.pattern

			logger.Debug("Target resolved",
				zap.String(logg.Strategy, result.Strategy),
				zap.String(logg.Pattern, result.Pattern),
				zap.Int(logg.Handle, loc.Handle))

			return result
		}
	}

	logger.Debug("Target exhausted", zap.String("trail", result.Trail()))

	return result
}

type selection struct {
	locator entity.Locator
	node    entity.Node
	pattern string
}

func (c *Chain) try(ctx context.Context, prober ports.Prober, page *entity.PageModel, s Strategy, target Target) (entity.StrategyAttempt, selection, bool) {
	candidates := s.Candidates(page, target)

	attempt := entity.StrategyAttempt{
		Strategy:   s.Name(),
		Outcome:    entity.OutcomeNotFound,
		Candidates: len(candidates),
	}

	for _, cand := range candidates {
		node, err := page.Node(cand.Handle)
		if err != nil {
			continue
		}

		outcome := staticOutcome(node)
		if outcome == entity.OutcomeFound {
			loc, err := page.Locator(cand.Handle)
			if err != nil {
				continue
			}

			outcome = c.Probe(ctx, prober, loc)
			if outcome == entity.OutcomeFound {
				attempt.Outcome = entity.OutcomeFound
				attempt.Detail = cand.Pattern

				return attempt, selection{locator: loc, node: node, pattern: cand.Pattern}, true
			}
		}

		if attempt.Outcome.Closer(outcome) != attempt.Outcome {
			attempt.Outcome = outcome
			attempt.Detail = cand.Pattern
		}

		if ctx.Err() != nil {
			attempt.Outcome = entity.OutcomeTimedOut
			attempt.Detail = ""

			break
		}
	}

	return attempt, selection{}, false
}

// staticOutcome rejects candidates the snapshot already shows as unusable.
func staticOutcome(n entity.Node) entity.Outcome {
	if n.Disabled || n.AriaDisabled == "true" {
		return entity.OutcomeNotEnabled
	}

	if !classify.IsVisible(n) {
		return entity.OutcomeNotVisible
	}

	return entity.OutcomeFound
}

// Probe checks loc against the live page under the chain's probe timeout and
// reports found only for an attached, displayed and enabled element.
func (c *Chain) Probe(ctx context.Context, prober ports.Prober, loc entity.Locator) entity.Outcome {
	probeCtx := ctx

	if c.probeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, c.probeTimeout)
		defer cancel()
	}

	state, err := prober.Probe(probeCtx, loc)
	if err != nil {
		c.logger.Debug("Probe failed", zap.Int(logg.Handle, loc.Handle), zap.Error(err))

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
			apperr.HasCode(err, apperr.CodeTimeout) || probeCtx.Err() != nil {
			return entity.OutcomeTimedOut
		}

		return entity.OutcomeFault
	}

	switch {
	case !state.Attached:
		return entity.OutcomeNotFound
	case !state.Displayed:
		return entity.OutcomeNotVisible
	case !state.Enabled:
		return entity.OutcomeNotEnabled
	}

	return entity.OutcomeFound
}
