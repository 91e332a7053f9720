package consent

import (
	"browser-agent-engine/internal/classify"
	"browser-agent-engine/internal/entity"
	"browser-agent-engine/internal/ports"
	"browser-agent-engine/internal/strategy"
	"browser-agent-engine/pkg/logg"
	"browser-agent-engine/pkg/tracing"
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	resolverName   = "ConsentResolver"
	resolverTracer = "consent.resolver"
)

// Resolver finds and activates cookie/privacy consent controls.
type Resolver struct {
	logger *zap.Logger
	tracer trace.Tracer
	chain  *strategy.Chain
}

type Params struct {
	fx.In

	Logger *zap.Logger
	Chain  *strategy.Chain
}

func NewResolver(params Params) *Resolver {
	return &Resolver{
		logger: params.Logger.With(zap.String(logg.Layer, resolverName)),
		tracer: otel.Tracer(resolverTracer),
		chain:  params.Chain,
	}
}

// Resolve clicks at most one consent control on the page described by
// model and reports whether it did. Finding no banner is not an error.
func (r *Resolver) Resolve(ctx context.Context, page ports.Page, model *entity.PageModel) (clicked bool) {
	const op = "Resolve"
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.Snapshot, model.ID().String()))

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op, attribute.String("url", model.URL()))
	defer func() {
		step.SetAttributes(attribute.Bool("clicked", clicked))
		step.End(nil)
	}()

	for _, n := range Candidates(model) {
		if ctx.Err() != nil {
			return false
		}

		if r.tryClick(ctx, page, model, n, logger) {
			step.AddEvent("consent clicked", attribute.Int("handle", n.Handle))

			return true
		}
	}

	if ctx.Err() != nil {
		return false
	}

	step.AddEvent("falling back to strategy chain")

	result := r.chain.Resolve(ctx, page, model, strategy.Consent())
	if !result.Resolved() {
		logger.Debug("No consent control found", zap.String("trail", result.Trail()))

		return false
	}

	if ctx.Err() != nil {
		return false
	}

	if err := page.Click(ctx, *result.Locator); err != nil {
		logger.Debug("Failed to click consent element",
			zap.Int(logg.Handle, result.Locator.Handle),
			zap.String(logg.Strategy, result.Strategy),
			zap.Error(err))

		return false
	}

	logger.Info("Clicked cookie consent control",
		zap.Int(logg.Handle, result.Locator.Handle),
		zap.String(logg.Strategy, result.Strategy),
		zap.String(logg.Pattern, result.Pattern))

	return true
}

// Candidates returns the consent-related, button-like nodes in document
// order.
func Candidates(model *entity.PageModel) []entity.Node {
	return model.Filter(func(n entity.Node) bool {
		return classify.IsConsentRelated(n) && classify.IsButtonLike(n)
	})
}

func (r *Resolver) tryClick(ctx context.Context, page ports.Page, model *entity.PageModel, n entity.Node, logger *zap.Logger) bool {
	if !classify.IsVisible(n) || n.Disabled {
		return false
	}

	loc, err := model.Locator(n.Handle)
	if err != nil {
		return false
	}

	if outcome := r.chain.Probe(ctx, page, loc); outcome != entity.OutcomeFound {
		logger.Debug("Consent candidate not actionable", zap.Int(logg.Handle, n.Handle), zap.String("outcome", string(outcome)))

		return false
	}

	if ctx.Err() != nil {
		return false
	}

	if err := page.Click(ctx, loc); err != nil {
		logger.Debug("Failed to click consent element", zap.Int(logg.Handle, n.Handle), zap.Error(err))

		return false
	}

	logger.Info("Clicked cookie consent button", zap.Int(logg.Handle, n.Handle), zap.String("text", n.Text))

	return true
}
