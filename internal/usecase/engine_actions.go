package usecase

import (
	"browser-agent-engine/internal/entity"
	"browser-agent-engine/internal/strategy"
	"browser-agent-engine/pkg/apperr"
	"browser-agent-engine/pkg/logg"
	"browser-agent-engine/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func (s *EngineService) executeAction(ctx context.Context, action entity.EngineAction, record *entity.ActionRecord) error {
	const op = "executeAction"

	switch action.Type {
	case entity.ActionTypeNavigate:
		return s.actionNavigate(ctx, action, record)
	case entity.ActionTypeConsent:
		return s.actionConsent(ctx, record)
	case entity.ActionTypeLogin:
		return s.actionLogin(ctx, action, record)
	case entity.ActionTypeFind:
		return s.actionFind(ctx, action, record)
	case entity.ActionTypeTeardown:
		return s.actionTeardown(ctx, record)
	default:
		return apperr.WrapErrorWithReason(op, apperr.CodeInvalidArgument, "unknown_action_type")
	}
}

func (s *EngineService) actionNavigate(ctx context.Context, action entity.EngineAction, record *entity.ActionRecord) (err error) {
	const op = "actionNavigate"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, action.URL))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("url", action.URL))
	defer func() {
		step.End(err)
	}()

	if action.URL == "" {
		return apperr.InvalidReqError(op, "url", errors.New("url cannot be empty"))
	}

	if err := s.page.Navigate(ctx, action.URL); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "navigation_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    action.URL,
		})
	}

	record.Success = true
	record.Detail = "navigated"

	if !s.config.EngineConfig.AutoConsent {
		return nil
	}

	step.AddEvent("auto consent")

	model, err := s.page.TakeSnapshot(ctx)
	if err != nil {
		logger.Warn("Skipping auto consent, snapshot failed", zap.Error(err))

		return nil
	}

	if s.consent.Resolve(ctx, s.page, model) {
		record.Detail = "navigated, cookie consent accepted"
	}

	return nil
}

func (s *EngineService) actionConsent(ctx context.Context, record *entity.ActionRecord) error {
	const op = "actionConsent"

	model, err := s.page.TakeSnapshot(ctx)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "snapshot_failed",
			apperr.MetaStage:  apperr.StageConsent,
		})
	}

	record.Success = s.consent.Resolve(ctx, s.page, model)
	if record.Success {
		record.Detail = "cookie consent accepted"
	} else {
		record.Detail = "no consent control found"
	}

	return nil
}

func (s *EngineService) actionLogin(ctx context.Context, action entity.EngineAction, record *entity.ActionRecord) error {
	report := s.login.Run(ctx, s.page, s.login.DefaultCredentials(), action.URL)

	record.Success = report.Success()
	record.Detail = string(report.State)

	if report.Reason != "" {
		record.Detail += ": " + report.Reason
	}

	return nil
}

func (s *EngineService) actionFind(ctx context.Context, action entity.EngineAction, record *entity.ActionRecord) error {
	const op = "actionFind"

	if action.Text == "" {
		return apperr.InvalidReqError(op, "text", errors.New("text cannot be empty"))
	}

	model, err := s.page.TakeSnapshot(ctx)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "snapshot_failed",
			apperr.MetaStage:  apperr.StageResolution,
		})
	}

	result := s.chain.Resolve(ctx, s.page, model, strategy.Text(action.Text))
	if !result.Resolved() {
		record.Detail = result.Trail()

		return result.Err()
	}

	record.Success = true
	record.Detail = fmt.Sprintf("%s via %s (%s)", result.Locator, result.Strategy, result.Pattern)

	return nil
}

func (s *EngineService) actionTeardown(ctx context.Context, record *entity.ActionRecord) error {
	report := s.teardown.Teardown(ctx)

	if report.Skipped {
		record.Success = true
		record.Detail = "already released"

		if last := s.teardown.LastReport(); len(last.Steps) > 0 {
			record.Detail += " (" + summarize(last) + ")"
		}

		return nil
	}

	record.Success = len(report.Failed()) == 0
	record.Detail = summarize(report)

	return nil
}

// summarize renders "3/5 steps succeeded" followed by the failed step names.
func summarize(report entity.TeardownReport) string {
	failed := report.Failed()
	out := fmt.Sprintf("%d/%d steps succeeded", len(report.Steps)-len(failed), len(report.Steps))

	if len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, f := range failed {
			names = append(names, f.Name)
		}

		out += ", failed: " + strings.Join(names, ", ")
	}

	return out
}
