package tracing

import (
	"browser-agent-engine/pkg/apperr"
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Span struct {
	span   trace.Span
	logger *zap.Logger
}

func StartSpan(ctx context.Context, tracer trace.Tracer, logger *zap.Logger, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))

	return ctx, &Span{
		span:   span,
		logger: logger,
	}
}

// End closes the span. An *apperr.Error in err's chain also tags the span
// with its code and reason.
func (s *Span) End(err error) {
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			s.span.SetAttributes(attribute.String("error.code", appErr.Code))

			if reason, ok := appErr.Metadata[apperr.MetaReason].(string); ok {
				s.span.SetAttributes(attribute.String("error.reason", reason))
			}
		}

		s.span.SetStatus(codes.Error, err.Error())
		s.span.RecordError(err)
	} else {
		s.span.SetStatus(codes.Ok, "")
	}

	s.span.End()
}

// AddEvent records the event on the span and mirrors it to the debug log.
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))

	if s.logger != nil && s.logger.Core().Enabled(zap.DebugLevel) {
		fields := make([]zap.Field, 0, len(attrs))
		for _, attr := range attrs {
			fields = append(fields, zap.String(string(attr.Key), attr.Value.Emit()))
		}

		s.logger.Debug(name, fields...)
	}
}

func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}
