package observer

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/conduit-lang/metacore/internal/model"
)

// Span opens an OpenTelemetry span per processed instance. Nested
// processing produces child spans.
type Span struct {
	tracer trace.Tracer

	mu    sync.Mutex
	ctx   context.Context
	spans []spanFrame
}

type spanFrame struct {
	instance model.CoreInstance
	ctx      context.Context
	span     trace.Span
}

// NewSpan creates a span observer whose root spans are children of ctx.
func NewSpan(ctx context.Context, tracer trace.Tracer) *Span {
	return &Span{tracer: tracer, ctx: ctx}
}

func (s *Span) StartProcessing(instance model.CoreInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	parent := s.ctx
	if n := len(s.spans); n > 0 {
		parent = s.spans[n-1].ctx
	}
	attrs := []attribute.KeyValue{
		attribute.String("metacore.instance", instance.Name()),
		attribute.Int64("metacore.instance.id", instance.ID()),
	}
	if c := instance.Classifier(); c != nil {
		attrs = append(attrs, attribute.String("metacore.classifier", c.Name()))
	}
	ctx, span := s.tracer.Start(parent, "process "+instance.Name(), trace.WithAttributes(attrs...))
	s.spans = append(s.spans, spanFrame{instance: instance, ctx: ctx, span: span})
	return nil
}

func (s *Span) FinishProcessing(instance model.CoreInstance) error {
	s.end(instance, nil)
	return nil
}

func (s *Span) FinishProcessingWithError(instance model.CoreInstance, cause error) error {
	s.end(instance, cause)
	return nil
}

func (s *Span) end(instance model.CoreInstance, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.spans) - 1; i >= 0; i-- {
		if s.spans[i].instance != instance {
			continue
		}
		f := s.spans[i]
		if cause != nil {
			f.span.RecordError(cause)
			f.span.SetStatus(codes.Error, cause.Error())
		}
		f.span.End()
		s.spans = s.spans[:i]
		return
	}
}
