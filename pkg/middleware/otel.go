package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	redux "github.com/wjohnso-insight/scc-redux"
)

// Default tracer name for store instrumentation.
const defaultTracerName = "scc-redux"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "scc-redux").
	TracerName string

	// Filter determines which actions to trace. Return true to trace the
	// dispatch, false to skip. If nil, all dispatches are traced.
	Filter func(action any) bool

	// AttributeExtractor extracts custom attributes from the action.
	// Called for each traced dispatch.
	AttributeExtractor func(action any) []attribute.KeyValue

	// Parent supplies the parent context for each span. Dispatch is
	// synchronous and carries no context of its own, so a store living
	// inside a request loop can surface the request context here. If nil,
	// spans are roots under context.Background().
	Parent func() context.Context

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithActionFilter sets a filter function for dispatches.
func WithActionFilter(filter func(action any) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(action any) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// WithParentContext sets the parent context provider for spans.
func WithParentContext(parent func() context.Context) OTelOption {
	return func(c *OTelConfig) {
		c.Parent = parent
	}
}

// defaultOTelConfig returns the default OpenTelemetry configuration.
func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
		Filter:     nil,
	}
}

// OpenTelemetry creates middleware that traces every dispatch.
//
// The middleware:
//   - Opens a span per dispatch, named after the action type
//   - Records the action type as a span attribute
//   - Records errors and sets span status
//
// Example:
//
//	store, err := redux.New(reducer,
//	    redux.WithEnhancer(middleware.Apply(
//	        middleware.OpenTelemetry[State](
//	            middleware.WithTracerName("my-app"),
//	        ),
//	    )))
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it
// in your main() before dispatching:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	    sdktrace.WithResource(resource.NewWithAttributes(
//	        semconv.SchemaURL,
//	        semconv.ServiceName("my-app"),
//	    )),
//	)
//	otel.SetTracerProvider(tp)
func OpenTelemetry[S any](opts ...OTelOption) Middleware[S] {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Resolve tracer from global provider
	config.tracer = otel.Tracer(config.TracerName)

	return func(api API[S]) func(next redux.Dispatcher) redux.Dispatcher {
		return func(next redux.Dispatcher) redux.Dispatcher {
			return func(action any) (any, error) {
				// Apply filter if configured
				if config.Filter != nil && !config.Filter(action) {
					return next(action)
				}

				typ, ok := redux.ActionType(action)
				spanName := "redux.dispatch"
				if ok {
					spanName = "redux." + typ
				}

				attrs := []attribute.KeyValue{
					attribute.String("redux.action_type", typ),
				}
				if config.AttributeExtractor != nil {
					attrs = append(attrs, config.AttributeExtractor(action)...)
				}

				parent := context.Background()
				if config.Parent != nil {
					if p := config.Parent(); p != nil {
						parent = p
					}
				}

				_, span := config.tracer.Start(
					parent,
					spanName,
					trace.WithSpanKind(trace.SpanKindInternal),
					trace.WithAttributes(attrs...),
					trace.WithTimestamp(time.Now()),
				)
				defer span.End()

				result, err := next(action)

				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				} else {
					span.SetStatus(codes.Ok, "")
				}

				return result, err
			}
		}
	}
}
