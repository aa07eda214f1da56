package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Instrumentation scope names for the API server.
const (
	HTTPMetricsMeterName = "github.com/stacklok/ledgersync/http"
	TracerName           = "github.com/stacklok/ledgersync/http"
)

const (
	unknownRoute       = "unknown_route"
	maxUserAgentLength = 256
)

// Probe and scrape endpoints are polled constantly and are never traced.
var untracedPaths = map[string]bool{
	"/health":    true,
	"/readiness": true,
	"/metrics":   true,
}

func passThrough(next http.Handler) http.Handler { return next }

// routePattern returns the chi pattern that matched r, such as
// "/v1/connections/{id}/sync". Only valid after routing.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return unknownRoute
}

// HTTPMetrics records request counts, latencies and in-flight requests.
type HTTPMetrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

// NewHTTPMetrics registers the HTTP instruments. A nil provider yields nil,
// whose Middleware is a pass-through.
func NewHTTPMetrics(provider metric.MeterProvider) (*HTTPMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(HTTPMetricsMeterName)

	m := &HTTPMetrics{}
	var err error
	if m.duration, err = meter.Float64Histogram("ledgersync_http_request_duration_seconds",
		metric.WithDescription("Latency of API requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
	); err != nil {
		return nil, err
	}
	if m.requests, err = meter.Int64Counter("ledgersync_http_requests_total",
		metric.WithDescription("API requests served"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.inFlight, err = meter.Int64UpDownCounter("ledgersync_http_active_requests",
		metric.WithDescription("API requests currently being served"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// Middleware records one observation per request, labelled by route pattern
// so that connection IDs do not leak into label values.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		began := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		m.inFlight.Add(ctx, 1)
		defer m.inFlight.Add(ctx, -1)
		next.ServeHTTP(ww, r)

		attrs := metric.WithAttributeSet(attribute.NewSet(
			attribute.String("method", r.Method),
			attribute.String("route", routePattern(r)),
			attribute.String("status_code", strconv.Itoa(ww.Status())),
		))
		m.duration.Record(ctx, time.Since(began).Seconds(), attrs)
		m.requests.Add(ctx, 1, attrs)
	})
}

// MetricsMiddleware builds HTTPMetrics from provider and returns its middleware.
func MetricsMiddleware(provider metric.MeterProvider) (func(http.Handler) http.Handler, error) {
	m, err := NewHTTPMetrics(provider)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return passThrough, nil
	}
	return m.Middleware, nil
}

// TracingMiddleware starts a server span per request, continuing any W3C
// trace context sent by the caller. A nil provider yields a pass-through.
func TracingMiddleware(provider trace.TracerProvider) func(http.Handler) http.Handler {
	if provider == nil {
		return passThrough
	}
	tracer := provider.Tracer(TracerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if untracedPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.UserAgentOriginal(truncate(r.UserAgent(), maxUserAgentLength)),
				),
			)
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			route := routePattern(r)
			status := ww.Status()
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCode(status),
			)
			if status >= http.StatusBadRequest {
				span.SetStatus(codes.Error, http.StatusText(status))
				return
			}
			span.SetStatus(codes.Ok, "")
		})
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
