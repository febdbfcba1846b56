// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// OTelHTTP wraps the handler with OpenTelemetry HTTP instrumentation. Spans
// propagate incoming trace context from upstream control surfaces.
func OTelHTTP(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			next,
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanNameFormatter),
		)
	}
}

// shouldTrace skips probe and scrape endpoints to reduce noise. The
// websocket stream is skipped too: one span per multi-hour connection
// carries no information.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics", "/ws":
		return false
	}
	return true
}

// spanNameFormatter yields "HTTP {METHOD} {PATH}" span names.
func spanNameFormatter(operation string, r *http.Request) string {
	return operation + " " + r.URL.Path
}

// SpanFromContext returns the current span from the request context, a noop
// span when tracing is disabled.
func SpanFromContext(r *http.Request) trace.Span {
	return trace.SpanFromContext(r.Context())
}
