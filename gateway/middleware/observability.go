package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"drippy/observability"
)

// Observability traces, measures and logs each routed request.
type Observability struct {
	service string
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewObservability(service string, logger *slog.Logger) *Observability {
	if logger == nil {
		logger = slog.Default()
	}
	if service == "" {
		service = "settled"
	}
	return &Observability{service: service, logger: logger, tracer: otel.Tracer(service)}
}

func (o *Observability) Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := o.tracer.Start(r.Context(), route, trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
			))
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r.WithContext(ctx))
			span.SetAttributes(attribute.Int("http.status_code", recorder.status))
			span.End()
			duration := time.Since(start)
			observability.ModuleMetrics().Observe(o.service, route, recorder.status, duration)
			level := slog.LevelDebug
			if recorder.status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			o.logger.Log(ctx, level, "http request",
				"method", r.Method,
				"route", route,
				"status", recorder.status,
				"duration_ms", duration.Milliseconds(),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
