package middleware

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/conneroisu/waha/internal/errors"
	"github.com/conneroisu/waha/internal/logging"
)

// Tracing starts one server span per request and ends it after the inner
// handler returns or panics. Incoming W3C trace context is honoured.
// The span is named by the request method alone; matched routes rename it
// through RouteName so raw paths never become span names.
func Tracing(tracer trace.Tracer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
					attribute.String("client.address", r.RemoteAddr),
				),
			)

			rec := newStatusRecorder(w)
			defer func() {
				status := rec.status
				if p := recover(); p != nil {
					span.SetStatus(codes.Error, "panic")
					span.SetAttributes(attribute.Int("http.response.status_code", http.StatusInternalServerError))
					span.End()
					panic(p)
				}

				span.SetAttributes(attribute.Int("http.response.status_code", status))
				if status >= http.StatusInternalServerError {
					span.SetStatus(codes.Error, http.StatusText(status))
				}
				span.End()
			}()

			next.ServeHTTP(rec, r.WithContext(ctx))
		})
	}
}

// RouteName wraps h so that the request span is named after route, a
// method and path pattern such as "POST /api/todos".
func RouteName(route string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := trace.SpanFromContext(r.Context())
		span.SetName(route)
		span.SetAttributes(attribute.String("http.route", route))
		h.ServeHTTP(w, r)
	})
}

// AccessLog writes one record per request with method, path, status and
// latency. 5xx responses log at error severity, 4xx at warn.
func AccessLog(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			defer func() {
				p := recover()
				status := rec.status
				if p != nil {
					status = http.StatusInternalServerError
				}

				fields := []interface{}{
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", rec.bytes,
					"latency_ms", float64(time.Since(start).Microseconds()) / 1000,
				}

				ctx := r.Context()
				switch {
				case status >= http.StatusInternalServerError:
					logger.Error(ctx, nil, "request", fields...)
				case status >= http.StatusBadRequest:
					logger.Warn(ctx, nil, "request", fields...)
				default:
					logger.Info(ctx, "request", fields...)
				}

				if p != nil {
					panic(p)
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

// Recover turns a handler panic into a 500 response. This is where a
// failure raised while the todo store lock was held ends up.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recover(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)

			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				err := apperrors.NewPanicError(p)
				logger.Error(r.Context(), err, "recovered from handler panic",
					"method", r.Method,
					"path", r.URL.Path,
				)
				trace.SpanFromContext(r.Context()).RecordError(err)

				if !rec.wroteHeader {
					http.Error(rec, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
