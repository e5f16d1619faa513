// Package middleware holds the gin middleware chain of the reception API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig selects whether requests get server spans and under which
// service name
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig wraps otelgin. Spans are named "METHOD route", for
// example "POST /api/v1/receptions/:id/accept". Disabled tracing is a no-op.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	name := cfg.ServiceName
	if name == "" {
		name = "reception-service"
	}
	return otelgin.Middleware(name)
}

// TracingAttributeInjector tags the request span with request_id and user_id.
// It must run after TracingWithConfig, RequestID and Actor.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			attrs := make([]attribute.KeyValue, 0, 2)
			if id := GetRequestID(c); id != "" {
				attrs = append(attrs, attribute.String("request_id", id))
			}
			if actor := GetActorID(c); actor != uuid.Nil {
				attrs = append(attrs, attribute.String("user_id", actor.String()))
			}
			span.SetAttributes(attrs...)
		}
		c.Next()
	}
}

// SpanErrorMarker records the status of 4xx and 5xx answers on the span and
// flags 5xx as errors. Client errors leave the span status unset.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		status := c.Writer.Status()
		if !span.IsRecording() || status < http.StatusBadRequest {
			return
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
