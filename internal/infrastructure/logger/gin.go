package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// accessLevel maps a response status to the level its access line is logged at
func accessLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

// GinMiddleware stores a request-scoped logger in the request context and
// writes one access line per request once the handlers have run.
// Handlers fetch the logger with L(c.Request.Context()).
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		scoped := base.With(zap.String("method", req.Method), zap.String("path", req.URL.Path))
		ctx := req.Context()
		if id := c.GetString("request_id"); id != "" {
			ctx, scoped = WithRequestID(ctx, scoped, id)
		} else {
			ctx = WithContext(ctx, scoped)
		}
		c.Request = req.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		fields := make([]zap.Field, 0, 7)
		fields = append(fields,
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		)
		if q := req.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if uid := GetUserID(c.Request.Context()); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}
		if errs := c.Errors.Errors(); len(errs) > 0 {
			fields = append(fields, zap.Strings("errors", errs))
		}
		scoped.Log(accessLevel(status), "HTTP Request", fields...)
	}
}

// Recovery turns a panic in a later handler into a 500 response and logs it
// with the stack
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			base.Error("Panic recovered",
				zap.String("request_id", c.GetString("request_id")),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("error", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   gin.H{"code": "INTERNAL_ERROR", "message": "An internal error occurred"},
			})
		}()
		c.Next()
	}
}
