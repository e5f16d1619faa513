package middleware

import (
	"net/http"

	"github.com/erp/reception/internal/infrastructure/logger"
	"github.com/erp/reception/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// UserIDHeader identifies the acting user; authentication happens upstream
	UserIDHeader = "X-User-ID"
	// IdempotencyKeyHeader makes a create request safe to retry
	IdempotencyKeyHeader = "Idempotency-Key"

	// ActorIDKey is the gin context key of the parsed acting user
	ActorIDKey = "actor_id"
)

// Actor parses the X-User-ID header. A missing header leaves the actor unset;
// a malformed one is rejected with 400.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		if raw == "" {
			c.Next()
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeValidationFormat, UserIDHeader+" must be a UUID", GetRequestID(c)))
			return
		}

		c.Set(ActorIDKey, id)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), id.String()))
		c.Next()
	}
}

// GetActorID returns the acting user, or uuid.Nil when none was sent
func GetActorID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ActorIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
