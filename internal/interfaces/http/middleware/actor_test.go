package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/reception/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestActor(t *testing.T) {
	var seenActor uuid.UUID
	var seenCtxUser string

	r := gin.New()
	r.Use(RequestID(), Actor())
	r.POST("/receptions/:id/verify", func(c *gin.Context) {
		seenActor = GetActorID(c)
		seenCtxUser = logger.GetUserID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	clerk := uuid.New()
	tests := []struct {
		name      string
		header    string
		status    int
		wantActor uuid.UUID
		wantCtx   string
	}{
		{"valid header", clerk.String(), http.StatusNoContent, clerk, clerk.String()},
		{"no header", "", http.StatusNoContent, uuid.Nil, ""},
		{"malformed header", "clerk-42", http.StatusBadRequest, uuid.Nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenActor, seenCtxUser = uuid.Nil, ""
			req := httptest.NewRequest(http.MethodPost, "/receptions/"+uuid.NewString()+"/verify", nil)
			if tt.header != "" {
				req.Header.Set(UserIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.wantActor, seenActor)
			assert.Equal(t, tt.wantCtx, seenCtxUser)
			if tt.status == http.StatusBadRequest {
				assert.Contains(t, w.Body.String(), "ERR_VALIDATION_FORMAT")
			}
		})
	}
}
