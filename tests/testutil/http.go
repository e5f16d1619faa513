package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/reception/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Request describes one call made against a gin engine
type Request struct {
	Method  string
	Path    string
	Body    any
	Headers map[string]string
}

// Response is a recorded response with its decoded envelope
type Response struct {
	Code     int
	Raw      []byte
	Envelope dto.Response
}

// Do serves req on engine and decodes the JSON envelope when there is a body
func Do(t *testing.T, engine *gin.Engine, req Request) Response {
	t.Helper()

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		require.NoError(t, err, "Failed to marshal request body")
		body = bytes.NewReader(data)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq := httptest.NewRequest(method, req.Path, body)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httpReq)

	resp := Response{Code: w.Code, Raw: w.Body.Bytes()}
	if len(resp.Raw) > 0 {
		require.NoError(t, json.Unmarshal(resp.Raw, &resp.Envelope), "Failed to parse response: %s", resp.Raw)
	}
	return resp
}

// DataAs decodes the envelope data into T
func DataAs[T any](t *testing.T, resp Response) T {
	t.Helper()

	raw, err := json.Marshal(resp.Envelope.Data)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), "Failed to decode data: %s", raw)
	return out
}

// AssertSuccess asserts a successful envelope with the given status
func AssertSuccess(t *testing.T, resp Response, status int) {
	t.Helper()
	require.Equal(t, status, resp.Code, "Unexpected status: %s", resp.Raw)
	assert.True(t, resp.Envelope.Success, "Expected success to be true")
	assert.Nil(t, resp.Envelope.Error, "Expected no error")
}

// AssertError asserts an error envelope with the given status and code
func AssertError(t *testing.T, resp Response, status int, code string) {
	t.Helper()
	assert.Equal(t, status, resp.Code, "Unexpected status: %s", resp.Raw)
	assert.False(t, resp.Envelope.Success, "Expected success to be false")
	if assert.NotNil(t, resp.Envelope.Error, "Expected error object in response") {
		assert.Equal(t, code, resp.Envelope.Error.Code, "Unexpected error code")
	}
}
