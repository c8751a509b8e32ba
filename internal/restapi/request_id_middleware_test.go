package restapi

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runWithRequestID sends a request through the middleware and returns
// the ID the handler saw in its context.
func runWithRequestID(t *testing.T, headerID string) (ctxID, echoedID string) {
	t.Helper()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := r.Context().Value(RequestIDKey).(string)
		require.True(t, ok, "context should carry a request ID")
		ctxID = id
	})

	req := httptest.NewRequest("GET", "http://example.com/foo", nil)
	if headerID != "" {
		req.Header.Set("X-Request-ID", headerID)
	}
	rec := httptest.NewRecorder()
	RequestIDMiddleware(next).ServeHTTP(rec, req)

	return ctxID, rec.Header().Get("X-Request-ID")
}

func TestRequestIDMiddleware(t *testing.T) {
	uuidShape := `^[0-9a-f-]{36}$`

	t.Run("generates an ID when the header is missing", func(t *testing.T) {
		ctxID, echoed := runWithRequestID(t, "")
		assert.Regexp(t, uuidShape, ctxID)
		assert.Equal(t, ctxID, echoed)
	})

	t.Run("keeps a usable caller ID", func(t *testing.T) {
		for _, id := range []string{
			"my-custom-trace-id-123",
			strings.Repeat("a", 128), // exactly at the length limit
		} {
			ctxID, echoed := runWithRequestID(t, id)
			assert.Equal(t, id, ctxID)
			assert.Equal(t, id, echoed)
		}
	})

	t.Run("replaces an unusable caller ID", func(t *testing.T) {
		for _, id := range []string{
			strings.Repeat("a", 129),
			"bad-id-<script>",
		} {
			ctxID, echoed := runWithRequestID(t, id)
			assert.NotEqual(t, id, ctxID)
			assert.Regexp(t, uuidShape, ctxID)
			assert.Equal(t, ctxID, echoed)
		}
	})
}

func TestRequestIDLoggingIntegration(t *testing.T) {
	var logBuf bytes.Buffer
	testLogger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	finalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequestIDMiddleware(NewRequestLoggingMiddleware(testLogger)(finalHandler))

	req := httptest.NewRequest("GET", "http://example.com/test", nil)
	req.Header.Set("X-Request-ID", "integration-test-id-999")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	logOutput := logBuf.String()
	assert.Contains(t, logOutput, "integration-test-id-999")
	assert.Contains(t, logOutput, "request_id")
}
