package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"peatus.ee/internal/models"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) models.ResponseModel {
	t.Helper()
	var response models.ResponseModel
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestSendResponse(t *testing.T) {
	api := createTestApi(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)

	api.sendResponse(w, r, models.ResponseModel{
		Code:        http.StatusOK,
		CurrentTime: 1234567890,
		Text:        "OK",
		Version:     2,
		Data:        map[string]string{"test": "data"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	decoded := decodeEnvelope(t, w)
	assert.Equal(t, http.StatusOK, decoded.Code)
	assert.Equal(t, "OK", decoded.Text)
	assert.Equal(t, 2, decoded.Version)
}

func TestSendNull(t *testing.T) {
	api := createTestApi(t)

	w := httptest.NewRecorder()
	api.sendNull(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "null", w.Body.String())
}

func TestErrorEnvelopes(t *testing.T) {
	api := createTestApi(t)

	tests := []struct {
		name        string
		send        func(http.ResponseWriter, *http.Request)
		wantCode    int
		wantText    string
		wantVersion int
	}{
		{"not found", api.sendNotFound, http.StatusNotFound, "resource not found", 2},
		{"unauthorized", api.sendUnauthorized, http.StatusUnauthorized, "permission denied", 1},
		{"service unavailable", func(w http.ResponseWriter, r *http.Request) {
			api.sendError(w, r, http.StatusServiceUnavailable, "transit data temporarily unavailable")
		}, http.StatusServiceUnavailable, "transit data temporarily unavailable", 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tc.send(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, tc.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			response := decodeEnvelope(t, w)
			assert.Equal(t, tc.wantCode, response.Code)
			assert.Equal(t, tc.wantText, response.Text)
			assert.Equal(t, tc.wantVersion, response.Version)
			assert.Greater(t, response.CurrentTime, int64(0))
			assert.Nil(t, response.Data)
		})
	}
}

func TestSetJSONResponseType(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("Content-Type", "text/html")

	setJSONResponseType(w)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}
