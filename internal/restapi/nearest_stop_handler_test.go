package restapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"peatus.ee/internal/models"
)

func decodeNearestStopData(t *testing.T, model models.ResponseModel) models.NearestStopData {
	t.Helper()
	raw, err := json.Marshal(model.Data)
	require.NoError(t, err)
	var data models.NearestStopData
	require.NoError(t, json.Unmarshal(raw, &data))
	return data
}

func TestNearestStopHandlerRequiresCoordinates(t *testing.T) {
	_, resp, model := serveAndRetrieveEndpoint(t, "/api/stops/nearest.json?key=TEST")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation error", model.Text)
}

func TestNearestStopHandlerRejectsOutOfRangeCoordinates(t *testing.T) {
	_, resp, model := serveAndRetrieveEndpoint(t, "/api/stops/nearest.json?key=TEST&lat=100.0&lon=24.75")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation error", model.Text)
}

func TestNearestStopHandler(t *testing.T) {
	// A point next to Viru keskus; Balti jaam is about a kilometer away.
	_, resp, model := serveAndRetrieveEndpoint(t, "/api/stops/nearest.json?key=TEST&lat=59.4360&lon=24.7520")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeNearestStopData(t, model)
	assert.Equal(t, "1234", data.Stop.ID)
	assert.Equal(t, "Viru keskus", data.Stop.Name)
	assert.Less(t, data.DistanceKm, 0.1)
}

func TestNearestStopHandlerFartherPoint(t *testing.T) {
	// Near Balti jaam instead.
	_, resp, model := serveAndRetrieveEndpoint(t, "/api/stops/nearest.json?key=TEST&lat=59.4405&lon=24.7372")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeNearestStopData(t, model)
	assert.Equal(t, "5678", data.Stop.ID)
}
