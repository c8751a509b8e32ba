package restapi

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"peatus.ee/gtfsdb"
	"peatus.ee/internal/app"
	"peatus.ee/internal/appconf"
	"peatus.ee/internal/arrivals"
	"peatus.ee/internal/clock"
	"peatus.ee/internal/gtfs"
	"peatus.ee/internal/metrics"
	"peatus.ee/internal/models"
	"peatus.ee/internal/servicedate"
)

// buildTestFeed writes a small feed zip covering two stops and one route
// that runs every day of 2025. Arrival times include one past-midnight
// entry so resolver behavior is observable through the API.
func buildTestFeed(t *testing.T) string {
	t.Helper()

	files := map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			"tlt,Tallinna Linnatransport,https://transport.tallinn.ee,Europe/Tallinn\n",
		"stops.txt": "stop_id,stop_name,stop_desc,stop_lat,stop_lon,zone_id\n" +
			"1234,Viru keskus,\"Tallinn, Kesklinn\",59.4357,24.7515,tln\n" +
			"5678,Balti jaam,\"Tallinn, Pohja-Tallinn\",59.4404,24.7370,tln\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
			"r-10a,tlt,10A,Kesklinn - Oismae,3\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"daily,1,1,1,1,1,1,1,20250101,20251231\n",
		"trips.txt": "route_id,service_id,trip_id,trip_headsign,direction_id\n" +
			"r-10a,daily,trip-1,Oismae,0\n" +
			"r-10a,daily,trip-2,Oismae,1\n" +
			"r-10a,daily,trip-3,Oismae,\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"trip-1,08:15:00,08:15:00,1234,1\n" +
			"trip-2,09:30:00,09:30:00,1234,1\n" +
			"trip-3,24:10:00,24:10:00,1234,1\n",
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "feed.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func createTestApi(t *testing.T) *RestAPI {
	t.Helper()
	return createTestApiWithClock(t, clock.RealClock{})
}

func createTestApiWithClock(t *testing.T, clk clock.Clock) *RestAPI {
	t.Helper()

	cfg := appconf.Config{
		Env:       appconf.Test,
		ApiKeys:   []string{"TEST"},
		RateLimit: 100,
		Timezone:  appconf.DefaultTimezone,
	}

	gtfsCfg := gtfs.Config{
		GtfsURL:      buildTestFeed(t),
		GTFSDataPath: ":memory:",
		Env:          appconf.Test,
	}

	manager, err := gtfs.InitGTFSManager(gtfsCfg)
	require.NoError(t, err)

	provider, err := servicedate.NewProvider(clk, cfg.Timezone)
	require.NoError(t, err)

	application := &app.Application{
		Config:      cfg,
		GtfsConfig:  gtfsCfg,
		GtfsManager: manager,
		Clock:       clk,
		Provider:    provider,
		Resolver:    arrivals.NewResolver(gtfsdb.NewStore(manager), nil),
		Metrics:     metrics.New(),
	}

	api := NewRestAPI(application)
	t.Cleanup(api.Shutdown)
	return api
}

func serveAndRetrieveEndpoint(t *testing.T, path string) (*RestAPI, *http.Response, models.ResponseModel) {
	t.Helper()
	api := createTestApi(t)
	resp, model := serveApiAndRetrieveEndpoint(t, api, path)
	return api, resp, model
}

func serveApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, path string) (*http.Response, models.ResponseModel) {
	t.Helper()

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var model models.ResponseModel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&model))
	return resp, model
}
