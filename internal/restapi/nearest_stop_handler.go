package restapi

import (
	"net/http"
	"strconv"

	"peatus.ee/gtfsdb"
	"peatus.ee/internal/models"
	"peatus.ee/internal/utils"
)

// nearestStopHandler finds the stop closest to a coordinate. Stops with
// unusable coordinates are skipped; ties keep the first stop in id order.
func (api *RestAPI) nearestStopHandler(w http.ResponseWriter, r *http.Request) {
	fieldErrors := map[string][]string{}

	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		fieldErrors["lat"] = []string{"lat must be a valid number"}
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		fieldErrors["lon"] = []string{"lon must be a valid number"}
	}
	if len(fieldErrors) == 0 && !utils.ValidCoordinates(lat, lon) {
		fieldErrors["lat"] = []string{"coordinates out of range"}
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	store := gtfsdb.NewStore(api.GtfsManager)
	stops, err := store.ListStops(r.Context())
	if err != nil {
		api.sendError(w, r, http.StatusServiceUnavailable, "transit data temporarily unavailable")
		return
	}

	found := false
	var nearest models.NearestStopData
	for _, stop := range stops {
		if !utils.ValidCoordinates(stop.Lat, stop.Lon) {
			continue
		}
		dist := utils.DistanceKm(lat, lon, stop.Lat, stop.Lon)
		if !found || dist < nearest.DistanceKm {
			found = true
			nearest = models.NearestStopData{
				Stop:       models.NewStopModel(stop),
				DistanceKm: dist,
			}
		}
	}

	if !found {
		api.sendNotFound(w, r)
		return
	}

	api.sendResponse(w, r, models.NewOKResponse(nearest, api.Clock))
}
