package restapi

import (
	"net/http"

	"peatus.ee/internal/models"
)

// currentTimeHandler reports the server's current time. Clients use it
// to sync their countdown displays against the scheduled arrivals.
func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	if !api.GtfsManager.IsHealthy() {
		http.Error(w, "Service Unavailable: transit data invalid", http.StatusServiceUnavailable)
		return
	}

	timeData := models.NewCurrentTimeData(api.Clock.Now())
	api.sendResponse(w, r, models.NewOKResponse(timeData, api.Clock))
}
