package restapi

import (
	"net/http"

	"peatus.ee/gtfsdb"
	"peatus.ee/internal/models"
)

// stopHandler returns one stop together with the routes serving it.
func (api *RestAPI) stopHandler(w http.ResponseWriter, r *http.Request) {
	stopID := r.PathValue("stopID")

	store := gtfsdb.NewStore(api.GtfsManager)
	stop, err := store.StopByID(r.Context(), stopID)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	if stop == nil {
		api.sendNotFound(w, r)
		return
	}

	routes, err := store.RoutesForStop(r.Context(), stopID)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	data := models.StopDetailsData{
		Stop:   models.NewStopModel(*stop),
		Routes: models.NewRouteModels(routes),
	}
	api.sendResponse(w, r, models.NewOKResponse(data, api.Clock))
}
