package restapi

import (
	"net/http"

	"peatus.ee/internal/arrivals"
	"peatus.ee/internal/models"
)

// arrivalsHandler serves the next scheduled arrivals of one route at one
// stop. A stop with no remaining arrivals in the horizon is a 200 with an
// empty list; unknown stop and unknown route are distinct 404s.
func (api *RestAPI) arrivalsHandler(w http.ResponseWriter, r *http.Request) {
	stopID := r.PathValue("stopID")
	routeShortName := r.URL.Query().Get("route")

	if routeShortName == "" {
		api.validationErrorResponse(w, r, map[string][]string{
			"route": {"route is required"},
		})
		return
	}

	result, err := api.Resolver.ResolveArrivals(r.Context(), stopID, routeShortName, api.Provider.Now())
	if err != nil {
		if nf, ok := arrivals.AsNotFound(err); ok {
			switch nf.Kind {
			case arrivals.NotFoundStop:
				api.countArrivalLookup("stop_not_found")
				api.sendError(w, r, http.StatusNotFound, "stop not found")
			default:
				api.countArrivalLookup("route_not_found")
				api.sendError(w, r, http.StatusNotFound, "route not found")
			}
			return
		}

		api.countArrivalLookup("error")
		api.sendError(w, r, http.StatusServiceUnavailable, "transit data temporarily unavailable")
		return
	}

	api.countArrivalLookup("ok")
	api.sendResponse(w, r, models.NewOKResponse(models.NewArrivalsData(result), api.Clock))
}

func (api *RestAPI) countArrivalLookup(outcome string) {
	if api.Metrics != nil {
		api.Metrics.ArrivalLookupsTotal.WithLabelValues(outcome).Inc()
	}
}
