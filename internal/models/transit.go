package models

import "peatus.ee/internal/arrivals"

// StopModel describes one stop in API responses.
type StopModel struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Code   string  `json:"code,omitempty"`
	Region string  `json:"region,omitempty"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// RouteModel describes one route in API responses.
type RouteModel struct {
	ID        string `json:"id"`
	ShortName string `json:"shortName"`
	LongName  string `json:"longName,omitempty"`
}

// ArrivalsData is the payload of the arrivals endpoint.
type ArrivalsData struct {
	Stop     StopModel          `json:"stop"`
	Route    RouteModel         `json:"route"`
	Arrivals []arrivals.Arrival `json:"arrivals"`
}

// NearestStopData is the payload of the nearest-stop endpoint.
type NearestStopData struct {
	Stop       StopModel `json:"stop"`
	DistanceKm float64   `json:"distanceKm"`
}

// StopDetailsData is the payload of the stop details endpoint.
type StopDetailsData struct {
	Stop   StopModel    `json:"stop"`
	Routes []RouteModel `json:"routes"`
}

func NewStopModel(s arrivals.Stop) StopModel {
	return StopModel{
		ID:     s.ID,
		Name:   s.Name,
		Code:   s.Code,
		Region: s.Region,
		Lat:    s.Lat,
		Lon:    s.Lon,
	}
}

func NewRouteModel(r arrivals.Route) RouteModel {
	return RouteModel{
		ID:        r.ID,
		ShortName: r.ShortName,
		LongName:  r.LongName,
	}
}

func NewRouteModels(routes []arrivals.Route) []RouteModel {
	out := make([]RouteModel, 0, len(routes))
	for _, r := range routes {
		out = append(out, NewRouteModel(r))
	}
	return out
}

// NewArrivalsData builds the arrivals payload. The arrivals slice is never
// nil so an empty result serializes as [] rather than null.
func NewArrivalsData(res *arrivals.Result) ArrivalsData {
	list := res.Arrivals
	if list == nil {
		list = []arrivals.Arrival{}
	}
	return ArrivalsData{
		Stop:     NewStopModel(res.Stop),
		Route:    NewRouteModel(res.Route),
		Arrivals: list,
	}
}
