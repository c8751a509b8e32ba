package gtfs

import (
	"peatus.ee/internal/appconf"
)

// Config holds GTFS configuration for the manager.
type Config struct {
	GtfsURL               string
	StaticAuthHeaderKey   string
	StaticAuthHeaderValue string
	GTFSDataPath          string
	Env                   appconf.Environment
	Verbose               bool
}

// FromSettings builds a Config from environment-derived settings.
func FromSettings(s appconf.GtfsSettings, env appconf.Environment, verbose bool) Config {
	return Config{
		GtfsURL:               s.URL,
		StaticAuthHeaderKey:   s.StaticAuthHeaderKey,
		StaticAuthHeaderValue: s.StaticAuthHeaderValue,
		GTFSDataPath:          s.DataPath,
		Env:                   env,
		Verbose:               verbose,
	}
}
