package app

import (
	"crypto/subtle"
	"net/http"
)

// RequestHasInvalidAPIKey reports whether the request's key query
// parameter fails to match any configured API key.
func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	return app.IsInvalidAPIKey(r.URL.Query().Get("key"))
}

// IsInvalidAPIKey checks key against the configured set. Comparison is
// constant-time so response timing does not leak key prefixes.
func (app *Application) IsInvalidAPIKey(key string) bool {
	if key == "" {
		return true
	}
	for _, validKey := range app.Config.ApiKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			return false
		}
	}
	return true
}
