package webui

import (
	"net/http"

	"peatus.ee/internal/app"
)

// WebUI serves the operator-facing debug pages. It is not part of the
// JSON API surface and stays hidden in production.
type WebUI struct {
	*app.Application
}

func NewWebUI(application *app.Application) *WebUI {
	return &WebUI{Application: application}
}

func (webUI *WebUI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug", webUI.debugIndexHandler)
}
