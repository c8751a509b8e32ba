package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"peatus.ee/gtfsdb"
	"peatus.ee/internal/appconf"
)

//go:embed debug_index.html
var templateFS embed.FS

type debugData struct {
	Title string
	Pre   string
}

type feedStatus struct {
	Healthy     bool
	LastUpdated string
	StopCount   int
}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	content := spew.Sdump(data)
	w.Header().Set("Content-Type", "text/html")
	tmpl, err := template.ParseFS(templateFS, "debug_index.html")
	if err != nil {
		slog.Error("failed to parse debug template", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	dataStruct := debugData{
		Title: title,
		Pre:   content,
	}

	if err := tmpl.Execute(w, dataStruct); err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	store := gtfsdb.NewStore(webUI.GtfsManager)

	switch r.URL.Query().Get("dataType") {
	case "stops":
		stops, err := store.ListStops(r.Context())
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeDebugData(w, "Stops", stops)
	default:
		stops, err := store.ListStops(r.Context())
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeDebugData(w, "Feed Status", feedStatus{
			Healthy:     webUI.GtfsManager.IsHealthy(),
			LastUpdated: webUI.GtfsManager.LastUpdated().String(),
			StopCount:   len(stops),
		})
	}
}
