package restapi

import (
	"encoding/json"
	"net/http"

	"peatus.ee/internal/models"
)

// Envelope texts clients are known to match on. Keep them stable.
const (
	textNotFound     = "resource not found"
	textUnauthorized = "permission denied"
)

func setJSONResponseType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
}

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	setJSONResponseType(w)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		api.serverErrorResponse(w, r, err)
	}
}

// sendNull answers 200 with a bare JSON null body.
func (api *RestAPI) sendNull(w http.ResponseWriter, r *http.Request) { // nolint:unused
	setJSONResponseType(w)
	if _, err := w.Write([]byte("null")); err != nil {
		api.serverErrorResponse(w, r, err)
	}
}

// sendEnvelope writes a data-less status envelope. Every error-shaped
// response funnels through here so the wire format stays uniform.
func (api *RestAPI) sendEnvelope(w http.ResponseWriter, r *http.Request, code int, text string, version int) {
	setJSONResponseType(w)
	w.WriteHeader(code)

	response := models.ResponseModel{
		Code:        code,
		CurrentTime: models.ResponseCurrentTime(api.Clock),
		Text:        text,
		Version:     version,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		api.serverErrorResponse(w, r, err)
	}
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	api.sendEnvelope(w, r, http.StatusNotFound, textNotFound, 2)
}

// sendUnauthorized still answers with the version 1 envelope.
func (api *RestAPI) sendUnauthorized(w http.ResponseWriter, r *http.Request) {
	api.sendEnvelope(w, r, http.StatusUnauthorized, textUnauthorized, 1)
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, message string) {
	api.sendEnvelope(w, r, code, message, 2)
}
