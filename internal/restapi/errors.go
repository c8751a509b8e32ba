package restapi

import (
	"net/http"

	"peatus.ee/internal/logging"
	"peatus.ee/internal/models"
)

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(api.Logger, "server error", err)
	http.Error(w, "the server encountered a problem and could not process your request", http.StatusInternalServerError)
}

func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	setJSONResponseType(w)
	w.WriteHeader(http.StatusBadRequest)

	response := models.ResponseModel{
		Code:        http.StatusBadRequest,
		CurrentTime: models.ResponseCurrentTime(api.Clock),
		Data:        map[string]interface{}{"fieldErrors": fieldErrors},
		Text:        "validation error",
		Version:     2,
	}

	api.sendResponse(w, r, response)
}