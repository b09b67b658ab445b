package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/fleet-dispatch/internal/faults"
)

// apiResponse is the uniform HTTP envelope: status 1 for success (and the
// unauthorized ack), 0 otherwise. The HTTP code carries the outcome
// category.
type apiResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, code int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func respondSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, apiResponse{Status: 1, Message: message, Data: data})
}

func respondFailed(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, apiResponse{Status: 0, Message: message})
}

func respondUnavailable(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusNotFound, apiResponse{Status: 0, Message: message})
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusForbidden, apiResponse{Status: 1, Message: message})
}

func respondError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusInternalServerError, apiResponse{Status: 0, Message: message})
}

// respondFault maps the error taxonomy onto the outcome categories.
func respondFault(w http.ResponseWriter, err error) {
	var (
		ve *faults.ValidationError
		nf *faults.NotFoundError
		ce *faults.ConflictError
		nc *faults.NoCandidatesError
	)
	switch {
	case errors.As(err, &nf):
		respondUnavailable(w, err.Error())
	case errors.As(err, &ve), errors.As(err, &ce), errors.As(err, &nc):
		respondFailed(w, err.Error())
	default:
		respondError(w, err.Error())
	}
}
