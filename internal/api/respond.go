package api

import (
	"encoding/json"
	"log"
	"net/http"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

// respondBadRequest writes the 400 body used for malformed path identities.
func respondBadRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, map[string]string{"error": message})
}

// respondNotFound writes the 404 body. The message distinguishes a missing
// cart from a missing product and from a product absent in a cart.
func respondNotFound(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusNotFound, map[string]string{"mensaje": message})
}

// respondServerError maps any unanticipated fault to 500. Diagnostic detail
// is only exposed when the server was started with EXPOSE_ERROR_DETAIL=true.
func respondServerError(w http.ResponseWriter, err error, exposeDetail bool) {
	log.Printf("[API] Internal error: %v", err)
	body := map[string]string{"error": "Error interno del servidor."}
	if exposeDetail {
		body["detail"] = err.Error()
	}
	respondJSON(w, http.StatusInternalServerError, body)
}
