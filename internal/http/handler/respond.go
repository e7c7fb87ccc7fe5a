package handler

import (
	"encoding/json"
	"net/http"

	"driftbottle/internal/logging"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondInternal logs the failure server-side and returns a generic message.
func respondInternal(w http.ResponseWriter, err error) {
	logging.Log.WithError(err).Error("internal error")
	respondError(w, http.StatusInternalServerError, "internal server error")
}

// decodeJSON rejects malformed bodies and unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
