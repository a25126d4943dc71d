package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dukerupert/chorebridge/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeRes wraps v in the {"res": ...} envelope every API response uses.
func writeRes(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, map[string]any{"res": v})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.APIError{Error: msg, Code: status})
}

// writeValidation reports every field problem in details.
func writeValidation(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	details := make(map[string]any, len(ve.Problems))
	for _, p := range ve.Problems {
		details[p.Field] = p.Message
	}
	writeJSON(w, http.StatusBadRequest, model.APIError{Error: ve.Error(), Code: http.StatusBadRequest, Details: details})
}

func parseIDParam(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("id"))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}
