// Package response centralizes the gateway's JSON wire formats. Errors
// serialize as {"detail": "..."} with a stable, non-leaking message.
package response

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Detail string `json:"detail"`
}

// JSON writes a 200 response with the given body.
func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, data)
}

// Created writes a 201 response with the given body.
func Created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, data)
}

// Error writes an error response. detail must be safe to show to callers;
// internal error detail belongs in logs, not here.
func Error(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
