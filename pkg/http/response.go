package http

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response wrapper used by every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// WriteSuccess writes a 200 envelope with the given message and payload.
func WriteSuccess(w http.ResponseWriter, message string, data interface{}) {
	WriteEnvelope(w, http.StatusOK, true, message, data)
}

// WriteCreated writes a 201 envelope with the given message and payload.
func WriteCreated(w http.ResponseWriter, message string, data interface{}) {
	WriteEnvelope(w, http.StatusCreated, true, message, data)
}

// WriteEnvelope writes an arbitrary envelope response.
func WriteEnvelope(w http.ResponseWriter, statusCode int, success bool, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Encoding failures are not recoverable at this point; headers are sent.
	_ = json.NewEncoder(w).Encode(Envelope{
		Success: success,
		Message: message,
		Data:    data,
	})
}

// Error writers for consistency across handlers.

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteEnvelope(w, http.StatusBadRequest, false, message, nil)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteEnvelope(w, http.StatusUnauthorized, false, message, nil)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteEnvelope(w, http.StatusForbidden, false, message, nil)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteEnvelope(w, http.StatusNotFound, false, message, nil)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteEnvelope(w, http.StatusConflict, false, message, nil)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteEnvelope(w, http.StatusTooManyRequests, false, message, nil)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteEnvelope(w, http.StatusInternalServerError, false, message, nil)
}
