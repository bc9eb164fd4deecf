// Package response defines the canonical JSON envelope of the
// SitePulse REST API: {"success":bool,"data":...,"error":{code,message}}.
// The client decodes it and the in-process test backend emits it.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Envelope is the wire shape of every API response.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodeData unmarshals the envelope's data field into v. A failed
// envelope decodes to an error carrying the server's code and message.
func (e *Envelope) DecodeData(v interface{}) error {
	if !e.Success {
		if e.Error != nil {
			return fmt.Errorf("api error %s: %s", e.Error.Code, e.Error.Message)
		}
		return fmt.Errorf("api error: success=false with no error info")
	}
	if v == nil || len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// JSON sends a success envelope with the given status and data.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}
	json.NewEncoder(w).Encode(Envelope{
		Success: status >= 200 && status < 300,
		Data:    raw,
	})
}

// Error sends an error envelope
func Error(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(Envelope{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest sends a 400 response
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, "BAD_REQUEST", message)
}

// Unauthorized sends a 401 response
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// NotFound sends a 404 response
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, "NOT_FOUND", message)
}

// InternalError sends a 500 response
func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

// Created sends a 201 response with data
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// OK sends a 200 response with data
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}
