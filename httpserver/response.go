package httpserver

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Response is the envelope of every JSON answer. It has the same shape as the
// backend's wrapped responses, so clients of the backend can read it too.
//
//	{"success": false, "message": "one or more checks failed", "errors": ["breakers: open: /plants"]}
type Response[T any] struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    T        `json:"data"`
	Errors  []string `json:"errors,omitempty"`
}

// WriteJSON writes response with the given status code. An encoding failure
// is logged, since the header has already been sent.
func WriteJSON[T any](w http.ResponseWriter, statusCode int, response Response[T]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().
			Err(err).
			Int("status_code", statusCode).
			Msg("failed to encode JSON response")
	}
}

// WriteError writes a failed envelope with no data.
func WriteError(w http.ResponseWriter, statusCode int, message string, errs ...string) {
	WriteJSON(w, statusCode, Response[any]{
		Message: message,
		Errors:  errs,
	})
}

// WriteSuccess writes a successful envelope carrying data.
func WriteSuccess[T any](w http.ResponseWriter, statusCode int, data T, message string) {
	WriteJSON(w, statusCode, Response[T]{
		Success: true,
		Message: message,
		Data:    data,
	})
}
