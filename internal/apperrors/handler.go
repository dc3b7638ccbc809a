package apperrors

import (
	"encoding/json"
	"log"
	"net/http"
)

// Response is the JSON envelope written for every error.
type Response struct {
	Error   Detail `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// Detail carries the classified error information.
type Detail struct {
	Type    string         `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Handler writes AppError values as JSON responses and optionally logs
// them.
type Handler struct {
	LogErrors bool
}

// NewHandler constructs a Handler.
func NewHandler(logErrors bool) *Handler {
	return &Handler{LogErrors: logErrors}
}

// Handle writes err (wrapping unknown errors as internal) as a JSON
// response with the matching status code.
func (h *Handler) Handle(w http.ResponseWriter, err error, traceID string) {
	w.Header().Set("Content-Type", "application/json")

	appErr, ok := err.(*AppError)
	if !ok {
		appErr = InternalErrorf("INTERNAL_ERROR", "an unexpected error occurred").Wrap(err)
	}

	if h.LogErrors {
		log.Printf("[ERROR] trace_id=%s type=%s code=%s message=%s", traceID, appErr.Type, appErr.Code, appErr.Message)
	}

	w.WriteHeader(appErr.StatusCode)
	resp := Response{
		TraceID: traceID,
		Error: Detail{
			Type:    string(appErr.Type),
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
	}
	_ = json.NewEncoder(w).Encode(resp)
}
