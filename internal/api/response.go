package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// maxRequestBodySize is the maximum allowed size of a request body (64 KB).
const maxRequestBodySize = 64 << 10

// errorResponse is the envelope for all error responses.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// apiError is an error with a client-safe message and status.
type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string { return e.message }

func badRequest(code, format string, args ...any) *apiError {
	return &apiError{status: http.StatusBadRequest, code: code, message: fmt.Sprintf(format, args...)}
}

// writeJSON writes data with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"internal","message":"failed to marshal response"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps err to a response. Only *apiError messages reach the
// client; anything else becomes a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	detail := errorDetail{RequestID: middleware.GetReqID(r.Context())}

	var apiErr *apiError
	if errors.As(err, &apiErr) {
		detail.Code = apiErr.code
		detail.Message = apiErr.message
		writeJSON(w, apiErr.status, errorResponse{Error: detail})
		return
	}

	detail.Code = "internal"
	detail.Message = "an unexpected error occurred"
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: detail})
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("invalid_json", "request body is empty")
		}
		return badRequest("invalid_json", "request body is not valid JSON: %v", err)
	}
	if dec.More() {
		return badRequest("invalid_json", "request body must contain a single JSON object")
	}
	return nil
}
