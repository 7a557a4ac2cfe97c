// Package httputil maps domain errors to HTTP responses.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "sigillum/pkg/domain-errors"
	"sigillum/pkg/requestcontext"
)

// ErrorResponse is the uniform error envelope. Reason carries the
// machine-readable ledger reason code when one applies; internal errors omit
// the description so storage details never leak to callers.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Reason           string `json:"reason,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

var statusByCode = map[dErrors.ErrorCode]int{
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeForbidden:          http.StatusForbidden,
	dErrors.CodeTimeout:            http.StatusGatewayTimeout,
	dErrors.CodeInvariantViolation: http.StatusConflict,
	dErrors.CodeInternal:           http.StatusInternalServerError,
}

// WriteError renders err as a JSON error response.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorWithRequestID(w, err, "")
}

// WriteErrorWithRequestID renders err and attaches the request correlation id
// so a failed attempt can be traced end-to-end.
func WriteErrorWithRequestID(w http.ResponseWriter, err error, requestID string) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	resp := ErrorResponse{
		Error:     string(code),
		Reason:    dErrors.ReasonOf(err),
		RequestID: requestID,
	}
	if code != dErrors.CodeInternal {
		resp.ErrorDescription = errMessage(err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func errMessage(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RequestIDFrom is a convenience for handlers writing errors.
func RequestIDFrom(r *http.Request) string {
	return requestcontext.RequestID(r.Context())
}
