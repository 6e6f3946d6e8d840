package respond

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hongminglow/access-web-be/internal/apperr"
	"github.com/hongminglow/access-web-be/internal/logging"
	"github.com/hongminglow/access-web-be/internal/redact"
)

// Envelope is the success wrapper used by handlers that return data.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes payload as-is.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes {success:true, data}.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// Message writes {success:true, message}.
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: true, Message: message})
}

// Error writes {success:false, error:{message, code, ...details}}. Errors
// without a client-facing code are logged (redacted) and reported as a
// generic 500 so internals never reach the client.
func Error(ctx context.Context, w http.ResponseWriter, log logging.Logger, err error) {
	status := apperr.Status(err)
	body := map[string]any{}

	if ae, ok := apperr.As(err); ok {
		for k, v := range ae.Details {
			body[k] = v
		}
		body["message"] = ae.Message
		body["code"] = ae.Code
		if status >= http.StatusInternalServerError {
			log.Error(ctx, "request failed", "status", status, "code", ae.Code, "error", redact.Error(err))
		}
	} else {
		if status == http.StatusInternalServerError {
			log.Error(ctx, "unhandled error", "error", redact.Error(err))
			body["message"] = "Internal server error."
			body["code"] = apperr.CodeInternal
		} else {
			body["message"] = http.StatusText(status)
			body["code"] = defaultCode(status)
		}
	}

	JSON(w, status, map[string]any{"success": false, "error": body})
}

// BadRequest reports a malformed request body.
func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, map[string]any{
		"success": false,
		"error":   map[string]any{"message": message, "code": apperr.CodeValidation},
	})
}

func defaultCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apperr.CodeValidation
	case http.StatusUnauthorized:
		return apperr.CodeUnauthenticated
	case http.StatusForbidden:
		return apperr.CodeInsufficientPermissions
	case http.StatusNotFound:
		return apperr.CodeNotFound
	case http.StatusPaymentRequired:
		return apperr.CodeUpgradeRequired
	default:
		return apperr.CodeInternal
	}
}
