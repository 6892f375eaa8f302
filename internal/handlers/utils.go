package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/akolanti/DocScanAPI/internal/adapter"
	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

// WriteErrorResponse answers with a bare error envelope. The middleware uses it
// before a request reaches a handler.
func WriteErrorResponse(w http.ResponseWriter, httpCode int, code string, message string) {
	res := adapter.BadRequest(code, message)
	if httpCode == http.StatusUnauthorized {
		res.Kind = "UNAUTHORIZED"
	}
	if httpCode == http.StatusTooManyRequests {
		res.Kind = "RATE_LIMITED"
		res.Retry = true
	}
	writeJsonResponse(w, httpCode, res)
}

// writeError maps err onto its HTTP status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	log := logRH.WithContext(r.Context()).With("path", r.URL.Path, "status", status)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "error", err)
	} else {
		log.Debug("Request rejected", "error", err)
	}
	writeJsonResponse(w, status, adapter.ToErrorResponse(err))
}

func StatusFor(err error) int {
	switch appErrors.KindOf(err) {
	case appErrors.KindValidation:
		return http.StatusBadRequest
	case appErrors.KindConfiguration:
		return http.StatusServiceUnavailable
	case appErrors.KindUpstream:
		return http.StatusBadGateway
	case appErrors.KindNotFound:
		return http.StatusNotFound
	case appErrors.KindBusy:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.WithContext(ctx).Warn("context error", "error", ctx.Err())
		return false
	}
	return true
}

func userFrom(ctx context.Context) string {
	if user, ok := ctx.Value(config.USER_ID_KEY).(string); ok && user != "" {
		return user
	}
	return config.DefaultUserId
}

func traceFrom(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}

func decodeJSON(r *http.Request, target any) error {
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the request body", "error", err)
		}
	}(r.Body)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return appErrors.Validation("BAD_REQUEST_BODY", "the request body is not valid JSON")
	}
	return nil
}
