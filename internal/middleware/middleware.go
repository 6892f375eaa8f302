package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/DocScanAPI/internal/metrics"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	code         string
	errorMessage string
}

// Wrap runs trace, user, auth and rate limit checks before next and records the
// response status.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if !re.badRequest.isBadRequest {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(routeLabel(re.req), strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re = injectTrace(re)
	if !handleBadRequest(re) {
		return re
	}
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)
	re = injectUser(re)
	re = authenticate(re)
	if !handleBadRequest(re) {
		return re //stop if auth fails
	}
	re = rateLimiter(re)
	handleBadRequest(re)
	return re
}

// routeLabel prefers the route pattern so ids do not blow up the label set.
func routeLabel(r *http.Request) string {
	if r == nil {
		return ""
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
