package middleware

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/akolanti/DocScanAPI/internal/adapter/utils"
	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/handlers"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
)

var (
	authMu       sync.RWMutex
	authToken    string
	noAuthBypass bool
)

// Configure sets the bearer token every request must carry.
func Configure(settings config.Settings) {
	authMu.Lock()
	defer authMu.Unlock()
	authToken = settings.AuthToken
	noAuthBypass = settings.NoAuthBypass
}

func injectTrace(re requestResponseStruct) requestResponseStruct {
	req := re.req
	if req == nil {
		//this is a bad request
		re.badRequest.httpCode = http.StatusBadRequest
		re.badRequest.code = "BAD_REQUEST"
		re.badRequest.errorMessage = "request is empty"
		re.badRequest.isBadRequest = true
		return re
	}
	trace := req.Header.Get("X-Trace-Id")
	if trace == "" {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With("traceId", trace)
	ctx := context.WithValue(req.Context(), config.TRACE_ID_KEY, trace)
	req.Header.Set("X-Trace-Id", trace)
	re.writer.Header().Set("X-Trace-Id", trace)
	re.req = req.WithContext(ctx)
	return re
}

// injectUser takes the caller from X-User-Id. Identity is asserted by the
// gateway in front of this service.
func injectUser(re requestResponseStruct) requestResponseStruct {
	user := strings.TrimSpace(re.req.Header.Get("X-User-Id"))
	if user == "" {
		user = config.DefaultUserId
	}
	re.logger = re.logger.With("userId", user)
	re.req = re.req.WithContext(context.WithValue(re.req.Context(), config.USER_ID_KEY, user))
	return re
}

func authenticate(re requestResponseStruct) requestResponseStruct {
	if !IsValidBearerToken(re.req.Header.Get("Authorization"), re.logger) {
		re.badRequest.isBadRequest = true
		re.badRequest.errorMessage = "invalid or missing bearer token"
		re.badRequest.httpCode = http.StatusUnauthorized
		re.badRequest.code = "UNAUTHORIZED"
		return re
	}
	re.logger.Debug("Authorized")
	return re
}

func IsValidBearerToken(authHeader string, log *logger_i.Logger) bool {
	authMu.RLock()
	token, bypass := authToken, noAuthBypass
	authMu.RUnlock()

	if bypass {
		log.Debug("auth bypass enabled")
		return true
	}
	if authHeader == "" {
		log.Warn("Empty authorization header")
		return false
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		log.Warn("No Bearer header")
		return false
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(authHeader, "Bearer ")), []byte(token)) != 1 {
		log.Warn("Invalid authorization header")
		return false
	}
	return true
}

func rateLimiter(re requestResponseStruct) requestResponseStruct {
	ip, _, err := net.SplitHostPort(re.req.RemoteAddr)
	if err != nil {
		ip = re.req.RemoteAddr
	}

	if !limiterInstance.GetLimiter(ip).Allow() {
		re.logger.Warn("Too many requests", "ip", ip)
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusTooManyRequests,
			code:         "RATE_LIMITED",
			errorMessage: "Rate limit exceeded, slow down",
		}
	}
	return re
}

// handleBadRequest answers a rejected request and reports whether it may continue.
func handleBadRequest(re requestResponseStruct) bool {
	if re.badRequest.isBadRequest {
		remote := ""
		if re.req != nil {
			remote = re.req.RemoteAddr
		}
		re.logger.Warn("Bad request", "httpCode", re.badRequest.httpCode, "errorMessage", re.badRequest.errorMessage, "IP", remote)
		handlers.WriteErrorResponse(re.writer, re.badRequest.httpCode, re.badRequest.code, re.badRequest.errorMessage)
		return false
	}
	return true
}
