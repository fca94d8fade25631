package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/oppwatch/gateway/core/gateway"
	"github.com/oppwatch/gateway/core/logger"
	"github.com/oppwatch/gateway/core/upstream"
)

// HTTPError is the structured error envelope returned to clients.
type HTTPError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Code + ": " + e.Message
}

func badRequest(message string, details map[string]any) HTTPError {
	return HTTPError{
		Status:  http.StatusBadRequest,
		Code:    "INVALID_ARGUMENT",
		Message: message,
		Details: details,
	}
}

// fromFetchError maps a gateway error to its HTTP envelope and any extra
// response headers.
func fromFetchError(err error) (HTTPError, http.Header) {
	if rle, ok := gateway.AsRateLimitError(err); ok {
		hdr := http.Header{}
		hdr.Set("Retry-After", strconv.Itoa(ceilSeconds(rle.RetryAfter.Seconds())))
		return HTTPError{
			Status:  http.StatusTooManyRequests,
			Code:    "RATE_LIMITED",
			Message: "local request budget exhausted",
			Details: map[string]any{"retry_after_seconds": rle.RetryAfter.Seconds()},
		}, hdr
	}

	switch {
	case upstream.IsRateLimited(err):
		retryAfter := upstream.RetryAfterOf(err)
		hdr := http.Header{}
		hdr.Set("Retry-After", strconv.Itoa(ceilSeconds(retryAfter.Seconds())))
		return HTTPError{
			Status:  http.StatusTooManyRequests,
			Code:    "UPSTREAM_RATE_LIMITED",
			Message: "upstream quota exhausted",
			Details: map[string]any{"retry_after_seconds": retryAfter.Seconds()},
		}, hdr
	case upstream.IsAuth(err):
		return HTTPError{
			Status:  http.StatusBadGateway,
			Code:    "UPSTREAM_AUTH",
			Message: "upstream rejected the gateway's credentials",
		}, nil
	case upstream.IsLocal(err):
		return HTTPError{
			Status:  http.StatusBadGateway,
			Code:    "UPSTREAM_BAD_RESPONSE",
			Message: "upstream returned an unusable payload",
		}, nil
	case upstream.IsTransient(err):
		return HTTPError{
			Status:  http.StatusBadGateway,
			Code:    "UPSTREAM_ERROR",
			Message: "upstream is failing",
		}, nil
	}

	if errors.Is(err, gateway.ErrUnavailable) {
		return HTTPError{
			Status:  http.StatusServiceUnavailable,
			Code:    "UPSTREAM_UNAVAILABLE",
			Message: "upstream unavailable and no stored results for this query",
		}, nil
	}
	return HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: "internal error",
	}, nil
}

func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, httpErr HTTPError, extra http.Header) {
	for k, vs := range extra {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	if httpErr.Status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			logger.Component("api"), logger.Path(r.URL.Path), logger.StatusCode(httpErr.Status))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(httpErr.Status)
	_ = json.NewEncoder(w).Encode(httpErr)
}

func ceilSeconds(s float64) int {
	n := int(math.Ceil(s))
	if n < 1 {
		return 1
	}
	return n
}
