// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/dhtnode/internal/log"
	"github.com/ManuGH/dhtnode/internal/metrics"
)

// unthrottledPaths bypass the limiter.
var unthrottledPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// RateLimit limits header and API fetches per client IP to requests per window
// using httprate's sliding window counter. Rejected requests get a JSON 429
// carrying the request ID and a Retry-After in whole seconds.
func RateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(window.Round(time.Second) / time.Second))

	limiter := httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.HTTPRateLimitedTotal.Inc()

			reqID := w.Header().Get(HeaderRequestID)
			logger := log.WithContext(r.Context(), log.WithComponent("ratelimit"))
			logger.Warn().
				Str(log.FieldEvent, "http.rate_limited").
				Str(log.FieldRemote, r.RemoteAddr).
				Str("path", r.URL.Path).
				Msg("client exceeded request budget")

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":     "rate_limit_exceeded",
				"requestId": reqID,
				"detail":    "Too many config requests from this address.",
			})
		}),
	)

	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := unthrottledPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}
