package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"treeservice/pkg/auth"
	"treeservice/pkg/common"
	pkgerrors "treeservice/pkg/errors"
)

// RateLimit rejects requests once the caller's bucket is empty. Callers are
// keyed by user when one is known and by client IP otherwise, so it must run
// after Authenticate or Identify.
func RateLimit(limiter auth.RateLimiter, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + getClientIP(r)
			if userID, ok := common.GetUserID(r.Context()); ok {
				key = "user:" + userID
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				// Fail open; the limiter is advisory.
				logger.Error("Rate limiter error", zap.Error(err), zap.String("key", key))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				errs.Handle(w, r, pkgerrors.NewRateLimitError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
