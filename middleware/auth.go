package middleware

import (
	"net/http"
	"time"

	"bookreview_server/auth"
	"bookreview_server/helpers"
	"bookreview_server/logging"
	"bookreview_server/services"

	"github.com/go-chi/httprate"
)

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// RequireAuth rejects requests without a valid bearer token with 401 and
// stores the user id on the context of those that have one.
func RequireAuth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err == nil {
				var userID string
				if userID, err = authenticator.Authenticate(token); err == nil {
					next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
					return
				}
			}
			logging.Ctx(r.Context()).Debug().Err(err).Msg("unauthenticated request")
			helpers.WriteError(w, r, &services.Error{Kind: services.KindUnauthorized, Op: "auth", Msg: "authentication required", Err: err})
		})
	}
}

// RateLimitByIP limits each client IP to requests per window.
func RateLimitByIP(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			helpers.WriteJSONResponse(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}),
	)
}
