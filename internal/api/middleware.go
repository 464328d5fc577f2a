/**
 * @description
 * Request middleware for the settlement API. The admin control surface sits
 * behind a shared internal key; real user authentication lives in the
 * surrounding web application, not in this engine.
 */
package api

import "net/http"

// InternalAuthMiddleware validates the internal API key for
// server-to-server calls. An empty configured key disables the check
// (local development).
func InternalAuthMiddleware(requiredKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiredKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-Internal-API-Key")
			if provided == "" || provided != requiredKey {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
