package middleware

import (
	"crypto/subtle"
	"net/http"

	"retail-report-api/pkg/apierror"
	"retail-report-api/pkg/response"
)

// NewAdminKeyMiddleware guards data-mutating endpoints with a shared
// key presented in the X-Admin-Key header. An empty configured key
// disables the check, which is the development default.
func NewAdminKeyMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			given := r.Header.Get("X-Admin-Key")
			if subtle.ConstantTimeCompare([]byte(given), []byte(adminKey)) != 1 {
				response.Error(w, apierror.Unauthorized("invalid admin key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
