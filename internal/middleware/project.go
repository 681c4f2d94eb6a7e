package middleware

import (
	"net/http"

	"valvx/internal/httputil"
)

// ProjectMiddleware scopes every request to a single project. Deployments
// that serve one project per instance set PROJECT_ID; requests then default
// to that project when they do not name one.
func ProjectMiddleware(projectID int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = httputil.WithProjectID(r, projectID)
			next.ServeHTTP(w, r)
		})
	}
}
