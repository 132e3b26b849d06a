package middleware

import (
	"mime"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
)

// idPattern admits ULIDs and the fixed seed identifiers.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidID reports whether s can be an entity identifier.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}

// ValidateIDParam rejects requests whose chi URL parameter name is not a
// well-formed identifier with 404, before any storage lookup.
func ValidateIDParam(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ValidID(chi.URLParam(r, name)) {
				WriteError(w, http.StatusNotFound, CodeNotFound, "resource not found")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireJSON rejects POST, PUT and PATCH requests whose body is not
// declared as application/json.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				WriteError(w, http.StatusUnsupportedMediaType, CodeUnsupportedMedia, "content type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
