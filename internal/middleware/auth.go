package middleware

import (
	"net/http"
	"strings"
)

// Cookie is the name of the cookie set after a successful login.
const Cookie = "authenticated"

// Ścieżki dostępne bez logowania
var publicPaths = map[string]bool{
	"/login":      true,
	"/auth/login": true,
}

func isPublic(path string) bool {
	return publicPaths[path] || strings.HasPrefix(path, "/static/")
}

// isAPI reports whether the request expects a status code rather than a redirect.
func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// AuthMiddleware lets through public paths and requests carrying the login cookie.
// Other API calls get 401, page requests are redirected to /login.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if cookie, err := r.Cookie(Cookie); err == nil && cookie.Value == "true" {
			next.ServeHTTP(w, r)
			return
		}

		if isAPI(r) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}
