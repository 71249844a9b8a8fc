package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := AuthMiddleware(ok)

	tests := []struct {
		name     string
		path     string
		cookie   string
		wantCode int
	}{
		{"login page is public", "/login", "", http.StatusOK},
		{"static is public", "/static/app.js", "", http.StatusOK},
		{"api without cookie", "/api/camera/status", "", http.StatusUnauthorized},
		{"page without cookie redirects", "/", "", http.StatusSeeOther},
		{"wrong cookie value", "/api/camera/status", "false", http.StatusUnauthorized},
		{"authenticated", "/api/camera/status", "true", http.StatusOK},
		{"authenticated page", "/gallery", "true", http.StatusOK},
		{"auth endpoint is public", "/auth/login", "", http.StatusOK},
		{"logout needs login", "/auth/logout", "", http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: Cookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestAuthMiddleware_JSONRequestGets401(t *testing.T) {
	h := AuthMiddleware(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodPost, "/gallery", nil)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
