package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"labelcam/internal/logger"
	"labelcam/internal/service/ai"
	"labelcam/internal/service/servicetest"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		cookie   bool
		header   string
		expected int
	}{
		{"login page", "/login", false, "", http.StatusTeapot},
		{"login form", "/auth/login", false, "", http.StatusTeapot},
		{"static asset", "/static/app.js", false, "", http.StatusTeapot},
		{"page without cookie", "/", false, "", http.StatusSeeOther},
		{"api without cookie", "/api/status", false, "", http.StatusUnauthorized},
		{"ajax without cookie", "/logs/info", false, "XMLHttpRequest", http.StatusUnauthorized},
		{"page with cookie", "/", true, "", http.StatusTeapot},
		{"api with cookie", "/api/review", true, "", http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie {
				req.AddCookie(&http.Cookie{Name: "authenticated", Value: "true"})
			}
			if tt.header != "" {
				req.Header.Set("X-Requested-With", tt.header)
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(okHandler).ServeHTTP(rec, req)

			if rec.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, rec.Code)
			}
			if tt.expected == http.StatusSeeOther && rec.Header().Get("Location") != "/login" {
				t.Errorf("Expected redirect to /login, got %s", rec.Header().Get("Location"))
			}
		})
	}
}

func TestAuthMiddleware_WrongCookieValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.AddCookie(&http.Cookie{Name: "authenticated", Value: "yes"})
	rec := httptest.NewRecorder()

	AuthMiddleware(okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func serveReady(r *ai.Readiness) (*httptest.ResponseRecorder, map[string]string) {
	rec := httptest.NewRecorder()
	RequireModel(r)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/review", nil))

	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestRequireModel(t *testing.T) {
	t.Run("loading", func(t *testing.T) {
		rec, body := serveReady(ai.NewReadiness())
		if rec.Code != http.StatusServiceUnavailable || body["model"] != "loading" {
			t.Errorf("Expected 503 loading, got %d %v", rec.Code, body)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Error("Expected Retry-After while loading")
		}
	})

	t.Run("failed", func(t *testing.T) {
		r := ai.NewReadiness()
		r.Warmup(context.Background(), &servicetest.Detector{LoadErr: errors.New("bad graph")}, logger.NewNop())

		rec, body := serveReady(r)
		if rec.Code != http.StatusServiceUnavailable || body["model"] != "failed" || body["error"] != "bad graph" {
			t.Errorf("Expected 503 failed, got %d %v", rec.Code, body)
		}
	})

	t.Run("ready", func(t *testing.T) {
		r := ai.NewReadiness()
		r.Warmup(context.Background(), &servicetest.Detector{}, logger.NewNop())

		if rec, _ := serveReady(r); rec.Code != http.StatusTeapot {
			t.Errorf("Expected request passed through, got %d", rec.Code)
		}
	})
}
