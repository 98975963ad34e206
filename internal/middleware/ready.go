package middleware

import (
	"encoding/json"
	"net/http"

	"labelcam/internal/service/ai"
)

// RequireModel answers 503 until the detection model is ready. The body
// tells the page whether to keep showing the loading indicator.
func RequireModel(readiness *ai.Readiness) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, err := readiness.Status()
			if state == ai.ModelReady {
				next.ServeHTTP(w, r)
				return
			}

			body := map[string]string{"model": string(state)}
			if err != nil {
				body["error"] = err.Error()
			} else {
				w.Header().Set("Retry-After", "1")
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(body)
		})
	}
}
