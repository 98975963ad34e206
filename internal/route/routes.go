package route

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"labelcam/internal/config"
	"labelcam/internal/handler"
	"labelcam/internal/logger"
	"labelcam/internal/middleware"
	"labelcam/internal/service"
)

// dynamicHTMLHandler serves /path as <staticDir>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving and API endpoints
// behind the authentication middleware.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.AuthMiddleware)

	// Static files
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// API endpoints
	r.Get("/api/status", handler.StatusHandler(manager, logger))
	r.Get("/api/labels", handler.LabelsHandler(manager, logger))
	r.Get("/api/labels/classes", handler.LabelClassesHandler(manager, logger))

	// Everything driven by the detector waits for the model.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireModel(manager.Readiness()))

		r.Get("/api/live", handler.LiveWebsocketHandler(manager, logger))
		r.Route("/api/review", func(r chi.Router) {
			r.Get("/", handler.ReviewHandler(manager, logger))
			r.Get("/frame", handler.ReviewFrameHandler(manager, logger))
			r.Post("/label", handler.AssignLabelHandler(manager, logger))
			r.Post("/next", handler.NextFrameHandler(manager, logger))
		})
	})

	// Log endpoints
	r.Get("/logs/{level}", handler.ShowLogsHandler(cfg))
	r.Post("/logs/{level}/clear", handler.ClearLogsHandler(logger))

	// Auth endpoints
	r.Post("/auth/login", handler.LoginHandler(cfg, logger))
	r.Get("/auth/logout", handler.LogoutHandler)

	// Page routes map to HTML files: /labels -> /static/labels.html
	r.Get("/*", dynamicHTMLHandler(cfg.StaticDirectory))

	return r
}
