package handler

import (
	"net/http"

	"labelcam/internal/logger"
	"labelcam/internal/service"
)

// StatusHandler reports the model state, live mode and labeling progress.
// It answers while the model is still loading so the page can show it.
func StatusHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, manager.Status(r.Context()), logger)
	}
}
