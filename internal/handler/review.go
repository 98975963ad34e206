package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"labelcam/internal/dto"
	"labelcam/internal/logger"
	"labelcam/internal/service"
	"labelcam/internal/service/overlay"
	"labelcam/internal/service/workflow"
)

// FrameIDHeader carries the id of the frame returned by ReviewFrameHandler.
const FrameIDHeader = "X-Frame-ID"

// ReviewHandler returns the labeling workflow snapshot.
func ReviewHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, manager.Workflow().Snapshot(), logger)
	}
}

// ReviewFrameHandler serves the frame under review as JPEG, with the
// detection awaiting a label highlighted.
func ReviewFrameHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		img, frameID, ok := manager.ReviewImage()
		if !ok {
			http.Error(w, "No frame under review", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set(FrameIDHeader, frameID)
		if err := overlay.Encode(w, img); err != nil {
			logger.Error("Error encoding review frame %s: %v", frameID, err)
		}
	}
}

// AssignLabelHandler labels the detection under review. The request names
// the frame the user was looking at; a label for any other frame is refused.
func AssignLabelHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.LabelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		err := manager.Workflow().AssignLabelForFrame(req.FrameID, req.Label)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, workflow.ErrEmptyLabel):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, workflow.ErrNotReviewing), errors.Is(err, workflow.ErrStaleFrame):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Error("Error assigning label: %v", err)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		}
	}
}

// NextFrameHandler drops the current frame and any labels not yet saved,
// and requests a new frame.
func NextFrameHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := manager.Workflow().RequestNewFrame(); err != nil {
			logger.Error("Error requesting new frame: %v", err)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusAccepted, manager.Workflow().Snapshot(), logger)
	}
}
