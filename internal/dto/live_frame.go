package dto

import "labelcam/internal/model"

// LiveFrame is one annotated live frame pushed to viewers. Image holds a
// base64 encoded JPEG.
type LiveFrame struct {
	Camera     string            `json:"camera"`
	FrameID    string            `json:"frameId"`
	Image      string            `json:"image"`
	Detections []model.Detection `json:"detections"`
}
