package dto

import (
	"labelcam/internal/service/live"
	"labelcam/internal/service/workflow"
)

// Status is the payload of /api/status.
type Status struct {
	Model      string            `json:"model"`
	ModelError string            `json:"modelError,omitempty"`
	Live       LiveStatus        `json:"live"`
	Review     workflow.Snapshot `json:"review"`
	Labels     int               `json:"labels"`
	Viewers    int               `json:"viewers"`
}

type LiveStatus struct {
	Mode    string     `json:"mode"` // camera, udp or off
	Running bool       `json:"running"`
	Error   string     `json:"error,omitempty"`
	Stats   live.Stats `json:"stats"`
}
