// LabelRequest is the body of POST /api/review/label.
package dto

type LabelRequest struct {
	FrameID string `json:"frameId"`
	Label   string `json:"label"`
}
