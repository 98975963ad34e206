package model

import "time"

// Box is an axis-aligned region in frame pixel coordinates.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one object instance found in a frame.
type Detection struct {
	Box   Box     `json:"bbox"`
	Class string  `json:"class"`
	Score float64 `json:"score"`
}

// LabeledDetection is a Detection with the label a user assigned to it.
// Type is empty until the user labels it.
type LabeledDetection struct {
	Detection
	Type string `json:"type"`
}

// LabelRecord is the stored form of a LabeledDetection.
type LabelRecord struct {
	ID int64 `json:"id"`
	LabeledDetection
	FrameID   string    `json:"frameId"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewBatch wraps detections for review, all unlabeled.
func NewBatch(detections []Detection) []LabeledDetection {
	batch := make([]LabeledDetection, len(detections))
	for i, d := range detections {
		batch[i] = LabeledDetection{Detection: d}
	}
	return batch
}
