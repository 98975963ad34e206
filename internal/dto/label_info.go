package dto

import (
	"encoding/json"
	"time"

	"labelcam/internal/model"
)

// LabelInfo is a stored label record as shown in the label list.
type LabelInfo struct {
	ID        int64     `json:"id"`
	FrameID   string    `json:"frameId"`
	Class     string    `json:"class"`
	Type      string    `json:"type"`
	Score     float64   `json:"score"`
	Box       model.Box `json:"bbox"`
	Date      time.Time `json:"date"`
	TimeOfDay time.Time `json:"timeOfDay"`
}

func NewLabelInfo(rec model.LabelRecord) LabelInfo {
	return LabelInfo{
		ID:        rec.ID,
		FrameID:   rec.FrameID,
		Class:     rec.Class,
		Type:      rec.Type,
		Score:     rec.Score,
		Box:       rec.Box,
		Date:      rec.CreatedAt,
		TimeOfDay: rec.CreatedAt,
	}
}

// MarshalJSON customizes JSON output for LabelInfo to format date and time-of-day.
func (l LabelInfo) MarshalJSON() ([]byte, error) {
	type Alias LabelInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      l.Date.Format("02-01-2006"),
		TimeOfDay: l.TimeOfDay.Format("15:04"),
		Alias:     (Alias)(l),
	})
}
