package workflow

import (
	"errors"
	"fmt"

	"labelcam/internal/model"
)

// State of the manual labeling workflow.
type State int

const (
	Idle State = iota
	AwaitingFrame
	Detecting
	Reviewing
	Persisting
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingFrame:
		return "awaiting_frame"
	case Detecting:
		return "detecting"
	case Reviewing:
		return "reviewing"
	case Persisting:
		return "persisting"
	case Failed:
		return "failed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for st := Idle; st <= Failed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown workflow state %q", text)
}

var (
	ErrNotReviewing = errors.New("no detection is awaiting a label")
	ErrEmptyLabel   = errors.New("label must not be empty")
	ErrStaleFrame   = errors.New("frame is no longer current")
	ErrClosed       = errors.New("workflow closed")
)

// Snapshot is a point-in-time copy of the workflow, safe to hand to other goroutines.
type Snapshot struct {
	State       State                    `json:"state"`
	Generation  uint64                   `json:"generation"`
	FrameID     string                   `json:"frameId,omitempty"`
	FrameOrigin string                   `json:"frameOrigin,omitempty"`
	Index       int                      `json:"index"`
	Total       int                      `json:"total"`
	Current     *model.LabeledDetection  `json:"current,omitempty"`
	Labeled     []model.LabeledDetection `json:"labeled,omitempty"`
	Suggestions []string                 `json:"suggestions,omitempty"`
	Error       string                   `json:"error,omitempty"`
	FailedAt    string                   `json:"failedAt,omitempty"`
}

// Stages a Failed workflow can have stopped at, reported in Snapshot.FailedAt.
const (
	StageFetch  = "fetch"
	StageDetect = "detect"
)
