package frame

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
)

// ErrNoFrame is returned when a live source has not produced a frame yet.
var ErrNoFrame = errors.New("no frame available yet")

// Frame is one image handed to the detector.
type Frame struct {
	ID         string
	Image      image.Image
	Origin     string // device, camera name or image URL
	CapturedAt time.Time
}

func newFrame(img image.Image, origin string) *Frame {
	return &Frame{
		ID:         uuid.NewString(),
		Image:      img,
		Origin:     origin,
		CapturedAt: time.Now(),
	}
}

// Source supplies frames for detection.
type Source interface {
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// DeviceAccessError reports that a capture device could not be opened.
// Live mode treats it as fatal and does not retry.
type DeviceAccessError struct {
	Device string
	Err    error
}

func (e *DeviceAccessError) Error() string {
	return fmt.Sprintf("cannot access device %s: %v", e.Device, e.Err)
}

func (e *DeviceAccessError) Unwrap() error { return e.Err }

// NetworkFetchError reports a failed remote image fetch. The user may retry.
type NetworkFetchError struct {
	URL string
	Err error
}

func (e *NetworkFetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkFetchError) Unwrap() error { return e.Err }
