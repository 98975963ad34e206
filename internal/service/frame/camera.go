package frame

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"labelcam/internal/config"
	"labelcam/internal/logger"
)

// CameraSource reads frames from a local capture device.
type CameraSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	device  string
	logger  *logger.Logger
	mu      sync.Mutex
}

// OpenCamera opens the configured capture device. Failure is a *DeviceAccessError.
func OpenCamera(cfg *config.Config, logger *logger.Logger) (*CameraSource, error) {
	device := fmt.Sprintf("camera %d", cfg.CameraDevice)

	capture, err := gocv.OpenVideoCapture(cfg.CameraDevice)
	if err != nil {
		return nil, &DeviceAccessError{Device: device, Err: err}
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, &DeviceAccessError{Device: device, Err: errors.New("device not opened")}
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.FrameWidth))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.FrameHeight))

	logger.Info("Opened %s (%dx%d)", device, cfg.FrameWidth, cfg.FrameHeight)
	return &CameraSource{
		capture: capture,
		mat:     gocv.NewMat(),
		device:  device,
		logger:  logger,
	}, nil
}

// Next grabs the next frame from the device.
func (c *CameraSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ok := c.capture.Read(&c.mat); !ok {
		return nil, fmt.Errorf("failed to read from %s", c.device)
	}
	if c.mat.Empty() {
		return nil, ErrNoFrame
	}

	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return newFrame(img, c.device), nil
}

func (c *CameraSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	errMat := c.mat.Close()
	errCapture := c.capture.Close()
	return multierr.Combine(errCapture, errMat)
}
