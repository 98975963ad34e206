package ai

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"labelcam/internal/config"
	"labelcam/internal/logger"
	"labelcam/internal/model"
)

// ErrNotLoaded is returned by Detect before a successful Load.
var ErrNotLoaded = errors.New("detection network not loaded")

// ModelLoadError reports that the detection model could not be loaded.
// It is not recoverable without fixing the model files.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// Detector finds objects in a frame.
type Detector interface {
	// Load warms the detector up. It must succeed before Detect is used.
	Load(ctx context.Context) error
	// Detect returns the objects found in img, in img's pixel coordinates.
	Detect(ctx context.Context, img image.Image) ([]model.Detection, error)
	Close() error
}

// DNNDetector runs an SSD MobileNet COCO graph through OpenCV's DNN module.
type DNNDetector struct {
	net        gocv.Net
	loaded     bool
	modelPath  string
	configPath string
	threshold  float64
	maxResults int
	logger     *logger.Logger
	mu         sync.Mutex
}

// NewDNNDetector creates an unloaded detector from the model settings in cfg.
func NewDNNDetector(cfg *config.Config, logger *logger.Logger) *DNNDetector {
	return &DNNDetector{
		modelPath:  cfg.ModelPath,
		configPath: cfg.ConfigPath,
		threshold:  cfg.DetectionThreshold,
		maxResults: cfg.MaxDetections,
		logger:     logger,
	}
}

// Load reads the network and sets backend/target preferences.
func (s *DNNDetector) Load(ctx context.Context) error {
	if _, err := os.Stat(s.modelPath); err != nil {
		return &ModelLoadError{Path: s.modelPath, Err: err}
	}
	if _, err := os.Stat(s.configPath); err != nil {
		return &ModelLoadError{Path: s.configPath, Err: err}
	}

	done := make(chan error, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		net := gocv.ReadNet(s.modelPath, s.configPath)
		if net.Empty() {
			done <- &ModelLoadError{Path: s.modelPath, Err: errors.New("network is empty")}
			return
		}
		errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
		errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
		if errBackend != nil || errTarget != nil {
			net.Close()
			done <- &ModelLoadError{Path: s.modelPath, Err: errors.New("failed to set preferable backend or target")}
			return
		}

		if s.loaded {
			s.net.Close()
		}
		s.net = net
		s.loaded = true
		done <- nil
	}()

	select {
	case err := <-done:
		if err == nil {
			s.logger.Info("Detection network initialized successfully")
		}
		return err
	case <-ctx.Done():
		return &ModelLoadError{Path: s.modelPath, Err: ctx.Err()}
	}
}

// Detect runs one forward pass. The network is used by one caller at a time;
// a caller whose context ends first gets ctx.Err() and the pass finishes in
// the background.
func (s *DNNDetector) Detect(ctx context.Context, img image.Image) ([]model.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		detections []model.Detection
		err        error
	}
	done := make(chan result, 1)
	go func() {
		detections, err := s.forward(img)
		done <- result{detections, err}
	}()

	select {
	case r := <-done:
		return r.detections, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *DNNDetector) forward(img image.Image) ([]model.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded || s.net.Empty() {
		return nil, ErrNotLoaded
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")

	output := s.net.Forward("")
	defer output.Close()

	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	raw := make([][7]float32, rows.Rows())
	for i := range raw {
		for j := 0; j < 7; j++ {
			raw[i][j] = rows.GetFloatAt(i, j)
		}
	}

	return parseSSDOutput(raw, mat.Cols(), mat.Rows(), s.threshold, s.maxResults), nil
}

// parseSSDOutput turns SSD rows [batch, class, score, left, top, right, bottom]
// with normalized coordinates into detections in pixel space.
func parseSSDOutput(rows [][7]float32, width, height int, threshold float64, maxResults int) []model.Detection {
	detections := []model.Detection{}
	w, h := float64(width), float64(height)

	for _, row := range rows {
		score := float64(row[2])
		if score < threshold {
			continue
		}
		if maxResults > 0 && len(detections) >= maxResults {
			break
		}

		left := clamp01(float64(row[3])) * w
		top := clamp01(float64(row[4])) * h
		right := clamp01(float64(row[5])) * w
		bottom := clamp01(float64(row[6])) * h
		if right <= left || bottom <= top {
			continue
		}

		detections = append(detections, model.Detection{
			Box:   model.Box{X: left, Y: top, Width: right - left, Height: bottom - top},
			Class: ClassName(int(row[1])),
			Score: score,
		})
	}

	return detections
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Close releases the network.
func (s *DNNDetector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		s.loaded = false
		return s.net.Close()
	}
	return nil
}
