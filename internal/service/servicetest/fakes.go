// Package servicetest provides in-memory stand-ins for the detector, frame
// sources and label store.
package servicetest

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sort"
	"strconv"
	"sync"
	"time"

	"labelcam/internal/model"
	"labelcam/internal/service/frame"
)

// Source produces solid frames named <Prefix>-<n>.
type Source struct {
	Prefix string
	Width  int
	Height int
	Err    error

	mu     sync.Mutex
	calls  int
	closed bool
}

func (s *Source) Next(ctx context.Context) (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.calls++

	w, h := s.Width, s.Height
	if w == 0 || h == 0 {
		w, h = 64, 48
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{40, 40, 40, 255}}, image.Point{}, draw.Src)

	return &frame.Frame{
		ID:         s.Prefix + "-" + strconv.Itoa(s.calls),
		Image:      img,
		Origin:     s.Prefix,
		CapturedAt: time.Now(),
	}, nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Detector returns the same detections for every frame.
type Detector struct {
	Detections []model.Detection
	LoadErr    error
	DetectErr  error
	// Release, when set, holds Load until it is closed.
	Release chan struct{}

	mu     sync.Mutex
	calls  int
	closed bool
}

func (d *Detector) Load(ctx context.Context) error {
	if d.Release != nil {
		select {
		case <-d.Release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return d.LoadErr
}

func (d *Detector) Detect(ctx context.Context, img image.Image) ([]model.Detection, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.DetectErr != nil {
		return nil, d.DetectErr
	}
	return append([]model.Detection(nil), d.Detections...), nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Detector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *Detector) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Labels is an in-memory label store.
type Labels struct {
	mu      sync.Mutex
	records []model.LabelRecord
}

func (l *Labels) Insert(ctx context.Context, rec *model.LabelRecord) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec.ID = int64(len(l.records) + 1)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	l.records = append(l.records, *rec)
	return rec.ID, nil
}

func (l *Labels) GetAll(ctx context.Context) ([]model.LabelRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.LabelRecord{}, l.records...), nil
}

func (l *Labels) GetClasses(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[string]bool)
	classes := []string{}
	for _, rec := range l.records {
		if !seen[rec.Class] {
			seen[rec.Class] = true
			classes = append(classes, rec.Class)
		}
	}
	sort.Strings(classes)
	return classes, nil
}

func (l *Labels) Count(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records), nil
}

// Seed stores a record for each class, labeled with the class itself.
func (l *Labels) Seed(classes ...string) {
	for _, class := range classes {
		l.Insert(context.Background(), &model.LabelRecord{
			LabeledDetection: model.LabeledDetection{
				Detection: model.Detection{Class: class, Score: 1},
				Type:      class,
			},
			FrameID: "seed",
		})
	}
}

// Detection builds a detection of class at a fixed position.
func Detection(class string, score float64) model.Detection {
	return model.Detection{Box: model.Box{X: 4, Y: 8, Width: 20, Height: 16}, Class: class, Score: score}
}
