package live

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"labelcam/internal/logger"
	"labelcam/internal/model"
	"labelcam/internal/service/ai"
	"labelcam/internal/service/frame"
	"labelcam/internal/service/overlay"
)

const (
	defaultInterval      = 100 * time.Millisecond
	defaultDetectTimeout = 5 * time.Second
)

// Result is one finished live run, ready for viewers.
type Result struct {
	Frame      *frame.Frame
	Detections []model.Detection
	Image      image.Image
}

// Stats counts what the loop has done since it started.
type Stats struct {
	Ticks    int64 `json:"ticks"`
	Runs     int64 `json:"runs"`
	Skipped  int64 `json:"skipped"`
	Failures int64 `json:"failures"`
}

type Deps struct {
	Source   frame.Source
	Detector ai.Detector
	Renderer *overlay.Renderer
	// Labeled returns the classes drawn in the highlight style.
	Labeled func() overlay.LabelSet
	Publish func(Result)
	Clock   clock.Clock
	Logger  *logger.Logger
}

// Loop detects objects on the live source at a fixed period and publishes
// the annotated frame. Runs never overlap: a tick that arrives while the
// previous run is in flight is skipped.
type Loop struct {
	deps          Deps
	interval      time.Duration
	detectTimeout time.Duration

	running  atomic.Bool
	ticks    atomic.Int64
	runs     atomic.Int64
	skipped  atomic.Int64
	failures atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(deps Deps, interval, detectTimeout time.Duration) *Loop {
	if interval <= 0 {
		interval = defaultInterval
	}
	if detectTimeout <= 0 {
		detectTimeout = defaultDetectTimeout
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Labeled == nil {
		deps.Labeled = func() overlay.LabelSet { return nil }
	}
	if deps.Publish == nil {
		deps.Publish = func(Result) {}
	}
	return &Loop{deps: deps, interval: interval, detectTimeout: detectTimeout}
}

// Start begins ticking. The ticker exists when Start returns.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	ticker := l.deps.Clock.Ticker(l.interval)

	l.wg.Add(1)
	go l.tick(ctx, ticker)
	l.deps.Logger.Info("Live detection started, every %v", l.interval)
}

// Stop halts the loop and waits for an in-flight run. The loop can be
// started again afterwards.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	l.wg.Wait()
}

func (l *Loop) Stats() Stats {
	return Stats{
		Ticks:    l.ticks.Load(),
		Runs:     l.runs.Load(),
		Skipped:  l.skipped.Load(),
		Failures: l.failures.Load(),
	}
}

func (l *Loop) tick(ctx context.Context, ticker *clock.Ticker) {
	defer l.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.deps.Logger.Info("Live detection stopped")
			return
		case <-ticker.C:
		}

		l.ticks.Inc()
		if !l.running.CompareAndSwap(false, true) {
			l.skipped.Inc()
			continue
		}
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer l.running.Store(false)
			l.runOnce(ctx)
		}()
	}
}

func (l *Loop) runOnce(ctx context.Context) {
	f, err := l.deps.Source.Next(ctx)
	if errors.Is(err, frame.ErrNoFrame) {
		return
	}
	if err != nil {
		l.fail("reading frame", err)
		return
	}
	l.runs.Inc()

	detectCtx, cancel := context.WithTimeout(ctx, l.detectTimeout)
	detections, err := l.deps.Detector.Detect(detectCtx, f.Image)
	cancel()
	if err != nil {
		l.fail("detecting objects", err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	img := l.deps.Renderer.Render(f.Image, detections, l.deps.Labeled())
	l.deps.Publish(Result{Frame: f, Detections: detections, Image: img})
}

func (l *Loop) fail(what string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	l.failures.Inc()
	l.deps.Logger.Warning("Live run failed %s: %v", what, err)
}
