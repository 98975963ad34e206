package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"labelcam/internal/logger"
	"labelcam/internal/model"
	"labelcam/internal/repository"
	"labelcam/internal/service/ai"
	"labelcam/internal/service/frame"
)

const (
	defaultFetchTimeout  = 10 * time.Second
	defaultDetectTimeout = 5 * time.Second
	updatesBuffer        = 32
)

// Deps are the collaborators a Workflow drives. They are created at startup
// and outlive the workflow.
type Deps struct {
	Source   frame.Source
	Detector ai.Detector
	Store    repository.LabelRepository
	Logger   *logger.Logger
}

type Options struct {
	FetchTimeout    time.Duration
	DetectTimeout   time.Duration
	SuggestedLabels []string
}

// Workflow walks a user through the detections of one frame at a time,
// collects a label for each, commits the batch and moves to the next frame.
//
// Fetching, detection and persistence run in background goroutines tagged
// with the generation that started them. RequestNewFrame bumps the
// generation, so results that arrive for an older one are dropped.
type Workflow struct {
	deps Deps
	opts Options

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
	frame  *frame.Frame
	batch  []model.LabeledDetection
	index  int
	err    error
	stage  string
	closed bool

	baseCtx    context.Context
	baseCancel context.CancelFunc
	updates    chan Snapshot
	wg         sync.WaitGroup
}

// New returns an Idle workflow.
func New(deps Deps, opts Options) *Workflow {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.DetectTimeout <= 0 {
		opts.DetectTimeout = defaultDetectTimeout
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Workflow{
		deps:       deps,
		opts:       opts,
		state:      Idle,
		baseCtx:    ctx,
		baseCancel: cancel,
		updates:    make(chan Snapshot, updatesBuffer),
	}
}

// Start leaves Idle by requesting the first frame. It does nothing in any other state.
func (w *Workflow) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.state == Idle {
		w.requestLocked()
	}
	return nil
}

// RequestNewFrame abandons whatever the workflow is doing, including labels
// not yet committed, and fetches a new frame. Valid in any state.
func (w *Workflow) RequestNewFrame() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	w.requestLocked()
	return nil
}

// AssignLabel labels the detection under review and advances. After the
// last detection the whole batch is committed. Outside Reviewing it is a
// no-op returning ErrNotReviewing.
func (w *Workflow) AssignLabel(label string) error {
	return w.assign("", label)
}

// AssignLabelForFrame is AssignLabel for callers that may be looking at an
// older frame; it fails with ErrStaleFrame unless frameID is current.
func (w *Workflow) AssignLabelForFrame(frameID, label string) error {
	if frameID == "" {
		return ErrStaleFrame
	}
	return w.assign(frameID, label)
}

func (w *Workflow) assign(frameID, label string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Reviewing {
		return ErrNotReviewing
	}
	if label == "" {
		return ErrEmptyLabel
	}
	if frameID != "" && w.frame.ID != frameID {
		return ErrStaleFrame
	}

	w.batch[w.index].Type = label
	if w.index+1 < len(w.batch) {
		w.index++
		w.publishLocked()
		return nil
	}

	w.setStateLocked(Persisting)
	w.wg.Add(1)
	go w.persist(w.gen, w.frame.ID, w.batch)
	return nil
}

// Snapshot returns the current state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Review returns the frame under review, a copy of its batch and the index
// of the detection awaiting a label. ok is false outside Reviewing.
func (w *Workflow) Review() (f *frame.Frame, batch []model.LabeledDetection, index int, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Reviewing {
		return nil, nil, 0, false
	}
	batch = append([]model.LabeledDetection(nil), w.batch...)
	return w.frame, batch, w.index, true
}

// Updates delivers snapshots as the workflow changes. Slow readers lose
// intermediate snapshots, never the latest one. The channel is closed by Close.
func (w *Workflow) Updates() <-chan Snapshot {
	return w.updates
}

// Close cancels in-flight work and waits for background goroutines.
func (w *Workflow) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	w.baseCancel()
	w.mu.Unlock()

	w.wg.Wait()
	close(w.updates)
	return nil
}

func (w *Workflow) requestLocked() {
	w.gen++
	if w.cancel != nil {
		w.cancel()
	}
	ctx, cancel := context.WithCancel(w.baseCtx)
	w.cancel = cancel

	w.frame = nil
	w.batch = nil
	w.index = 0
	w.err = nil
	w.stage = ""
	w.setStateLocked(AwaitingFrame)

	w.wg.Add(1)
	go w.run(ctx, w.gen)
}

// current reports whether gen is still the live generation. Callers hold w.mu.
func (w *Workflow) current(gen uint64) bool {
	return gen == w.gen && !w.closed
}

// run fetches frames until one has detections, then hands it to review.
func (w *Workflow) run(ctx context.Context, gen uint64) {
	defer w.wg.Done()

	for {
		fetchCtx, cancel := context.WithTimeout(ctx, w.opts.FetchTimeout)
		f, err := w.deps.Source.Next(fetchCtx)
		cancel()

		w.mu.Lock()
		if !w.current(gen) {
			w.mu.Unlock()
			return
		}
		if err != nil {
			w.failLocked(StageFetch, fmt.Errorf("frame source: %w", err))
			w.mu.Unlock()
			return
		}
		w.frame = f
		w.setStateLocked(Detecting)
		w.mu.Unlock()

		detectCtx, cancel := context.WithTimeout(ctx, w.opts.DetectTimeout)
		detections, err := w.deps.Detector.Detect(detectCtx, f.Image)
		cancel()

		w.mu.Lock()
		if !w.current(gen) {
			w.mu.Unlock()
			return
		}
		if err != nil {
			w.failLocked(StageDetect, fmt.Errorf("detector: %w", err))
			w.mu.Unlock()
			return
		}
		if len(detections) == 0 {
			w.deps.Logger.Info("No detections in frame %s, requesting another", f.ID)
			w.frame = nil
			w.setStateLocked(AwaitingFrame)
			w.mu.Unlock()
			continue
		}

		w.batch = model.NewBatch(detections)
		w.index = 0
		w.setStateLocked(Reviewing)
		w.mu.Unlock()
		w.deps.Logger.Info("Frame %s ready for review with %d detection(s)", f.ID, len(detections))
		return
	}
}

// persist commits every record of a finished batch. Records are inserted
// independently; a failed insert does not stop the rest.
func (w *Workflow) persist(gen uint64, frameID string, batch []model.LabeledDetection) {
	defer w.wg.Done()

	saved := 0
	for _, ld := range batch {
		rec := &model.LabelRecord{LabeledDetection: ld, FrameID: frameID}
		if _, err := w.deps.Store.Insert(w.baseCtx, rec); err != nil {
			w.deps.Logger.Error("Failed to save label %q for %s: %v", ld.Type, ld.Class, err)
			continue
		}
		saved++
	}
	w.deps.Logger.Info("Saved %d/%d label(s) for frame %s", saved, len(batch), frameID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current(gen) {
		w.requestLocked()
	}
}

func (w *Workflow) failLocked(stage string, err error) {
	w.err = err
	w.stage = stage
	w.batch = nil
	w.index = 0
	w.setStateLocked(Failed)
	w.deps.Logger.Warning("Labeling workflow failed: %v", err)
}

func (w *Workflow) setStateLocked(s State) {
	w.state = s
	w.publishLocked()
}

func (w *Workflow) publishLocked() {
	if w.closed {
		return
	}
	snap := w.snapshotLocked()
	select {
	case w.updates <- snap:
	default:
		// drop the oldest so the latest state always gets through
		select {
		case <-w.updates:
		default:
		}
		select {
		case w.updates <- snap:
		default:
		}
	}
}

func (w *Workflow) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      w.state,
		Generation: w.gen,
		Index:      w.index,
		Total:      len(w.batch),
	}
	if w.frame != nil {
		snap.FrameID = w.frame.ID
		snap.FrameOrigin = w.frame.Origin
	}
	if w.err != nil {
		snap.Error = w.err.Error()
		snap.FailedAt = w.stage
	}

	switch w.state {
	case Reviewing:
		current := w.batch[w.index]
		snap.Current = &current
		snap.Labeled = append([]model.LabeledDetection(nil), w.batch[:w.index]...)
		snap.Suggestions = suggestions(w.opts.SuggestedLabels, current.Class)
	case Persisting:
		snap.Labeled = append([]model.LabeledDetection(nil), w.batch...)
	}
	return snap
}

// suggestions are the fixed labels plus the detected class, compared as is.
func suggestions(fixed []string, detected string) []string {
	out := append([]string(nil), fixed...)
	for _, s := range fixed {
		if s == detected {
			return out
		}
	}
	return append(out, detected)
}
