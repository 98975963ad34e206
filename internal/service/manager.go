package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"labelcam/internal/config"
	"labelcam/internal/dto"
	"labelcam/internal/logger"
	"labelcam/internal/repository"
	"labelcam/internal/service/ai"
	"labelcam/internal/service/frame"
	"labelcam/internal/service/live"
	"labelcam/internal/service/overlay"
	"labelcam/internal/service/websocket"
	"labelcam/internal/service/workflow"
)

type Deps struct {
	Detector ai.Detector
	// LiveSource is nil when live mode is off; LiveError then says why, if
	// it failed to open.
	LiveSource   frame.Source
	LiveError    error
	ReviewSource frame.Source
	Labels       repository.LabelRepository
	Hub          *websocket.HubService
	Clock        clock.Clock
}

// Manager owns the detector and everything driven by it: the live loop,
// the labeling workflow and the viewer hub.
type Manager struct {
	cfg    *config.Config
	logger *logger.Logger

	detector     ai.Detector
	readiness    *ai.Readiness
	liveSource   frame.Source
	liveErr      error
	reviewSource frame.Source
	labels       repository.LabelRepository
	hub          *websocket.HubService
	renderer     *overlay.Renderer
	workflow     *workflow.Workflow
	live         *live.Loop

	labeledMu sync.RWMutex
	labeled   overlay.LabelSet

	cancel  context.CancelFunc
	startWg sync.WaitGroup
	wg      sync.WaitGroup
}

func NewManager(deps Deps, cfg *config.Config, logger *logger.Logger) *Manager {
	m := &Manager{
		cfg:          cfg,
		logger:       logger,
		detector:     deps.Detector,
		readiness:    ai.NewReadiness(),
		liveSource:   deps.LiveSource,
		liveErr:      deps.LiveError,
		reviewSource: deps.ReviewSource,
		labels:       deps.Labels,
		hub:          deps.Hub,
		renderer:     overlay.NewRenderer(cfg.FrameWidth, cfg.FrameHeight),
	}

	m.workflow = workflow.New(workflow.Deps{
		Source:   deps.ReviewSource,
		Detector: deps.Detector,
		Store:    deps.Labels,
		Logger:   logger,
	}, workflow.Options{
		FetchTimeout:    cfg.FetchTimeout,
		DetectTimeout:   cfg.DetectTimeout,
		SuggestedLabels: cfg.SuggestedLabels,
	})

	if deps.LiveSource != nil {
		m.live = live.New(live.Deps{
			Source:   deps.LiveSource,
			Detector: deps.Detector,
			Renderer: m.renderer,
			Labeled:  m.LabeledSet,
			Publish:  m.publishLive,
			Clock:    deps.Clock,
			Logger:   logger,
		}, cfg.LiveInterval, cfg.DetectTimeout)
	}
	return m
}

// Start runs the hub immediately and warms the model up in the background.
// Once the model is ready the labeled classes are loaded, then the
// workflow and the live loop start.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.hub.Run(ctx)
	}()
	go func() {
		defer m.wg.Done()
		for snap := range m.workflow.Updates() {
			if err := m.hub.Broadcast(websocket.KindReview, snap); err != nil {
				m.logger.Error("Failed to broadcast review state: %v", err)
			}
		}
	}()

	m.startWg.Add(1)
	go func() {
		defer m.startWg.Done()
		m.warmup(ctx)
	}()
}

func (m *Manager) warmup(ctx context.Context) {
	m.logger.Info("Loading detection model %s", m.cfg.ModelPath)
	if err := m.readiness.Warmup(ctx, m.detector, m.logger); err != nil {
		return
	}

	records, err := m.labels.GetAll(ctx)
	if err != nil {
		m.logger.Error("Failed to load labeled classes: %v", err)
	} else {
		set := overlay.NewLabelSet(records)
		m.labeledMu.Lock()
		m.labeled = set
		m.labeledMu.Unlock()
		m.logger.Info("Loaded %d label record(s) across %d class(es)", len(records), len(set))
	}

	if ctx.Err() != nil {
		return
	}
	if err := m.workflow.Start(); err != nil {
		m.logger.Error("Failed to start labeling: %v", err)
	}
	if m.live != nil {
		m.live.Start(ctx)
	} else if m.liveErr != nil {
		m.logger.Warning("Live detection disabled: %v", m.liveErr)
	}
}

// Stop tears everything down and closes the detector and frame sources.
func (m *Manager) Stop() error {
	if m.cancel != nil {
		m.cancel()
	}
	m.startWg.Wait()
	if m.live != nil {
		m.live.Stop()
	}
	err := m.workflow.Close()
	m.wg.Wait()

	err = multierr.Append(err, m.detector.Close())
	if m.liveSource != nil {
		err = multierr.Append(err, m.liveSource.Close())
	}
	err = multierr.Append(err, m.reviewSource.Close())

	m.logger.Info("Manager stopped")
	return err
}

func (m *Manager) publishLive(r live.Result) {
	var buf bytes.Buffer
	if err := overlay.Encode(&buf, r.Image); err != nil {
		m.logger.Error("Failed to encode live frame: %v", err)
		return
	}

	msg := dto.LiveFrame{
		Camera:     r.Frame.Origin,
		FrameID:    r.Frame.ID,
		Image:      base64.StdEncoding.EncodeToString(buf.Bytes()),
		Detections: r.Detections,
	}
	if err := m.hub.Broadcast(websocket.KindLive, msg); err != nil {
		m.logger.Error("Failed to broadcast live frame: %v", err)
	}
}

// LabeledSet returns the classes loaded at startup. It is nil until the
// model is ready and must not be modified.
func (m *Manager) LabeledSet() overlay.LabelSet {
	m.labeledMu.RLock()
	defer m.labeledMu.RUnlock()
	return m.labeled
}

// ReviewImage renders the frame under review with the current detection
// highlighted. ok is false when nothing is being reviewed.
func (m *Manager) ReviewImage() (img image.Image, frameID string, ok bool) {
	f, batch, index, ok := m.workflow.Review()
	if !ok {
		return nil, "", false
	}
	return m.renderer.RenderReview(f.Image, batch, index), f.ID, true
}

func (m *Manager) Status(ctx context.Context) dto.Status {
	state, modelErr := m.readiness.Status()
	status := dto.Status{
		Model:   string(state),
		Review:  m.workflow.Snapshot(),
		Viewers: m.hub.GetClientCount(),
		Live:    dto.LiveStatus{Mode: config.LiveSourceOff},
	}
	if modelErr != nil {
		status.ModelError = modelErr.Error()
	}

	if m.live != nil {
		status.Live.Mode = m.cfg.LiveSource
		status.Live.Running = state == ai.ModelReady
		status.Live.Stats = m.live.Stats()
	} else if m.liveErr != nil {
		status.Live.Error = m.liveErr.Error()
	}

	count, err := m.labels.Count(ctx)
	if err != nil {
		m.logger.Error("Error counting labels: %v", err)
	}
	status.Labels = count
	return status
}

func (m *Manager) Readiness() *ai.Readiness {
	return m.readiness
}

func (m *Manager) Workflow() *workflow.Workflow {
	return m.workflow
}

func (m *Manager) Labels() repository.LabelRepository {
	return m.labels
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.hub
}
