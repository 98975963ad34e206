package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"labelcam/internal/config"
	"labelcam/internal/logger"
	"labelcam/internal/model"
	"labelcam/internal/service/ai"
	"labelcam/internal/service/servicetest"
	"labelcam/internal/service/websocket"
	"labelcam/internal/service/workflow"
)

type testRig struct {
	manager  *Manager
	detector *servicetest.Detector
	review   *servicetest.Source
	live     *servicetest.Source
	labels   *servicetest.Labels
	clock    *clock.Mock
}

func testConfig() *config.Config {
	return &config.Config{
		FrameWidth:      64,
		FrameHeight:     48,
		LiveSource:      config.LiveSourceUDP,
		LiveInterval:    100 * time.Millisecond,
		DetectTimeout:   time.Second,
		FetchTimeout:    time.Second,
		SuggestedLabels: []string{"person", "car"},
	}
}

func newRig(t *testing.T, det *servicetest.Detector, withLive bool) *testRig {
	t.Helper()

	rig := &testRig{
		detector: det,
		review:   &servicetest.Source{Prefix: "photo"},
		labels:   &servicetest.Labels{},
		clock:    clock.NewMock(),
	}
	deps := Deps{
		Detector:     det,
		ReviewSource: rig.review,
		Labels:       rig.labels,
		Hub:          websocket.NewHubService(logger.NewNop()),
		Clock:        rig.clock,
	}
	if withLive {
		rig.live = &servicetest.Source{Prefix: "porch"}
		deps.LiveSource = rig.live
	}
	rig.manager = NewManager(deps, testConfig(), logger.NewNop())
	return rig
}

func waitReady(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case <-m.Readiness().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Model never finished loading")
	}
}

func waitState(t *testing.T, m *Manager, state workflow.State) workflow.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := m.Workflow().Snapshot()
		if snap.State == state {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected %s, still %s", state, snap.State)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestManager_LabelsFramesAfterWarmup(t *testing.T) {
	det := &servicetest.Detector{Detections: []model.Detection{
		servicetest.Detection("person", 0.9),
		servicetest.Detection("dog", 0.6),
	}}
	rig := newRig(t, det, false)
	rig.labels.Seed("person")

	rig.manager.Start(context.Background())
	waitReady(t, rig.manager)
	snap := waitState(t, rig.manager, workflow.Reviewing)

	if snap.FrameID != "photo-1" || snap.Total != 2 {
		t.Errorf("Unexpected review %+v", snap)
	}
	if set := rig.manager.LabeledSet(); !set.Has("person") || set.Has("dog") {
		t.Errorf("Unexpected labeled set %v", set.Classes())
	}

	wf := rig.manager.Workflow()
	if err := wf.AssignLabel("human"); err != nil {
		t.Fatalf("AssignLabel failed: %v", err)
	}
	if err := wf.AssignLabel("pet"); err != nil {
		t.Fatalf("AssignLabel failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if n, _ := rig.labels.Count(context.Background()); n == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Batch was not persisted")
		}
		time.Sleep(2 * time.Millisecond)
	}

	if err := rig.manager.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !rig.detector.Closed() || !rig.review.Closed() {
		t.Error("Expected detector and sources closed")
	}
}

func TestManager_ModelLoadFailure(t *testing.T) {
	det := &servicetest.Detector{LoadErr: &ai.ModelLoadError{Path: "missing.pb", Err: errors.New("no such file")}}
	rig := newRig(t, det, true)

	rig.manager.Start(context.Background())
	defer rig.manager.Stop()
	waitReady(t, rig.manager)

	status := rig.manager.Status(context.Background())
	if status.Model != string(ai.ModelFailed) || status.ModelError == "" {
		t.Errorf("Expected failed model in status, got %+v", status)
	}
	if status.Live.Running {
		t.Error("Live detection cannot run without a model")
	}
	if snap := rig.manager.Workflow().Snapshot(); snap.State != workflow.Idle {
		t.Errorf("Expected workflow to stay idle, got %s", snap.State)
	}
}

func TestManager_LoadingStatus(t *testing.T) {
	release := make(chan struct{})
	rig := newRig(t, &servicetest.Detector{Release: release}, false)

	rig.manager.Start(context.Background())
	defer rig.manager.Stop()

	status := rig.manager.Status(context.Background())
	if status.Model != string(ai.ModelLoading) || status.Review.State != workflow.Idle {
		t.Errorf("Expected loading status, got %+v", status)
	}
	if _, _, ok := rig.manager.ReviewImage(); ok {
		t.Error("Nothing can be reviewed while loading")
	}

	close(release)
	waitReady(t, rig.manager)
	if !rig.manager.Readiness().IsReady() {
		t.Error("Expected model ready")
	}
}

func TestManager_ReviewImage(t *testing.T) {
	rig := newRig(t, &servicetest.Detector{Detections: []model.Detection{servicetest.Detection("cat", 0.7)}}, false)
	rig.manager.Start(context.Background())
	defer rig.manager.Stop()

	snap := waitState(t, rig.manager, workflow.Reviewing)
	img, frameID, ok := rig.manager.ReviewImage()
	if !ok {
		t.Fatal("Expected a review image")
	}
	if frameID != snap.FrameID {
		t.Errorf("Expected frame %s, got %s", snap.FrameID, frameID)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("Unexpected image size %v", b)
	}
}

func TestManager_LiveLoop(t *testing.T) {
	rig := newRig(t, &servicetest.Detector{Detections: []model.Detection{servicetest.Detection("car", 0.8)}}, true)
	rig.manager.Start(context.Background())
	waitReady(t, rig.manager)

	deadline := time.Now().Add(2 * time.Second)
	for rig.manager.Status(context.Background()).Live.Stats.Runs == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Live loop never ran")
		}
		rig.clock.Add(100 * time.Millisecond)
	}

	status := rig.manager.Status(context.Background())
	if status.Live.Mode != config.LiveSourceUDP || !status.Live.Running {
		t.Errorf("Unexpected live status %+v", status.Live)
	}

	if err := rig.manager.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !rig.live.Closed() {
		t.Error("Expected live source closed")
	}
}

func TestManager_LiveUnavailable(t *testing.T) {
	rig := newRig(t, &servicetest.Detector{}, false)
	rig.manager.liveErr = errors.New("cannot access device 0")

	status := rig.manager.Status(context.Background())
	if status.Live.Mode != config.LiveSourceOff || status.Live.Error == "" {
		t.Errorf("Expected disabled live mode with error, got %+v", status.Live)
	}
	rig.manager.Stop()
}
