package ai

import (
	"context"
	"sync"

	"labelcam/internal/logger"
)

// ModelState is the loading state shown to users while the model warms up.
type ModelState string

const (
	ModelLoading ModelState = "loading"
	ModelReady   ModelState = "ready"
	ModelFailed  ModelState = "failed"
)

// Readiness tracks the one-time warm-up of a Detector.
type Readiness struct {
	mu    sync.RWMutex
	state ModelState
	err   error
	done  chan struct{}
}

func NewReadiness() *Readiness {
	return &Readiness{state: ModelLoading, done: make(chan struct{})}
}

// Warmup loads d and records the outcome. Only the first call has effect.
func (r *Readiness) Warmup(ctx context.Context, d Detector, logger *logger.Logger) error {
	err := d.Load(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != ModelLoading {
		return r.err
	}
	if err != nil {
		r.state, r.err = ModelFailed, err
		logger.Error("Model warm-up failed: %v", err)
	} else {
		r.state = ModelReady
		logger.Info("Model ready")
	}
	close(r.done)
	return err
}

// Status returns the current state and, when failed, the cause.
func (r *Readiness) Status() (ModelState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state, r.err
}

// Done is closed once warm-up has finished, successfully or not.
func (r *Readiness) Done() <-chan struct{} {
	return r.done
}

func (r *Readiness) IsReady() bool {
	state, _ := r.Status()
	return state == ModelReady
}
