package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"labelcam/internal/config"
	"labelcam/internal/logger"
	"labelcam/internal/repository/sqlite"
	"labelcam/internal/route"
	"labelcam/internal/service"
	"labelcam/internal/service/ai"
	"labelcam/internal/service/frame"
	"labelcam/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  *logger.Logger
	db      *sqlite.DB
	manager *service.Manager
	server  *http.Server
}

func NewApp() (*App, error) {
	cfg := config.Load()

	lg, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		lg.Close()
		return nil, fmt.Errorf("failed to open label store: %w", err)
	}

	liveSource, liveErr := openLiveSource(cfg, lg)
	if liveErr != nil {
		// Live mode is optional; manual labeling works without it.
		lg.Error("Live detection unavailable: %v", liveErr)
	}

	mng := service.NewManager(service.Deps{
		Detector:     ai.NewDNNDetector(cfg, lg),
		LiveSource:   liveSource,
		LiveError:    liveErr,
		ReviewSource: frame.NewRandomImageSource(cfg, &http.Client{}, lg),
		Labels:       sqlite.NewLabelRepository(db),
		Hub:          websocket.NewHubService(lg),
	}, cfg, lg)

	return &App{
		config:  cfg,
		logger:  lg,
		db:      db,
		manager: mng,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: route.SetupRoutes(mng, cfg, lg),
		},
	}, nil
}

// openLiveSource opens the source picked by LIVE_SOURCE. A nil source with
// a nil error means live mode is switched off.
func openLiveSource(cfg *config.Config, lg *logger.Logger) (frame.Source, error) {
	switch cfg.LiveSource {
	case config.LiveSourceCamera:
		cam, err := frame.OpenCamera(cfg, lg)
		if err != nil {
			return nil, err
		}
		return cam, nil
	case config.LiveSourceUDP:
		udp, err := frame.ListenUDP(cfg, lg)
		if err != nil {
			return nil, err
		}
		return udp, nil
	case config.LiveSourceOff:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LIVE_SOURCE %q", cfg.LiveSource)
	}
}

// Run serves HTTP until ctx is cancelled, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	a.manager.Start(ctx)

	a.logger.Info("Label Camera Server")
	a.logger.Info("URL: http://localhost:%d", a.config.Port)
	a.logger.Info("Live source: %s", a.config.LiveSource)
	a.logger.Info("Label store: %s", a.config.DBPath)
	a.logger.Info("AI Model: %s", a.config.ModelPath)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err = a.server.Shutdown(shutdownCtx)
		cancel()
	}

	err = multierr.Combine(err, a.manager.Stop(), a.db.Close())
	if err != nil {
		a.logger.Error("Shutdown finished with errors: %v", err)
	}
	return multierr.Append(err, a.logger.Close())
}
