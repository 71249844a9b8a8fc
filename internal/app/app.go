package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"facecam/internal/config"
	"facecam/internal/dto"
	"facecam/internal/logger"
	"facecam/internal/repository/sqlite"
	"facecam/internal/route"
	"facecam/internal/service/acquisition"
	"facecam/internal/service/capture"
	"facecam/internal/service/classifier"
	"facecam/internal/service/display"
	"facecam/internal/service/storage"
	"facecam/internal/service/websocket"
)

type App struct {
	config      *config.Config
	logger      *logger.Logger
	db          *sqlite.DB
	classifiers *classifier.Store
	slot        *display.Slot
	hub         *websocket.HubService
	streamer    *display.Streamer
	scheduler   *acquisition.Scheduler
	server      *http.Server

	shutdownOnce sync.Once
}

// noticeBroadcaster logs notices and forwards them to browser viewers.
type noticeBroadcaster struct {
	hub    *websocket.HubService
	logger *logger.Logger
}

func (n noticeBroadcaster) Notify(notice dto.Notice) {
	n.logger.Info("Notice [%s]: %s", notice.Kind, notice.Message)
	n.hub.BroadcastNotice(notice)
}

func NewApp(cfg *config.Config) (*App, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, err
	}
	imageRepo := sqlite.NewImageRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)

	classifiers := classifier.NewStore(cfg.HaarCascadePath, cfg.LBPCascadePath, classifier.LoadCascade)
	session := capture.NewSession(capture.OpenVideoCapture(capture.Options{
		Width:  cfg.FrameWidth,
		Height: cfg.FrameHeight,
	}), log)
	frames := storage.NewFrameStore(cfg, log, imageRepo, detectionRepo)

	slot := display.NewSlot()
	hub := websocket.NewHubService(log)
	streamer := display.NewStreamer(slot, hub, cfg.RedrawInterval(), log)

	scheduler := acquisition.NewScheduler(acquisition.Options{
		DeviceIndex: cfg.DeviceIndex,
		Period:      cfg.FramePeriod(),
		StopGrace:   cfg.StopGrace(),
	}, session, classifiers, slot, frames, noticeBroadcaster{hub: hub, logger: log}, log)

	router := route.SetupRoutes(scheduler, hub, cfg, log, imageRepo, detectionRepo)

	return &App{
		config:      cfg,
		logger:      log,
		db:          db,
		classifiers: classifiers,
		slot:        slot,
		hub:         hub,
		streamer:    streamer,
		scheduler:   scheduler,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until ctx is cancelled, the server fails or the display window is closed.
// The native window, when enabled, runs on the calling goroutine.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hub.Run(ctx)
	go a.streamer.Run(ctx)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		cancel()
	}()

	fmt.Printf("🚀 Face Camera Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📷 Camera: %d\n", a.config.DeviceIndex)
	fmt.Printf("📁 Images: %s\n", a.config.ImageDirectory)
	a.logger.Info("Server listening on %s", a.server.Addr)

	if a.config.ShowWindow {
		window := display.NewWindow("Face Detection", a.config.DisplayWidth, a.config.RedrawInterval(), a.slot, a.logger)
		if window.Run(ctx) {
			a.logger.Info("Window closed, shutting down")
		}
		cancel()
	} else {
		<-ctx.Done()
	}

	a.Shutdown()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// Shutdown stops acquisition and releases every resource. It runs once.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.scheduler.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warning("HTTP server shutdown: %v", err)
		}

		a.classifiers.Close()
		a.slot.Close()
		if err := a.db.Close(); err != nil {
			a.logger.Warning("Closing database: %v", err)
		}
		a.logger.Info("Shutdown complete")
		a.logger.Close()
	})
}
