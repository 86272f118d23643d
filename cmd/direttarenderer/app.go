package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"direttarenderer/internal/config"
	"direttarenderer/internal/controlplane"
	"direttarenderer/internal/core"
	"direttarenderer/internal/debugconsole"
	"direttarenderer/internal/logging"
	"direttarenderer/internal/orchestrator"
	"direttarenderer/internal/transport"
)

// App wires the Sync Core, Transition Orchestrator, and Control-Plane
// Bridge around a concrete downstream sink, and exposes the control-plane
// event stream over HTTP.
type App struct {
	cfg    *config.Config
	sink   transport.DownstreamSink
	logger *log.Logger

	cr     *core.Core
	orch   *orchestrator.Orchestrator
	events *controlplane.Broadcaster
	bridge *controlplane.Bridge
	hotlog *logging.HotPathQueue

	server  *http.Server
	console *debugconsole.Console

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewApp constructs an App from configuration and a downstream sink
// adapter (portaudiosink, wavdump, or a test double).
func NewApp(cfg *config.Config, sink transport.DownstreamSink, logger *log.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())

	cr := core.NewCore(1<<20, 0x00, 1<<16)

	hotlog := logging.NewHotPathQueue(256, logger.With("component", "core"))
	cr.SetHotLog(hotlog)

	orch := orchestrator.New(cr, sink, orchestrator.Config{
		Retry: orchestrator.RetryTables{
			Connect:       orchestrator.RetryPolicy{Attempts: cfg.Retry.ConnectAttempts, Delay: cfg.Retry.ConnectDelay},
			SetSink:       orchestrator.RetryPolicy{Attempts: cfg.Retry.SetSinkAttempts, Delay: cfg.Retry.SetSinkDelay},
			StartPlayback: orchestrator.RetryPolicy{Attempts: cfg.Retry.StartPlaybackAttempts, Delay: cfg.Retry.StartPlaybackDelay},
		},
		Conservative:     cfg.Retry.Conservative,
		MTU:              1500,
		PCMWarmupBuffers: cfg.Warmup.PCMBuffers,
		RingSeconds:      cfg.Ring.Seconds,
	})

	events := controlplane.NewBroadcaster(2*time.Second, logger.With("component", "events"))
	bridge := controlplane.NewBridge(orch, cr, events)
	bridge.SetGapless(cfg.Control.Gapless)

	return &App{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		cr:     cr,
		orch:   orch,
		events: events,
		bridge: bridge,
		hotlog: hotlog,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start brings up the control-plane HTTP endpoint. Playback itself begins
// only once a set_uri/play sequence arrives over the control plane.
func (a *App) Start() error {
	a.hotlog.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/events", a.events.ServeHTTP)

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Control.Port),
		Handler: mux,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("control-plane http server exited", "err", err)
		}
	}()

	if a.cfg.Control.DebugConsole {
		a.console = debugconsole.New(a.ctx, a.bridge, a.logger.With("component", "debugconsole"))
		if err := a.console.Start(); err != nil {
			a.logger.Error("failed to start debug console", "err", err)
		}
	}

	a.logger.Info("direttarenderer started", "name", a.cfg.Control.Name, "port", a.cfg.Control.Port)
	return nil
}

// Stop tears down playback and the control-plane endpoint.
func (a *App) Stop() error {
	a.cancel()

	if a.console != nil {
		a.console.Stop()
	}

	a.bridge.Stop(true)

	if a.server != nil {
		if err := a.server.Shutdown(context.Background()); err != nil {
			a.logger.Error("control-plane http server shutdown failed", "err", err)
		}
	}

	a.wg.Wait()
	a.hotlog.Stop()
	a.logger.Info("direttarenderer stopped")
	return nil
}

// Wait blocks until the application's context is cancelled.
func (a *App) Wait() {
	<-a.ctx.Done()
}
