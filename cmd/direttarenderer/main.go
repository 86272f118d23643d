package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"

	"direttarenderer/internal/config"
	"direttarenderer/internal/discovery"
	"direttarenderer/internal/logging"
	"direttarenderer/internal/transport/portaudiosink"
)

const versionString = "direttarenderer 0.1.0"

func main() {
	var (
		name         = pflag.String("name", "", "Renderer name advertised on the control plane.")
		port         = pflag.Int("port", 0, "Control-plane HTTP port.")
		uuidFlag     = pflag.String("uuid", "", "Renderer UUID; a random one is generated for this run if neither this flag nor the config sets one.")
		target       = pflag.Int("target", 0, "1-based index into --list-targets; stored in the discovery config; no other code reads it.")
		iface        = pflag.String("interface", "", "Network interface name; stored in the discovery config, which neither discovery nor the control plane reads.")
		listTargets  = pflag.Bool("list-targets", false, "List discovered renderer targets on the LAN and exit.")
		noGapless    = pflag.Bool("no-gapless", false, "Disable gapless set_next_uri handling.")
		debugConsole = pflag.Bool("debug-console", false, "Start an interactive stdin console for play/pause/resume/stop/volume.")
		verbose      = pflag.Bool("verbose", false, "Enable debug-level logging.")
		showVersion  = pflag.Bool("version", false, "Print version and exit.")
		configFile   = pflag.String("config", "", "Path to a config file; overrides the conventional search path.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - a network audio renderer transport core.\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *showVersion {
		fmt.Println(versionString)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "direttarenderer: %v\n", err)
		os.Exit(1)
	}

	if *name != "" {
		cfg.Control.Name = *name
	}
	if *port != 0 {
		cfg.Control.Port = *port
	}
	if *uuidFlag != "" {
		cfg.Control.UUID = *uuidFlag
	} else if cfg.Control.UUID == "" {
		cfg.Control.UUID = uuid.NewString()
	}
	if *iface != "" {
		cfg.Discovery.Interface = *iface
	}
	if *target != 0 {
		cfg.Discovery.TargetIndex = *target
	}
	if *noGapless {
		cfg.Control.Gapless = false
	}
	if *debugConsole {
		cfg.Control.DebugConsole = true
	}

	logging.SetVerbose(*verbose)
	logger := logging.For("main")

	if *listTargets {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Discovery.BrowseTimeout)
		defer cancel()
		targets, err := discovery.Browse(ctx, cfg.Discovery.ServiceType, cfg.Discovery.BrowseTimeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "direttarenderer: list-targets: %v\n", err)
			os.Exit(1)
		}
		for i, t := range targets {
			fmt.Printf("%d: %s (%s:%d)\n", i+1, t.InstanceName, t.Host, t.Port)
		}
		os.Exit(0)
	}

	if err := portaudio.Initialize(); err != nil {
		logger.Error("failed to initialize portaudio", "err", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()

	sink := portaudiosink.New(logger)

	app := NewApp(cfg, sink, logger)
	if err := app.Start(); err != nil {
		logger.Error("failed to start", "err", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	doneCh := make(chan struct{})
	go func() {
		app.Wait()
		close(doneCh)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received exit signal", "signal", sig.String())
	case <-doneCh:
		logger.Info("application terminated voluntarily")
	}

	if err := app.Stop(); err != nil {
		logger.Error("failed to shut down cleanly", "err", err)
		os.Exit(1)
	}

	os.Exit(0)
}
