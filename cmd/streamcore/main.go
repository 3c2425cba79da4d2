// Command streamcore is the stream core's process entry point: it wires
// configuration, logging, the source router, and each delivery component
// (HLS, WebRTC, snapshot, PTZ) behind one HTTP/WS API server, then waits for
// a shutdown signal.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zmstream/streamcore/internal/api"
	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/core/hlssession"
	"github.com/zmstream/streamcore/internal/core/ptz"
	"github.com/zmstream/streamcore/internal/core/snapshot"
	"github.com/zmstream/streamcore/internal/core/sourcerouter"
	"github.com/zmstream/streamcore/internal/core/webrtcsession"
	"github.com/zmstream/streamcore/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a key=value config file (STREAMCORE_* env vars override)")
	logFlags := logger.RegisterFlags(flag.CommandLine)
	flag.Parse()

	logCfg, err := logFlags.ToConfig()
	if err != nil {
		log.Fatalf("invalid logging flags: %v", err)
	}
	lg, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer lg.Close()
	logger.SetDefault(lg)

	lg.Info("starting streamcore")

	cfg, err := config.Load(*configPath)
	if err != nil {
		lg.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitors := api.NewMonitorRegistry()
	caps := api.NewCapabilityStore()
	auth := api.NewAuthenticator()

	router := sourcerouter.New(cfg.Pipe, cfg.Router, lg.With("component", "router"))
	defer router.Shutdown()

	hlsManager := hlssession.NewManager(cfg.HLS, lg.With("component", "hls"))
	go hlsManager.RunSweeper(ctx)

	webrtcManager, err := webrtcsession.NewManager(cfg.WebRTC, router, lg.With("component", "webrtc"))
	if err != nil {
		lg.Error("failed to initialize webrtc engine", "error", err)
		os.Exit(1)
	}

	snapshotService := snapshot.New(router, cfg.Snapshot, lg.With("component", "snapshot"))
	defer snapshotService.Close()

	ptzController := ptz.NewController(cfg.PTZ, lg.With("component", "ptz"))
	defer ptzController.Close()

	apiServer := api.NewServer(cfg.API, api.Deps{
		Router:     router,
		HLS:        hlsManager,
		WebRTC:     webrtcManager,
		Snapshot:   snapshotService,
		PTZ:        ptzController,
		Monitors:   monitors,
		Caps:       caps,
		Auth:       auth,
		HLSWaitMax: cfg.HLS.PlaylistWaitMax,
	}, lg.With("component", "api"))

	if err := apiServer.Start(ctx); err != nil {
		lg.Error("failed to start api server", "error", err)
		os.Exit(1)
	}
	lg.Info("api server listening", "address", cfg.API.ListenAddr)

	go monitorStatus(ctx, router, hlsManager, webrtcManager, lg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	lg.Info("running, press ctrl+c to stop")
	<-sigCh

	lg.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		lg.Error("error stopping api server", "error", err)
	}

	lg.Info("shutdown complete")
}

// monitorStatus periodically logs aggregate source/session counts, the
// process-wide analog of the ambient stack's status report.
func monitorStatus(ctx context.Context, router *sourcerouter.Router, hls *hlssession.Manager, webrtc *webrtcsession.Manager, lg *logger.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lg.Info("status report",
				"active_sources", router.ActiveSourceCount(),
				"hls_sessions", len(hls.ListSessions()),
				"webrtc_sessions", webrtc.SessionCount(),
			)
		}
	}
}
