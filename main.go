// Command motion.report ingests wearable motion telemetry from dancers,
// maintains bounded per-channel windows, derives correlation and spectral
// features, and emits OSC messages for the sonification patch. Packets arrive
// as JSON datagrams from the sensor bridge, or from a recorded session with
// -replay.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/biodata-sonata/motion.report/internal/archive"
	"github.com/biodata-sonata/motion.report/internal/config"
	"github.com/biodata-sonata/motion.report/internal/metrics"
	"github.com/biodata-sonata/motion.report/internal/monitoring"
	"github.com/biodata-sonata/motion.report/internal/osc"
	"github.com/biodata-sonata/motion.report/internal/telemetry/analysis"
	"github.com/biodata-sonata/motion.report/internal/telemetry/dispatch"
	"github.com/biodata-sonata/motion.report/internal/telemetry/pipeline"
	"github.com/biodata-sonata/motion.report/internal/telemetry/recorder"
	"github.com/biodata-sonata/motion.report/internal/telemetry/replay"
	"github.com/biodata-sonata/motion.report/internal/telemetry/scaling"
	"github.com/biodata-sonata/motion.report/internal/telemetry/series"
	"github.com/biodata-sonata/motion.report/internal/telemetry/xsens"
)

var (
	configPath     = flag.String("config", "", "Path to YAML config (defaults + SONATA_ env otherwise)")
	replayPath     = flag.String("replay", "", "Replay a recorded session file instead of listening for packets")
	replayInterval = flag.Duration("replay-interval", 0, "Pacing between replayed rows (0 = no pacing)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	verbosity, err := monitoring.ParseVerbosity(cfg.LogVerbosity)
	if err != nil {
		log.Fatalf("failed to parse verbosity: %v", err)
	}
	streams := monitoring.StreamsFor(verbosity, os.Stderr)
	dispatch.SetLogWriters(streams.Ops, streams.Diag)
	analysis.SetLogWriters(streams.Diag, streams.Trace)
	pipeline.SetLogWriters(streams.Ops, streams.Diag, streams.Trace)
	replay.SetLogWriters(streams.Ops, streams.Diag)
	xsens.SetLogWriters(streams.Ops, streams.Diag)

	locations, err := cfg.ParseLocations()
	if err != nil {
		log.Fatalf("failed to parse locations: %v", err)
	}
	locationMap, err := dispatch.NewLocationMap(locations)
	if err != nil {
		log.Fatalf("failed to build location map: %v", err)
	}
	pairs, err := cfg.ParsePairs()
	if err != nil {
		log.Fatalf("failed to parse correlation pairs: %v", err)
	}

	store := series.NewStore(cfg.Performers, cfg.Positions, cfg.WindowCapacity)
	notifier := dispatch.NewNotifier(nil, cfg.ObserverQueueDepth)
	dispatcher := dispatch.NewDispatcher(store, locationMap, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// Notifier drain for the presentation collaborator. A headless run has
	// no presenter attached, which turns this into a no-op.
	wg.Add(1)
	go func() {
		defer wg.Done()
		notifier.Run(ctx)
	}()

	// Metrics endpoint.
	wg.Add(1)
	go func() {
		defer wg.Done()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("failed to start metrics server: %v", err)
			}
		}()

		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics server shutdown error: %v", err)
		}
	}()

	if *replayPath != "" {
		// Replay mode: feed recorded rows through the dispatcher and exit.
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer stop()
			f, err := os.Open(*replayPath)
			if err != nil {
				log.Printf("failed to open replay file: %v", err)
				return
			}
			defer f.Close()
			applied, err := replay.New(dispatcher, *replayInterval).Replay(ctx, f)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("replay failed after %d rows: %v", applied, err)
				return
			}
			log.Printf("replayed %d rows", applied)
		}()
		wg.Wait()
		log.Print("graceful shutdown complete")
		return
	}

	// Live mode: recorder, archive, pipeline, UDP listener.
	var rows *recorder.Recorder
	if cfg.RecordingDir != "" || cfg.ArchivePath != "" {
		var w io.Writer
		if cfg.RecordingDir != "" {
			file, err := recorder.OpenSessionFile(cfg.RecordingDir)
			if err != nil {
				log.Fatalf("failed to open recording file: %v", err)
			}
			defer file.Close()
			w = file
		}
		var arch *archive.Archive
		var sessionID string
		if cfg.ArchivePath != "" {
			arch, err = archive.Open(cfg.ArchivePath)
			if err != nil {
				log.Fatalf("failed to open archive: %v", err)
			}
			defer arch.Close()
			sessionID, err = arch.StartSession("")
			if err != nil {
				log.Fatalf("failed to start archive session: %v", err)
			}
			defer func() {
				if err := arch.EndSession(sessionID); err != nil {
					log.Printf("failed to end archive session: %v", err)
				}
			}()
		}
		rows = recorder.New(w, arch, sessionID)
	}

	referencePerformer, referencePosition := cfg.Reference()
	pipeCfg := pipeline.Config{
		Dispatcher:          dispatcher,
		Scaling:             scaling.NewState(),
		Correlator:          analysis.NewEngine(store, pairs),
		Spectral:            analysis.NewExtractor(store),
		Transport:           osc.NewClient(cfg.OSCHost, cfg.OSCPort),
		ReferencePerformer:  referencePerformer,
		ReferencePosition:   referencePosition,
		HitThreshold:        cfg.HitThreshold,
		HitDebounce:         cfg.HitDebounce(),
		EmitSelfCorrelation: cfg.EmitSelfCorrelation,
		EmitSpectral:        cfg.EmitSpectral,
	}
	if rows != nil {
		pipeCfg.Recorder = rows
	}
	pipe, err := pipeline.New(pipeCfg)
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}

	listener := xsens.NewListener(xsens.ListenerConfig{
		Address:   cfg.ListenAddr,
		Locations: locationMap,
		Handler:   pipe.ProcessPacket,
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("listener stopped: %v", err)
		}
	}()

	wg.Wait()
	log.Print("graceful shutdown complete")
}
