package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/ambient/l2zones"
	"github.com/banshee-data/ambilight/internal/ambient/l3aspect"
	"github.com/banshee-data/ambilight/internal/ambient/l4color"
	"github.com/banshee-data/ambilight/internal/ambient/l5smooth"
	"github.com/banshee-data/ambilight/internal/ambient/pipeline"
	"github.com/banshee-data/ambilight/internal/config"
	"github.com/banshee-data/ambilight/internal/monitoring"
	"github.com/banshee-data/ambilight/internal/output"
	"github.com/banshee-data/ambilight/internal/telemetry"
	"github.com/banshee-data/ambilight/internal/timeutil"
	"github.com/banshee-data/ambilight/internal/version"
	"github.com/banshee-data/ambilight/internal/visualiser"
)

var (
	configPath  = flag.String("config", config.DefaultConfigPath, "Path to the pipeline JSON config")
	devMode     = flag.Bool("dev", false, "Capture from a synthetic colour-cycling source")
	devBars     = flag.String("dev-bars", "none", "Black bars painted by the dev source: none, letterbox or pillarbox")
	imagePath   = flag.String("image", "", "Capture from a still PNG or JPEG instead of the screen")
	listen      = flag.String("listen", "localhost:8090", "Debug HTTP listen address (empty disables)")
	grpcListen  = flag.String("grpc", "", "Preview gRPC listen address (empty disables)")
	telemetryDB = flag.String("telemetry-db", "", "SQLite file for session telemetry (empty disables)")
	statsEvery  = flag.Duration("stats-interval", 30*time.Second, "How often pipeline counters are written to telemetry")
	verbose     = flag.Bool("v", false, "Enable diagnostic logging")
	trace       = flag.Bool("trace", false, "Enable per-frame trace logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	log.Printf("starting %s", version.String())
	setupLogging(*verbose, *trace)

	cfg, err := config.LoadPipelineConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := timeutil.RealClock{}

	src, err := openSource(cfg, clock)
	if err != nil {
		log.Fatalf("failed to open capture source: %v", err)
	}
	defer src.Close()

	sinks, err := output.Open(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("failed to open output: %v", err)
	}
	defer sinks.Close()

	listeners := []pipeline.VariantListener{sinks}
	publisher := output.NewMultiSink(sinks)

	var preview *visualiser.Server
	if *grpcListen != "" {
		preview = visualiser.NewServer(visualiser.Config{ListenAddr: *grpcListen})
		if err := preview.Start(); err != nil {
			log.Fatalf("failed to start preview server: %v", err)
		}
		defer preview.Stop()
		publisher = output.NewMultiSink(sinks, preview)
		listeners = append(listeners, preview)
	}

	var store *telemetry.Store
	if *telemetryDB != "" {
		store, err = telemetry.Open(*telemetryDB, clock)
		if err != nil {
			log.Fatalf("failed to open telemetry database: %v", err)
		}
		defer store.Close()
		id, err := store.StartSession(cfg.GetLEDCount(), cfg.JSON())
		if err != nil {
			log.Fatalf("failed to start telemetry session: %v", err)
		}
		defer store.EndSession()
		log.Printf("telemetry session %s", id)
		listeners = append(listeners, store)
	}

	orch, err := pipeline.FromConfig(cfg, publisher, listeners, clock)
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}
	log.Printf("pipeline ready: %d zones, output=%s", orch.Zones().Active().Len(), cfg.GetOutput())

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := orch.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("pipeline worker stopped: %v", err)
		}
		log.Print("pipeline worker terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := orch.Pump(ctx, src); err != nil && err != context.Canceled {
			log.Printf("capture stopped: %v", err)
			stop()
		}
		log.Print("capture routine terminated")
	}()

	if cfg.GetAutoDetectBlackBars() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			orch.RunAspectTimer(ctx, cfg.GetAspectCheckInterval())
		}()
	}

	if store != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.RunStatsRecorder(ctx, orch.Stats(), *statsEvery)
		}()
	}

	if *listen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveDebug(ctx, *listen, orch, store, preview)
		}()
	}

	wg.Wait()
	snap := orch.Stats().Snapshot()
	log.Printf("processed=%d dropped=%d published=%d switches=%d", snap.Processed, snap.Dropped, snap.Published, snap.VariantSwitches)
	log.Printf("Graceful shutdown complete")
}

func setupLogging(verbose, trace bool) {
	ops := monitoring.Writer()
	var diag, tr io.Writer
	if verbose {
		diag = ops
	}
	if trace {
		tr = ops
	}
	l2zones.SetLogWriters(ops, diag, tr)
	l3aspect.SetLogWriters(ops, diag, tr)
	l4color.SetLogWriters(ops, diag, tr)
	l5smooth.SetLogWriters(ops, diag, tr)
	pipeline.SetLogWriters(ops, diag, tr)
	output.SetLogWriters(ops, diag, tr)
	visualiser.SetLogWriters(ops, diag, tr)
}

func openSource(cfg *config.PipelineConfig, clock timeutil.Clock) (l1frames.Source, error) {
	switch {
	case *imagePath != "":
		img, err := l1frames.LoadImage(*imagePath)
		if err != nil {
			return nil, err
		}
		return l1frames.NewImageSource(img, float64(cfg.GetCaptureFPS()), clock)
	case *devMode:
		sc := l1frames.DefaultSyntheticConfig()
		sc.Width = cfg.GetCaptureWidth()
		sc.Height = cfg.GetCaptureHeight()
		sc.FPS = float64(cfg.GetCaptureFPS())
		sc.Clock = clock
		switch *devBars {
		case "letterbox":
			sc.Bars = l1frames.LetterboxBars
		case "pillarbox":
			sc.Bars = l1frames.PillarboxBars
		case "none", "":
		default:
			return nil, fmt.Errorf("unknown -dev-bars %q", *devBars)
		}
		return l1frames.NewSyntheticSource(sc)
	}
	return nil, fmt.Errorf("no screen capture backend is built in; use -dev or -image")
}

func serveDebug(ctx context.Context, addr string, orch *pipeline.Orchestrator, store *telemetry.Store, preview *visualiser.Server) {
	mux := http.NewServeMux()
	orch.AttachAdminRoutes(mux)
	if store != nil {
		if err := store.AttachAdminRoutes(mux); err != nil {
			log.Printf("telemetry admin routes: %v", err)
		}
	}
	if preview != nil {
		preview.AttachAdminRoutes(mux)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("debug server failed: %v", err)
		}
	}()
	log.Printf("debug server on http://%s/debug/", addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		server.Close()
	}
	log.Printf("HTTP server routine stopped")
}
