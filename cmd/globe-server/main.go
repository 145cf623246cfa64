package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalsfoundry/peerglobe/internal/camera"
	"github.com/signalsfoundry/peerglobe/internal/config"
	"github.com/signalsfoundry/peerglobe/internal/control"
	"github.com/signalsfoundry/peerglobe/internal/engine"
	"github.com/signalsfoundry/peerglobe/internal/feed"
	"github.com/signalsfoundry/peerglobe/internal/interaction"
	"github.com/signalsfoundry/peerglobe/internal/logging"
	"github.com/signalsfoundry/peerglobe/internal/observability"
	"github.com/signalsfoundry/peerglobe/internal/stream"
	"github.com/signalsfoundry/peerglobe/kb"
	"github.com/signalsfoundry/peerglobe/model"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (default $"+config.EnvPath+" or ./peerglobe.yaml)")
	grpcAddr := flag.String("grpc-addr", "", "Override server.grpc_addr")
	httpAddr := flag.String("http-addr", "", "Override server.http_addr (websocket and JSON state)")
	metricsAddr := flag.String("metrics-addr", "", "Override server.metrics_addr; \"-\" disables metrics")
	entities := flag.String("entities", "", "Override feed.path with a local entity JSON file")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, path, err := config.Load(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load config", logging.String("path", path), logging.Err(err))
		os.Exit(1)
	}
	if *grpcAddr != "" {
		cfg.Server.GRPCAddr = *grpcAddr
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}
	if *metricsAddr == "-" {
		cfg.Server.MetricsAddr = ""
	} else if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}
	if *entities != "" {
		cfg.Feed.Path, cfg.Feed.URL = *entities, ""
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Warn(ctx, "tracing disabled", logging.Err(err))
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.Server.GRPCAddr), logging.Err(err))
		os.Exit(1)
	}

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "starting globe server", logging.String("config", path))
	if err := run(stopCtx, cfg, log, lis); err != nil {
		log.Error(ctx, "globe server failed", logging.Err(err))
		os.Exit(1)
	}
}

// run hosts the engine, its feed and all transports until ctx is done.
func run(ctx context.Context, cfg *config.Config, log logging.Logger, lis net.Listener) error {
	collector, err := observability.NewGlobeCollector(nil)
	if err != nil {
		return err
	}

	knowledge := kb.NewKnowledgeBase(cfg.LayoutOptions())

	var poller *feed.Poller
	if cfg.Feed.Path != "" || cfg.Feed.URL != "" {
		src, err := feed.NewSource(cfg.Feed.Path, cfg.Feed.URL, cfg.Feed.Timeout)
		if err != nil {
			return err
		}
		poller = feed.NewPoller(src, knowledge, cfg.Feed.Interval, log, collector)
	}

	var hub *stream.Hub
	eng := engine.New(knowledge, engine.Options{
		FrameInterval: cfg.FrameInterval(),
		Viewport:      cfg.ModelViewport(),
		Start: camera.Command{
			Center: model.Coordinate{Lat: cfg.Camera.Lat, Lon: cfg.Camera.Lon},
			Zoom:   cfg.Camera.Zoom,
		},
		LoadSettle: cfg.Camera.LoadSettle,
		Planner:    cfg.Navigation,
		Rotation:   cfg.Rotation,
		Overlay:    cfg.Overlay,
		Callbacks: interaction.Callbacks{
			OpenDetail: func(id string) {
				log.Info(context.Background(), "open detail requested", logging.String("entity_id", id))
			},
		},
		Logger:  log,
		Metrics: collector,
		Publish: func(st engine.State) {
			if hub != nil {
				hub.Publish(st)
			}
		},
	})
	hub = stream.NewHub(eng, eng, log, collector)

	engineDone := make(chan error, 1)
	go func() { engineDone <- eng.Run(ctx) }()
	go hub.Run(ctx)

	if poller != nil {
		go poller.Run(ctx)
	} else {
		log.Warn(ctx, "no entity feed configured; the globe stays empty")
	}

	grpcSrv, health := control.NewGRPCServer(eng, log, collector)
	go func() {
		log.Info(ctx, "serving gRPC control", logging.String("addr", lis.Addr().String()))
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error(ctx, "gRPC server exited", logging.Err(err))
		}
	}()

	httpSrv := serveHTTP(cfg.Server.HTTPAddr, eng, hub, log)
	metricsSrv := serveMetrics(cfg.Server.MetricsAddr, collector, log)

	<-ctx.Done()
	log.Info(context.Background(), "shutting down globe server")

	health.Shutdown()
	grpcSrv.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range []*http.Server{httpSrv, metricsSrv} {
		if srv != nil {
			_ = srv.Shutdown(shutdownCtx)
		}
	}

	if err := <-engineDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func serveHTTP(addr string, eng *engine.Engine, hub *stream.Hub, log logging.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, eng.State())
	})
	mux.HandleFunc("/api/layout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, eng.Layout())
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "http server exited", logging.Err(err))
		}
	}()
	log.Info(context.Background(), "serving websocket stream", logging.String("addr", addr))
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func serveMetrics(addr string, collector *observability.GlobeCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()
	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
