package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/spinframe/internal/config"
	"github.com/banshee-data/spinframe/internal/lidar"
	"github.com/banshee-data/spinframe/internal/lidar/calib"
	"github.com/banshee-data/spinframe/internal/lidar/l1packets/network"
	"github.com/banshee-data/spinframe/internal/lidar/l2frames"
	"github.com/banshee-data/spinframe/internal/lidar/pipeline"
	"github.com/banshee-data/spinframe/internal/monitoring"
	"github.com/banshee-data/spinframe/internal/version"
)

func main() {
	cfg, opts, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}
	if opts.showVersion {
		fmt.Println(version.String())
		return
	}
	configureLogging(opts.verbosity)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, prometheus.DefaultRegisterer); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("spinframe: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}

// run builds the source and pipeline described by cfg and processes frames
// until the source is exhausted or ctx is cancelled.
func run(ctx context.Context, cfg *config.PipelineConfig, reg prometheus.Registerer) error {
	table, err := cfg.Calibration()
	if err != nil {
		return fmt.Errorf("failed to load calibration: %w", err)
	}
	monitoring.Logf("Calibration %s: %v, %d beams, %v return", table.Model, table.Family, table.BeamCount(), table.ReturnMode)

	stats := lidar.NewPacketStats()
	popts := pipeline.Options{
		SensorID:   cfg.GetSensorID(),
		Metrics:    monitoring.NewPipelineMetrics(reg),
		Stats:      stats,
		Workers:    cfg.GetWorkers(),
		QueueDepth: cfg.GetQueueDepth(),
	}

	var forwarder *network.Forwarder
	if addr := cfg.GetForwardAddr(); addr != "" {
		forwarder, err = network.NewForwarder(addr, cfg.GetLogInterval())
		if err != nil {
			return err
		}
		defer forwarder.Close()
		forwarder.Start(ctx)
	}

	src, closeSource, err := openSource(ctx, cfg, forwarder)
	if err != nil {
		return err
	}
	defer closeSource()

	if addr := cfg.GetMetricsListen(); addr != "" {
		stopServer := serveMetrics(addr)
		defer stopServer()
	}
	go logStats(ctx, stats, cfg.GetLogInterval())

	switch {
	case table.Family == calib.FamilyOuster:
		p, err := pipeline.NewOuster(table, popts)
		if err != nil {
			return err
		}
		return consume(ctx, p, src, cfg.GetWorkers())
	case table.Dual():
		p, err := pipeline.NewVelodyneDual(table, popts)
		if err != nil {
			return err
		}
		return consume(ctx, p, src, cfg.GetWorkers())
	default:
		p, err := pipeline.NewVelodyne(table, popts)
		if err != nil {
			return err
		}
		return consume(ctx, p, src, cfg.GetWorkers())
	}
}

type closeFunc func() error

func openSource(ctx context.Context, cfg *config.PipelineConfig, fwd *network.Forwarder) (pipeline.Source, closeFunc, error) {
	if path := cfg.GetPCAPFile(); path != "" {
		src, err := network.OpenPCAP(ctx, path, network.PCAPOptions{
			Port:      cfg.GetUDPPort(),
			Speed:     cfg.GetPCAPSpeed(),
			Forwarder: fwd,
		})
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	}

	src, err := network.NewUDPSource(ctx, network.UDPConfig{
		Address:   cfg.GetUDPListenAddress(),
		RcvBuf:    cfg.GetRcvBuf(),
		Forwarder: fwd,
	})
	if err != nil {
		return nil, nil, err
	}
	return src, src.Close, nil
}

// consume drains the pipeline, sequentially for a single worker and
// through the worker pool otherwise, logging a summary of each frame.
func consume[P any](ctx context.Context, p *pipeline.Pipeline[P], src pipeline.Source, workers int) error {
	var frames int
	defer func() { monitoring.Logf("sensor %s: %d frames", p.SensorID(), frames) }()

	if workers <= 1 {
		for f, err := range p.Frames(ctx, src) {
			if err != nil {
				return err
			}
			frames++
			logFrame(f)
		}
		return nil
	}

	out := make(chan *l2frames.Frame[P])
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx, src, out) }()
	for f := range out {
		frames++
		logFrame(f)
	}
	return <-errc
}

func logFrame[P any](f *l2frames.Frame[P]) {
	msg := f.String()
	if n := f.Skipped.Count; n > 0 {
		msg += fmt.Sprintf(", %d frame id(s) skipped from %d", n, f.Skipped.First)
	}
	lidar.Diagf("%s", msg)
}

func logStats(ctx context.Context, stats *lidar.PacketStats, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			stats.LogStats()
			return
		case <-ticker.C:
			stats.LogStats()
		}
	}
}

// serveMetrics starts the /metrics and /health endpoint and returns a
// function that shuts it down.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status": "ok", "service": "spinframe", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
	})

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Printf("Starting metrics server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics server shutdown error: %v", err)
			server.Close()
		}
	}
}
