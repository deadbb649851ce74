package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/spinframe/internal/config"
	"github.com/banshee-data/spinframe/internal/lidar"
	"github.com/banshee-data/spinframe/internal/lidar/l2frames"
	"github.com/banshee-data/spinframe/internal/lidar/pipeline"
	"github.com/banshee-data/spinframe/internal/monitoring"
)

// cliOptions are the settings that only exist on the command line.
type cliOptions struct {
	verbosity   int
	showVersion bool
}

// parseArgs loads the optional -config file and overlays every flag given
// explicitly on the command line.
func parseArgs(args []string, stderr io.Writer) (*config.PipelineConfig, cliOptions, error) {
	fs := flag.NewFlagSet("spinframe", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configFile    = fs.String("config", "", "Path to a JSON pipeline config file")
		family        = fs.String("family", config.DefaultSensorFamily, "Sensor family: velodyne or ouster")
		preset        = fs.String("preset", "", "Built-in calibration preset (VLP-16, PUCK-HIRES, HDL-32E, VLP-32C, OS1-16, OS1-64)")
		calibration   = fs.String("calibration", "", "Calibration file (.json, .yaml, .yml or .csv)")
		returnMode    = fs.String("return-mode", config.DefaultReturnMode, "Return mode: strongest, last or dual")
		lidarMode     = fs.String("lidar-mode", config.DefaultLidarMode, "Ouster lidar mode, e.g. 1024x10")
		sensorID      = fs.String("sensor-id", "", "Sensor label used in frame IDs and metrics (default: calibration model)")
		udpAddr       = fs.String("udp-addr", "", "UDP bind address (default: listen on all interfaces)")
		udpPort       = fs.Int("udp-port", config.DefaultVelodynePort, "UDP port to listen for lidar packets")
		rcvBuf        = fs.Int("rcvbuf", config.DefaultRcvBuf, "UDP receive buffer size in bytes")
		pcapFile      = fs.String("pcap", "", "Replay a pcap/pcapng capture (optionally .gz) instead of listening")
		pcapSpeed     = fs.Float64("pcap-speed", 0, "Replay speed multiplier for -pcap, 0 replays as fast as possible")
		forwardAddr   = fs.String("forward", "", "Forward raw packets to host:port")
		workers       = fs.Int("workers", config.DefaultWorkers, "Conversion workers, 1 runs the pipeline sequentially")
		queueDepth    = fs.Int("queue-depth", config.DefaultQueueDepth, "Per-worker queue length")
		logInterval   = fs.Duration("log-interval", config.DefaultLogInterval, "Statistics logging interval")
		metricsListen = fs.String("metrics-listen", "", "HTTP address for /metrics and /health, e.g. :9090")
	)
	var opts cliOptions
	fs.IntVar(&opts.verbosity, "v", 1, "Log verbosity: 0 ops only, 1 adds frame summaries, 2 adds per-packet trace")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}
	if fs.NArg() > 0 {
		return nil, opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := &config.PipelineConfig{}
	if *configFile != "" {
		loaded, err := config.LoadPipelineConfig(*configFile)
		if err != nil {
			return nil, opts, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "family":
			cfg.SensorFamily = family
		case "preset":
			cfg.Preset = preset
		case "calibration":
			cfg.CalibrationFile = calibration
		case "return-mode":
			cfg.ReturnMode = returnMode
		case "lidar-mode":
			cfg.LidarMode = lidarMode
		case "sensor-id":
			cfg.SensorID = sensorID
		case "udp-addr":
			cfg.UDPAddr = udpAddr
		case "udp-port":
			cfg.UDPPort = udpPort
		case "rcvbuf":
			cfg.RcvBuf = rcvBuf
		case "pcap":
			cfg.PCAPFile = pcapFile
		case "pcap-speed":
			cfg.PCAPSpeed = pcapSpeed
		case "forward":
			cfg.ForwardAddr = forwardAddr
		case "workers":
			cfg.Workers = workers
		case "queue-depth":
			cfg.QueueDepth = queueDepth
		case "log-interval":
			s := logInterval.String()
			cfg.LogInterval = &s
		case "metrics-listen":
			cfg.MetricsListen = metricsListen
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, opts, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, opts, nil
}

// configureLogging routes the three log streams of every package to
// stderr according to verbosity.
func configureLogging(verbosity int) {
	var diag, trace io.Writer
	if verbosity >= 1 {
		diag = os.Stderr
	}
	if verbosity >= 2 {
		trace = os.Stderr
	}
	lidar.SetLogWriters(lidar.LogWriters{Ops: os.Stderr, Diag: diag, Trace: trace})
	l2frames.SetLogWriters(os.Stderr, diag, trace)
	pipeline.SetLogWriters(os.Stderr, diag, trace)
	monitoring.SetOutput(os.Stderr, "[spinframe] ")
}
