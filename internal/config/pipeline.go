package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/spinframe/internal/lidar/calib"
)

// PipelineConfig is the process configuration for one sensor pipeline.
// Every field is optional; the Get* methods supply defaults, so partial
// files are safe.
type PipelineConfig struct {
	// Sensor and calibration
	SensorFamily    *string `json:"sensor_family,omitempty"` // "velodyne" or "ouster"
	Preset          *string `json:"preset,omitempty"`
	CalibrationFile *string `json:"calibration_file,omitempty"` // .json, .yaml, .yml or .csv
	ReturnMode      *string `json:"return_mode,omitempty"`      // "strongest", "last" or "dual"
	LidarMode       *string `json:"lidar_mode,omitempty"`       // Ouster only, e.g. "1024x10"
	SensorID        *string `json:"sensor_id,omitempty"`

	// Packet source: a capture file when pcap_file is set, UDP otherwise.
	UDPAddr     *string  `json:"udp_addr,omitempty"`
	UDPPort     *int     `json:"udp_port,omitempty"`
	RcvBuf      *int     `json:"rcv_buf,omitempty"`
	PCAPFile    *string  `json:"pcap_file,omitempty"`
	PCAPSpeed   *float64 `json:"pcap_speed,omitempty"`   // 0 replays as fast as possible
	ForwardAddr *string  `json:"forward_addr,omitempty"` // host:port mirror for raw payloads

	// Processing
	Workers    *int `json:"workers,omitempty"`
	QueueDepth *int `json:"queue_depth,omitempty"`

	// Reporting
	LogInterval   *string `json:"log_interval,omitempty"`   // duration string like "1m"
	MetricsListen *string `json:"metrics_listen,omitempty"` // e.g. ":9090", empty disables
}

// Default values used by the Get* methods.
const (
	DefaultSensorFamily  = "velodyne"
	DefaultVelodyneModel = "VLP-16"
	DefaultOusterModel   = "OS1-64"
	DefaultReturnMode    = "strongest"
	DefaultLidarMode     = "1024x10"
	DefaultVelodynePort  = 2368
	DefaultOusterPort    = 7502
	DefaultRcvBuf        = 4 << 20
	DefaultWorkers       = 4
	DefaultQueueDepth    = 8
	DefaultLogInterval   = time.Minute
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// DefaultPipelineConfig returns a config with every field set to its
// default for the default sensor family.
func DefaultPipelineConfig() *PipelineConfig {
	c := &PipelineConfig{}
	return &PipelineConfig{
		SensorFamily:  ptrString(c.GetSensorFamily()),
		Preset:        ptrString(c.GetPreset()),
		ReturnMode:    ptrString(c.GetReturnMode()),
		LidarMode:     ptrString(c.GetLidarMode()),
		UDPPort:       ptrInt(c.GetUDPPort()),
		RcvBuf:        ptrInt(c.GetRcvBuf()),
		Workers:       ptrInt(c.GetWorkers()),
		QueueDepth:    ptrInt(c.GetQueueDepth()),
		LogInterval:   ptrString(c.GetLogInterval().String()),
		MetricsListen: ptrString(""),
	}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file. The file must
// have a .json extension and be at most 1MB.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &PipelineConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that are set.
func (c *PipelineConfig) Validate() error {
	family, err := calib.ParseFamily(c.GetSensorFamily())
	if err != nil {
		return fmt.Errorf("sensor_family: %w", err)
	}
	mode, err := calib.ParseReturnMode(c.GetReturnMode())
	if err != nil {
		return fmt.Errorf("return_mode: %w", err)
	}
	if family == calib.FamilyOuster {
		if mode == calib.ReturnDual {
			return fmt.Errorf("return_mode dual is not supported for ouster sensors")
		}
		if _, err := calib.ParseLidarMode(c.GetLidarMode()); err != nil {
			return fmt.Errorf("lidar_mode: %w", err)
		}
	}

	if c.UDPPort != nil && (*c.UDPPort < 1 || *c.UDPPort > 65535) {
		return fmt.Errorf("udp_port must be between 1 and 65535, got %d", *c.UDPPort)
	}
	if c.RcvBuf != nil && *c.RcvBuf < 0 {
		return fmt.Errorf("rcv_buf must be non-negative, got %d", *c.RcvBuf)
	}
	if c.PCAPSpeed != nil && *c.PCAPSpeed < 0 {
		return fmt.Errorf("pcap_speed must be non-negative, got %f", *c.PCAPSpeed)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.QueueDepth != nil && *c.QueueDepth < 1 {
		return fmt.Errorf("queue_depth must be at least 1, got %d", *c.QueueDepth)
	}
	if c.LogInterval != nil && *c.LogInterval != "" {
		d, err := time.ParseDuration(*c.LogInterval)
		if err != nil {
			return fmt.Errorf("invalid log_interval '%s': %w", *c.LogInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("log_interval must be positive, got %s", d)
		}
	}
	if a := c.GetForwardAddr(); a != "" {
		if _, _, err := net.SplitHostPort(a); err != nil {
			return fmt.Errorf("invalid forward_addr '%s': %w", a, err)
		}
	}
	return nil
}

// GetSensorFamily returns the sensor_family value or the default.
func (c *PipelineConfig) GetSensorFamily() string {
	if c.SensorFamily == nil || *c.SensorFamily == "" {
		return DefaultSensorFamily
	}
	return strings.ToLower(*c.SensorFamily)
}

func (c *PipelineConfig) ouster() bool { return c.GetSensorFamily() == "ouster" }

// GetPreset returns the preset, defaulting to the family's common model.
func (c *PipelineConfig) GetPreset() string {
	if c.Preset != nil && *c.Preset != "" {
		return *c.Preset
	}
	if c.CalibrationFile != nil && *c.CalibrationFile != "" && !strings.EqualFold(filepath.Ext(*c.CalibrationFile), ".csv") {
		return "" // the file is self-contained or names its own preset
	}
	if c.ouster() {
		return DefaultOusterModel
	}
	return DefaultVelodyneModel
}

// GetCalibrationFile returns the calibration_file value or "".
func (c *PipelineConfig) GetCalibrationFile() string {
	if c.CalibrationFile == nil {
		return ""
	}
	return *c.CalibrationFile
}

// GetReturnMode returns the return_mode value or the default.
func (c *PipelineConfig) GetReturnMode() string {
	if c.ReturnMode == nil || *c.ReturnMode == "" {
		return DefaultReturnMode
	}
	return *c.ReturnMode
}

// GetLidarMode returns the lidar_mode value or the default.
func (c *PipelineConfig) GetLidarMode() string {
	if c.LidarMode == nil || *c.LidarMode == "" {
		return DefaultLidarMode
	}
	return *c.LidarMode
}

// GetSensorID returns the sensor_id value or "" to let the pipeline derive
// one from the calibration model.
func (c *PipelineConfig) GetSensorID() string {
	if c.SensorID == nil {
		return ""
	}
	return *c.SensorID
}

// GetUDPPort returns the udp_port value or the family's factory port.
func (c *PipelineConfig) GetUDPPort() int {
	if c.UDPPort != nil {
		return *c.UDPPort
	}
	if c.ouster() {
		return DefaultOusterPort
	}
	return DefaultVelodynePort
}

// GetUDPListenAddress returns the host:port to bind.
func (c *PipelineConfig) GetUDPListenAddress() string {
	host := ""
	if c.UDPAddr != nil {
		host = *c.UDPAddr
	}
	return net.JoinHostPort(host, fmt.Sprint(c.GetUDPPort()))
}

// GetRcvBuf returns the rcv_buf value or the default.
func (c *PipelineConfig) GetRcvBuf() int {
	if c.RcvBuf == nil {
		return DefaultRcvBuf
	}
	return *c.RcvBuf
}

// GetPCAPFile returns the pcap_file value or "".
func (c *PipelineConfig) GetPCAPFile() string {
	if c.PCAPFile == nil {
		return ""
	}
	return *c.PCAPFile
}

// GetPCAPSpeed returns the pcap_speed value or 0.
func (c *PipelineConfig) GetPCAPSpeed() float64 {
	if c.PCAPSpeed == nil {
		return 0
	}
	return *c.PCAPSpeed
}

// GetForwardAddr returns the forward_addr value or "".
func (c *PipelineConfig) GetForwardAddr() string {
	if c.ForwardAddr == nil {
		return ""
	}
	return *c.ForwardAddr
}

// GetWorkers returns the workers value or the default.
func (c *PipelineConfig) GetWorkers() int {
	if c.Workers == nil {
		return DefaultWorkers
	}
	return *c.Workers
}

// GetQueueDepth returns the queue_depth value or the default.
func (c *PipelineConfig) GetQueueDepth() int {
	if c.QueueDepth == nil {
		return DefaultQueueDepth
	}
	return *c.QueueDepth
}

// GetLogInterval parses and returns the LogInterval as a time.Duration.
func (c *PipelineConfig) GetLogInterval() time.Duration {
	if c.LogInterval == nil || *c.LogInterval == "" {
		return DefaultLogInterval
	}
	d, err := time.ParseDuration(*c.LogInterval)
	if err != nil || d <= 0 {
		return DefaultLogInterval
	}
	return d
}

// GetMetricsListen returns the metrics_listen value or "".
func (c *PipelineConfig) GetMetricsListen() string {
	if c.MetricsListen == nil {
		return ""
	}
	return *c.MetricsListen
}

// Calibration loads the calibration table described by the config and
// applies the configured return mode and lidar mode.
func (c *PipelineConfig) Calibration() (*calib.Table, error) {
	family, err := calib.ParseFamily(c.GetSensorFamily())
	if err != nil {
		return nil, err
	}
	table, err := calib.Load(c.GetPreset(), c.GetCalibrationFile())
	if err != nil {
		return nil, err
	}
	if table.Family != family {
		return nil, fmt.Errorf("calibration %s is for %v sensors, sensor_family is %v", table.Model, table.Family, family)
	}

	if c.ReturnMode != nil && *c.ReturnMode != "" {
		mode, err := calib.ParseReturnMode(*c.ReturnMode)
		if err != nil {
			return nil, err
		}
		table.ReturnMode = mode
	}
	if family == calib.FamilyOuster && c.LidarMode != nil && *c.LidarMode != "" {
		cols, err := calib.ParseLidarMode(*c.LidarMode)
		if err != nil {
			return nil, err
		}
		table.ColumnsPerRevolution = cols
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration: %w", err)
	}
	return table, nil
}
