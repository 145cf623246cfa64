// Package config loads the globe server configuration.
//
// Config file locations (priority order):
//  1. the path given on the command line
//  2. $PEERGLOBE_CONFIG
//  3. ./peerglobe.yaml
//
// Every key is optional; missing values fall back to DefaultConfig.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/peerglobe/core"
	"github.com/signalsfoundry/peerglobe/internal/camera"
	"github.com/signalsfoundry/peerglobe/internal/overlay"
	"github.com/signalsfoundry/peerglobe/internal/rotation"
	"github.com/signalsfoundry/peerglobe/model"
)

// EnvPath names the environment variable holding a config path.
const EnvPath = "PEERGLOBE_CONFIG"

const defaultFile = "peerglobe.yaml"

// Config is the complete server configuration.
type Config struct {
	FPS        int                  `yaml:"fps"`
	Layout     LayoutConfig         `yaml:"layout"`
	Navigation camera.PlannerConfig `yaml:"navigation"`
	Rotation   rotation.Config      `yaml:"rotation"`
	Overlay    overlay.Config       `yaml:"overlay"`
	Viewport   ViewportConfig       `yaml:"viewport"`
	Camera     CameraConfig         `yaml:"camera"`
	Feed       FeedConfig           `yaml:"feed"`
	Server     ServerConfig         `yaml:"server"`
}

// LayoutConfig tunes clustering and ring packing.
type LayoutConfig struct {
	RingSpacingMeters float64 `yaml:"ring_spacing_meters"`
	RingTwistDegrees  float64 `yaml:"ring_twist_degrees"`
	ClusterPrecision  int     `yaml:"cluster_precision"`
}

// ViewportConfig is the headless surface size.
type ViewportConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// CameraConfig is the initial camera.
type CameraConfig struct {
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
	Zoom float64 `yaml:"zoom"`

	// LoadSettle is the load-in move duration; negative disables it.
	LoadSettle time.Duration `yaml:"load_settle"`
}

// FeedConfig points at the entity list. Path and URL are mutually exclusive.
type FeedConfig struct {
	Path     string        `yaml:"path"`
	URL      string        `yaml:"url"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ServerConfig holds listen addresses.
type ServerConfig struct {
	GRPCAddr    string `yaml:"grpc_addr"`
	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns the defaults used when no file is present.
func DefaultConfig() *Config {
	ring := core.DefaultRingOptions()
	return &Config{
		FPS: 60,
		Layout: LayoutConfig{
			RingSpacingMeters: ring.SpacingMeters,
			RingTwistDegrees:  ring.TwistDegrees,
			ClusterPrecision:  core.DefaultClusterPrecision,
		},
		Navigation: camera.DefaultPlannerConfig(),
		Rotation:   rotation.DefaultConfig(),
		Overlay:    overlay.DefaultConfig(),
		Viewport:   ViewportConfig{Width: 1280, Height: 800},
		Camera:     CameraConfig{Lat: 20, Lon: 0, Zoom: 1.5, LoadSettle: 1500 * time.Millisecond},
		Feed:       FeedConfig{Interval: 30 * time.Second, Timeout: 10 * time.Second},
		Server: ServerConfig{
			GRPCAddr:    ":50061",
			HTTPAddr:    ":8088",
			MetricsAddr: ":9090",
		},
	}
}

// Load resolves the config path and loads it, returning defaults when no file
// is found. The returned path is empty in that case.
func Load(explicit string) (*Config, string, error) {
	path := FindConfigPath(explicit)
	if path == "" {
		return DefaultConfig(), "", nil
	}
	cfg, err := LoadFromPath(path)
	return cfg, path, err
}

// FindConfigPath returns the first existing config path, or "".
func FindConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	if _, err := os.Stat(defaultFile); err == nil {
		return defaultFile
	}
	return ""
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.FPS <= 0 {
		c.FPS = def.FPS
	}
	if c.Layout.RingSpacingMeters <= 0 {
		c.Layout.RingSpacingMeters = def.Layout.RingSpacingMeters
	}
	if c.Layout.RingTwistDegrees == 0 {
		c.Layout.RingTwistDegrees = def.Layout.RingTwistDegrees
	}
	if c.Layout.ClusterPrecision <= 0 {
		c.Layout.ClusterPrecision = def.Layout.ClusterPrecision
	}

	if len(c.Navigation.Bands) == 0 {
		c.Navigation.Bands = def.Navigation.Bands
	}
	z, dz := &c.Navigation.Zoom, def.Navigation.Zoom
	if z.Regional <= 0 {
		z.Regional = dz.Regional
	}
	if z.City <= 0 {
		z.City = dz.City
	}
	if z.Street <= 0 {
		z.Street = dz.Street
	}
	if z.SmallClusterMax <= 0 {
		z.SmallClusterMax = dz.SmallClusterMax
	}
	if z.CityPitch == 0 && z.StreetPitch == 0 {
		z.CityPitch, z.StreetPitch = dz.CityPitch, dz.StreetPitch
	}

	if c.Rotation.DegreesPerSecond == 0 {
		c.Rotation.DegreesPerSecond = def.Rotation.DegreesPerSecond
	}
	if c.Rotation.MaxFrameGap <= 0 {
		c.Rotation.MaxFrameGap = def.Rotation.MaxFrameGap
	}

	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		c.Viewport = def.Viewport
	}
	if c.Camera.Zoom <= 0 {
		c.Camera.Zoom = def.Camera.Zoom
	}
	if c.Camera.LoadSettle == 0 {
		c.Camera.LoadSettle = def.Camera.LoadSettle
	}
	if c.Feed.Interval <= 0 {
		c.Feed.Interval = def.Feed.Interval
	}
	if c.Feed.Timeout <= 0 {
		c.Feed.Timeout = def.Feed.Timeout
	}
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = def.Server.GRPCAddr
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = def.Server.HTTPAddr
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = def.Server.MetricsAddr
	}
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Feed.Path != "" && c.Feed.URL != "" {
		errs = append(errs, errors.New("feed: path and url are mutually exclusive"))
	}
	if c.FPS > 240 {
		errs = append(errs, fmt.Errorf("fps %d exceeds 240", c.FPS))
	}
	if c.Layout.ClusterPrecision > 8 {
		errs = append(errs, fmt.Errorf("layout: cluster_precision %d exceeds 8", c.Layout.ClusterPrecision))
	}
	if !core.ValidCoordinate(model.Coordinate{Lat: c.Camera.Lat, Lon: c.Camera.Lon}) {
		errs = append(errs, fmt.Errorf("camera: invalid start coordinate %v,%v", c.Camera.Lat, c.Camera.Lon))
	}
	prev := 0.0
	for i, b := range c.Navigation.Bands {
		if b.Duration < 0 {
			errs = append(errs, fmt.Errorf("navigation: band %d has negative duration", i))
		}
		if i < len(c.Navigation.Bands)-1 && b.MaxDistanceKm <= prev {
			errs = append(errs, fmt.Errorf("navigation: band %d max_distance_km must increase", i))
		}
		prev = b.MaxDistanceKm
	}
	return errors.Join(errs...)
}

// LayoutOptions converts the layout section for the core pipeline.
func (c *Config) LayoutOptions() core.LayoutOptions {
	return core.LayoutOptions{
		ClusterPrecision: c.Layout.ClusterPrecision,
		Ring: core.RingOptions{
			SpacingMeters: c.Layout.RingSpacingMeters,
			TwistDegrees:  c.Layout.RingTwistDegrees,
		},
	}
}

// FrameInterval is the ticker period for the configured FPS.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

// ModelViewport returns the viewport section as a model value.
func (c *Config) ModelViewport() model.Viewport {
	return model.Viewport{Width: c.Viewport.Width, Height: c.Viewport.Height}
}
