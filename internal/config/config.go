// Package config handles configuration loading and shared data structures.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults used when the configuration file omits a value.
const (
	DefaultEndpoint    = "https://disease.sh/v3/covid-19/countries"
	DefaultTiles       = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
	DefaultZoom        = 2
	DefaultTimeLayout  = "1/2/2006, 3:04:05 PM MST"
	DefaultTimezone    = "Local"
	DefaultTileLimit   = 6
	MaxZoom            = 19
)

// Config represents the root configuration file structure.
type Config struct {
	Map     Map     `yaml:"map" json:"map"`
	Source  Source  `yaml:"source" json:"-"`
	Display Display `yaml:"display" json:"-"`
	Tiles   Tiles   `yaml:"tiles" json:"-"`
}

// Map describes the initial view of the map widget.
type Map struct {
	Center      Center `yaml:"center" json:"center"`
	Tiles       string `yaml:"tiles,omitempty" json:"tiles"`
	Attribution string `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	Zoom        int    `yaml:"zoom,omitempty" json:"zoom"`
}

// Center is the initial map center in WGS84.
type Center struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

// Source configures the upstream case-count service.
type Source struct {
	Endpoint string        `yaml:"endpoint,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`   // zero keeps the transport default
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty"` // zero fetches on every page load
	Strict   bool          `yaml:"strict,omitempty"`
}

// Display controls popup formatting.
type Display struct {
	Timezone   string `yaml:"timezone,omitempty"`
	TimeLayout string `yaml:"time_layout,omitempty"`
}

// Tiles configures the optional base map tile proxy.
type Tiles struct {
	Upstream  string `yaml:"upstream,omitempty"`
	CacheDir  string `yaml:"cache_dir,omitempty"`
	ZoomLimit int    `yaml:"zoom_limit,omitempty"`
}

// Enabled reports whether tiles are proxied through the local cache.
func (t Tiles) Enabled() bool {
	return t.CacheDir != ""
}

// Default returns a configuration centered on 0,0 at zoom 2.
func Default() *Config {
	cfg := &Config{Map: Map{Zoom: DefaultZoom}}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the YAML configuration file from the specified path.
// A missing file is not an error and yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Config{Map: Map{Zoom: DefaultZoom}}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Map.Attribution == "" {
		c.Map.Attribution = DefaultAttribution
	}
	if c.Source.Endpoint == "" {
		c.Source.Endpoint = DefaultEndpoint
	}
	if c.Display.Timezone == "" {
		c.Display.Timezone = DefaultTimezone
	}
	if c.Display.TimeLayout == "" {
		c.Display.TimeLayout = DefaultTimeLayout
	}
	if c.Tiles.Upstream == "" {
		c.Tiles.Upstream = DefaultTiles
	}
	if c.Tiles.ZoomLimit <= 0 {
		c.Tiles.ZoomLimit = DefaultTileLimit
	}
	if c.Map.Tiles == "" {
		if c.Tiles.Enabled() {
			c.Map.Tiles = "/tiles/{z}/{x}/{y}.webp"
		} else {
			c.Map.Tiles = c.Tiles.Upstream
		}
	}
}

// Validate checks values that cannot be repaired by defaults.
func (c *Config) Validate() error {
	if c.Map.Zoom < 1 || c.Map.Zoom > MaxZoom {
		return fmt.Errorf("map.zoom must be between 1 and %d, got %d", MaxZoom, c.Map.Zoom)
	}
	if c.Map.Center.Lat < -90 || c.Map.Center.Lat > 90 {
		return fmt.Errorf("map.center.lat out of range: %v", c.Map.Center.Lat)
	}
	if c.Map.Center.Lng < -180 || c.Map.Center.Lng > 180 {
		return fmt.Errorf("map.center.lng out of range: %v", c.Map.Center.Lng)
	}

	u, err := url.Parse(c.Source.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("source.endpoint is not an http(s) URL: %q", c.Source.Endpoint)
	}
	if c.Source.Timeout < 0 {
		return errors.New("source.timeout must not be negative")
	}
	if c.Source.CacheTTL < 0 {
		return errors.New("source.cache_ttl must not be negative")
	}

	if _, err := c.Display.Location(); err != nil {
		return fmt.Errorf("display.timezone: %w", err)
	}

	if c.Tiles.ZoomLimit > MaxZoom {
		return fmt.Errorf("tiles.zoom_limit must not exceed %d", MaxZoom)
	}

	return nil
}

// Location resolves the configured timezone.
func (d Display) Location() (*time.Location, error) {
	return time.LoadLocation(d.Timezone)
}
