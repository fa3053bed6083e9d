package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Center{Lat: 0, Lng: 0}, cfg.Map.Center)
	assert.Equal(t, DefaultZoom, cfg.Map.Zoom)
	assert.Equal(t, DefaultEndpoint, cfg.Source.Endpoint)
	assert.Equal(t, DefaultTiles, cfg.Map.Tiles)
	assert.Equal(t, DefaultTimeLayout, cfg.Display.TimeLayout)
	assert.Equal(t, time.Duration(0), cfg.Source.Timeout)
	assert.Equal(t, time.Duration(0), cfg.Source.CacheTTL)
	assert.False(t, cfg.Source.Strict)
	assert.False(t, cfg.Tiles.Enabled())
}

func TestLoad_CustomFile(t *testing.T) {
	path := writeConfig(t, `
map:
  center: {lat: 51.5, lng: -0.12}
  zoom: 4
source:
  endpoint: http://localhost:9000/countries
  timeout: 3s
  cache_ttl: 1m
  strict: true
display:
  timezone: UTC
  time_layout: "2006-01-02 15:04"
tiles:
  cache_dir: /tmp/tiles
  zoom_limit: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 51.5, cfg.Map.Center.Lat)
	assert.Equal(t, -0.12, cfg.Map.Center.Lng)
	assert.Equal(t, 4, cfg.Map.Zoom)
	assert.Equal(t, "http://localhost:9000/countries", cfg.Source.Endpoint)
	assert.Equal(t, 3*time.Second, cfg.Source.Timeout)
	assert.Equal(t, time.Minute, cfg.Source.CacheTTL)
	assert.True(t, cfg.Source.Strict)
	assert.Equal(t, "UTC", cfg.Display.Timezone)
	assert.True(t, cfg.Tiles.Enabled())
	assert.Equal(t, 3, cfg.Tiles.ZoomLimit)
	assert.Equal(t, "/tiles/{z}/{x}/{y}.webp", cfg.Map.Tiles)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "map: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoad_InvalidEndpoint(t *testing.T) {
	_, err := Load(writeConfig(t, "source:\n  endpoint: ftp://example.com\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.endpoint")
}

func TestLoad_InvalidZoom(t *testing.T) {
	_, err := Load(writeConfig(t, "map:\n  zoom: 42\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map.zoom")
}

func TestLoad_InvalidCenter(t *testing.T) {
	_, err := Load(writeConfig(t, "map:\n  center: {lat: 91, lng: 0}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map.center.lat")
}

func TestLoad_InvalidTimezone(t *testing.T) {
	_, err := Load(writeConfig(t, "display:\n  timezone: Mars/Olympus\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display.timezone")
}

func TestLoad_NegativeTimeout(t *testing.T) {
	_, err := Load(writeConfig(t, "source:\n  timeout: -1s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.timeout")
}

func TestDefaultTimeLayout_NamesZone(t *testing.T) {
	ts := time.UnixMilli(1586000000000).In(time.UTC)
	assert.Equal(t, "4/4/2020, 11:33:20 AM UTC", ts.Format(DefaultTimeLayout))
}

func TestLoad_ZoomBelowOne(t *testing.T) {
	for _, body := range []string{"map:\n  zoom: 0\n", "map:\n  zoom: -3\n"} {
		_, err := Load(writeConfig(t, body))
		require.Error(t, err, body)
		assert.Contains(t, err.Error(), "map.zoom")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultZoom, cfg.Map.Zoom)
	assert.Equal(t, DefaultTileLimit, cfg.Tiles.ZoomLimit)
}
