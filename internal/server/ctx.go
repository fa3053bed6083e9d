package server

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/covidmap/internal/config"
	"github.com/woozymasta/covidmap/internal/feature"
	"github.com/woozymasta/covidmap/internal/geo"
	"github.com/woozymasta/covidmap/internal/page"
)

// MapSource produces the features shown on the map.
type MapSource interface {
	Countries(ctx context.Context) geo.FeatureCollection
	Markers(ctx context.Context) feature.MarkerCollection
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config    *config.Config
	Source    MapSource
	Tiles     http.Handler // nil when the tile proxy is disabled
	IndexHTML []byte
	IndexETag string
	Favicon   []byte
}

// NewServerContext renders the page for cfg and wires the handlers to src.
func NewServerContext(cfg *config.Config, src MapSource, tiles http.Handler) (*ServerContext, error) {
	index, err := page.Render(cfg)
	if err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}

	favicon, err := page.Favicon()
	if err != nil {
		return nil, fmt.Errorf("minify favicon: %w", err)
	}

	sum := sha256.Sum256(index)

	log.Info().
		Float64("lat", cfg.Map.Center.Lat).
		Float64("lng", cfg.Map.Center.Lng).
		Int("zoom", cfg.Map.Zoom).
		Str("endpoint", cfg.Source.Endpoint).
		Bool("tile_proxy", tiles != nil).
		Int("index_bytes", len(index)).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:    cfg,
		Source:    src,
		Tiles:     tiles,
		IndexHTML: index,
		IndexETag: fmt.Sprintf(`"%x"`, sum[:8]),
		Favicon:   favicon,
	}, nil
}

// Handler returns the routed and logged HTTP handler.
func (s *ServerContext) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/map", s.HandleMapConfig)
	mux.HandleFunc("GET /api/countries.geojson", s.HandleCountries)
	mux.HandleFunc("GET "+page.MarkersURL, s.HandleMarkers)
	mux.HandleFunc("GET /favicon.svg", s.HandleFavicon)
	mux.HandleFunc("GET /healthz", s.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	if s.Tiles != nil {
		mux.Handle("GET /tiles/", s.Tiles)
	}
	mux.HandleFunc("GET /", s.HandleIndex)

	return RequestLogger(mux)
}
