// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

const geoJSONType = "application/geo+json"

// HandleMapConfig serves the JSON map view configuration.
func (s *ServerContext) HandleMapConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "application/json", s.Config.Map)
}

// HandleCountries serves the country features without marker data.
func (s *ServerContext) HandleCountries(w http.ResponseWriter, r *http.Request) {
	fc := s.Source.Countries(r.Context())
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, geoJSONType, fc)
}

// HandleMarkers serves the country features with a marker descriptor each.
// The page calls it once after the map is ready.
func (s *ServerContext) HandleMarkers(w http.ResponseWriter, r *http.Request) {
	mc := s.Source.Markers(r.Context())
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, geoJSONType, mc)
}

// HandleFavicon serves the site favicon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Favicon)
}

// HandleHealth reports liveness.
func (s *ServerContext) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "application/json", map[string]string{"status": "healthy"})
}

// HandleIndex serves the main HTML application.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && strings.Contains(r.URL.Path, ".") {
		http.NotFound(w, r)
		return
	}

	if match := r.Header.Get("If-None-Match"); match == s.IndexETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", s.IndexETag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

func writeJSON(w http.ResponseWriter, status int, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// client went away, nothing else to do
		log.Debug().Err(err).Msg("Failed to write response")
	}
}
