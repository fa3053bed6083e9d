package tiles

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/covidmap/internal/metrics"
)

const etagCap = 64

// Proxy serves /tiles/{z}/{x}/{y}.webp from the disk cache, filling
// misses from the upstream template.
type Proxy struct {
	client    *http.Client
	metrics   *metrics.Metrics
	upstream  string
	dir       string
	zoomLimit int
}

// NewProxy creates a tile proxy. Tiles above zoomLimit are never fetched.
func NewProxy(client *http.Client, upstream, dir string, zoomLimit int, m *metrics.Metrics) *Proxy {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return &Proxy{
		client:    client,
		metrics:   m,
		upstream:  upstream,
		dir:       dir,
		zoomLimit: zoomLimit,
	}
}

// ParsePath extracts the coordinate from /tiles/{z}/{x}/{y}.webp.
func ParsePath(path string) (Coordinate, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "tiles" || !strings.HasSuffix(parts[3], ".webp") {
		return Coordinate{}, false
	}

	z, errZ := strconv.Atoi(parts[1])
	x, errX := strconv.Atoi(parts[2])
	y, errY := strconv.Atoi(strings.TrimSuffix(parts[3], ".webp"))
	if errZ != nil || errX != nil || errY != nil {
		return Coordinate{}, false
	}

	c := Coordinate{Z: z, X: x, Y: y}
	return c, c.Valid()
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, ok := ParsePath(r.URL.Path)
	if !ok || c.Z > p.zoomLimit {
		http.NotFound(w, r)
		return
	}

	path := c.Path(p.dir)
	if p.serveFile(w, r, path) {
		p.metrics.Tiles.WithLabelValues("hit").Inc()
		return
	}

	err := Fetch(r.Context(), p.client, p.upstream, p.dir, c, false)
	if err == nil && p.serveFile(w, r, path) {
		p.metrics.Tiles.WithLabelValues("miss").Inc()
		return
	}

	p.metrics.Tiles.WithLabelValues("error").Inc()
	if err != nil && !errors.Is(err, ErrNotFound) {
		log.Warn().
			Err(err).
			Int("z", c.Z).Int("x", c.X).Int("y", c.Y).
			Msg("Failed to fetch tile")
	}

	// cache transparent tile
	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(Transparent())
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (p *Proxy) serveFile(w http.ResponseWriter, r *http.Request, path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Type", "image/webp")

	http.ServeFile(w, r, path)
	return true
}
