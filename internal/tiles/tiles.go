// Package tiles downloads base map tiles, converts them to WebP and keeps them on disk.
package tiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// UserAgent is sent with every upstream tile request.
const UserAgent = "covidmap/1.0 (+https://github.com/woozymasta/covidmap)"

// ErrNotFound means the upstream has no usable tile at a coordinate.
var ErrNotFound = errors.New("tile not found")

var subdomains = []string{"a", "b", "c"}

// Coordinate represents a specific tile.
type Coordinate struct {
	Z, X, Y int
}

// Valid reports whether the coordinate lies inside the tile grid of its zoom.
func (c Coordinate) Valid() bool {
	if c.Z < 0 || c.Z > 30 {
		return false
	}
	n := 1 << c.Z
	return c.X >= 0 && c.Y >= 0 && c.X < n && c.Y < n
}

// Path returns the cache file path of the tile below dir.
func (c Coordinate) Path(dir string) string {
	return filepath.Join(dir, strconv.Itoa(c.Z), strconv.Itoa(c.X), strconv.Itoa(c.Y)+".webp")
}

// BuildURL expands {z}, {x}, {y}, {s} and {tms_y} in tpl.
func BuildURL(tpl string, c Coordinate) string {
	s := strings.ReplaceAll(tpl, "{z}", strconv.Itoa(c.Z))
	s = strings.ReplaceAll(s, "{x}", strconv.Itoa(c.X))
	s = strings.ReplaceAll(s, "{y}", strconv.Itoa(c.Y))

	if strings.Contains(s, "{s}") {
		s = strings.ReplaceAll(s, "{s}", subdomains[(c.X+c.Y)%len(subdomains)])
	}

	if strings.Contains(s, "{tms_y}") {
		maxCoord := (1 << c.Z) - 1
		s = strings.ReplaceAll(s, "{tms_y}", strconv.Itoa(maxCoord-c.Y))
	}

	return s
}

// Fetch downloads one tile, decodes it and stores it below dir as WebP.
// Existing non-empty files are kept unless force is set.
func Fetch(ctx context.Context, client *http.Client, tpl, dir string, c Coordinate, force bool) error {
	outPath := c.Path(dir)

	if !force {
		if info, err := os.Stat(outPath); err == nil && info.Size() > 0 {
			return nil
		}
	}

	url := BuildURL(tpl, c)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		log.Trace().Str("url", url).Msg("Tile not found (404)")
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		log.Trace().Err(err).Str("url", url).Msg("Failed to decode image")
		return ErrNotFound
	}

	// Filter out empty/1px tiles often returned by map servers for OOB areas
	if img.Bounds().Dx() <= 1 {
		log.Trace().Str("url", url).Msg("Filtered empty tile")
		return ErrNotFound
	}

	return writeWebP(outPath, img)
}

// writeWebP encodes img into a temporary file and renames it into place so
// readers never see a partial tile.
func writeWebP(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tile-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := webp.Encode(tmp, img, &webp.Options{Lossless: false, Quality: 80}); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode webp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// Transparent returns an empty 256px WebP tile.
var Transparent = sync.OnceValue(func() []byte {
	var buf bytes.Buffer
	img := image.NewNRGBA(image.Rect(0, 0, 256, 256))
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		log.Error().Err(err).Msg("Failed to encode transparent tile")
	}
	return buf.Bytes()
})
