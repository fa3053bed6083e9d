package tiles

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/covidmap/internal/metrics"
)

func pngTile(t *testing.T, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for x := 0; x < size; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// upstream serves a 16px tile for zoom 0 and 1 and 404 for deeper levels.
func upstream(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	tile := pngTile(t, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		if strings.HasPrefix(r.URL.Path, "/0/") || strings.HasPrefix(r.URL.Path, "/1/") {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(tile)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBuildURL(t *testing.T) {
	c := Coordinate{Z: 3, X: 2, Y: 1}

	assert.Equal(t, "https://a.tile.example/3/2/1.png", BuildURL("https://{s}.tile.example/{z}/{x}/{y}.png", c))
	assert.Equal(t, "/3/2/6", BuildURL("/{z}/{x}/{tms_y}", c))
}

func TestCoordinate_Valid(t *testing.T) {
	assert.True(t, Coordinate{0, 0, 0}.Valid())
	assert.True(t, Coordinate{2, 3, 3}.Valid())
	assert.False(t, Coordinate{2, 4, 0}.Valid())
	assert.False(t, Coordinate{1, -1, 0}.Valid())
	assert.False(t, Coordinate{-1, 0, 0}.Valid())
}

func TestParsePath(t *testing.T) {
	c, ok := ParsePath("/tiles/2/1/3.webp")
	require.True(t, ok)
	assert.Equal(t, Coordinate{Z: 2, X: 1, Y: 3}, c)

	for _, p := range []string{"/tiles/2/1/3.png", "/tiles/2/1", "/tiles/a/1/3.webp", "/tiles/1/5/0.webp", "/other/2/1/3.webp"} {
		_, ok := ParsePath(p)
		assert.False(t, ok, p)
	}
}

func TestFetch_WritesWebP(t *testing.T) {
	var hits atomic.Int32
	srv := upstream(t, &hits)
	dir := t.TempDir()

	c := Coordinate{Z: 0, X: 0, Y: 0}
	require.NoError(t, Fetch(context.Background(), srv.Client(), srv.URL+"/{z}/{x}/{y}.png", dir, c, false))

	data, err := os.ReadFile(c.Path(dir))
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, "WEBP", string(data[8:12]))

	// existing files are kept
	require.NoError(t, Fetch(context.Background(), srv.Client(), srv.URL+"/{z}/{x}/{y}.png", dir, c, false))
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetch_NotFound(t *testing.T) {
	var hits atomic.Int32
	srv := upstream(t, &hits)

	err := Fetch(context.Background(), srv.Client(), srv.URL+"/{z}/{x}/{y}.png", t.TempDir(), Coordinate{Z: 5}, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetch_FiltersOnePixelTiles(t *testing.T) {
	tile := pngTile(t, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(tile)
	}))
	defer srv.Close()

	err := Fetch(context.Background(), srv.Client(), srv.URL+"/{z}/{x}/{y}", t.TempDir(), Coordinate{}, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPrefetch_StopsWhenLevelIsEmpty(t *testing.T) {
	var hits atomic.Int32
	srv := upstream(t, &hits)
	dir := t.TempDir()

	n, err := Prefetch(context.Background(), srv.Client(), srv.URL+"/{z}/{x}/{y}.png", dir, 5, 4, false)
	require.NoError(t, err)

	// 1 tile at z0, 4 at z1, nothing at z2
	assert.Equal(t, 5, n)
	assert.Equal(t, int32(1+4+16), hits.Load())

	_, err = os.Stat(Coordinate{Z: 1, X: 1, Y: 1}.Path(dir))
	assert.NoError(t, err)
}

func TestPrefetch_Canceled(t *testing.T) {
	var hits atomic.Int32
	srv := upstream(t, &hits)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Prefetch(ctx, srv.Client(), srv.URL+"/{z}/{x}/{y}.png", t.TempDir(), 3, 2, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, hits.Load())
}

func TestProxy_MissThenHit(t *testing.T) {
	var hits atomic.Int32
	srv := upstream(t, &hits)
	m := metrics.NewForTesting()
	p := NewProxy(srv.Client(), srv.URL+"/{z}/{x}/{y}.png", t.TempDir(), 6, m)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/1/0/1.webp", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/webp", rec.Header().Get("Content-Type"))
		assert.NotEmpty(t, rec.Header().Get("ETag"))
	}

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tiles.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tiles.WithLabelValues("hit")))
}

func TestProxy_NotModified(t *testing.T) {
	var hits atomic.Int32
	srv := upstream(t, &hits)
	p := NewProxy(srv.Client(), srv.URL+"/{z}/{x}/{y}.png", t.TempDir(), 6, metrics.NewForTesting())

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/0/0/0.webp", nil))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/tiles/0/0/0.webp", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestProxy_MissingTileIsTransparent(t *testing.T) {
	var hits atomic.Int32
	srv := upstream(t, &hits)
	m := metrics.NewForTesting()
	p := NewProxy(srv.Client(), srv.URL+"/{z}/{x}/{y}.png", t.TempDir(), 6, m)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/3/0/0.webp", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Transparent(), rec.Body.Bytes())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tiles.WithLabelValues("error")))
}

func TestProxy_RejectsBadPathsAndZoom(t *testing.T) {
	var hits atomic.Int32
	srv := upstream(t, &hits)
	p := NewProxy(srv.Client(), srv.URL+"/{z}/{x}/{y}.png", t.TempDir(), 2, metrics.NewForTesting())

	for _, path := range []string{"/tiles/3/0/0.webp", "/tiles/x/0/0.webp", "/tiles/0/0/0.png"} {
		rec := httptest.NewRecorder()
		p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	assert.Zero(t, hits.Load())
}
