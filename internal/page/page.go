// Package page renders the single map page.
package page

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
	"github.com/woozymasta/covidmap/assets"
	"github.com/woozymasta/covidmap/internal/config"
)

// Leaflet distribution loaded by the page.
const (
	LeafletCSS = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"
	LeafletJS  = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"
)

// MarkersURL is the endpoint the page requests once the map is ready.
const MarkersURL = "/api/markers.geojson"

// Link is an external reference shown below the map.
type Link struct {
	URL   string
	Label string
}

// Sources lists the upstream data references.
var Sources = []Link{
	{URL: "https://github.com/disease-sh/API", Label: "NovelCOVID API"},
	{URL: "https://www.worldometers.info/coronavirus/", Label: "https://www.worldometers.info/coronavirus"},
	{
		URL:   "https://github.com/CSSEGISandData/COVID-19/tree/master/csse_covid_19_data/csse_covid_19_time_series",
		Label: "https://github.com/CSSEGISandData/COVID-19/tree/master/csse_covid_19_data/csse_covid_19_time_series",
	},
}

// Data is passed to the index template.
type Data struct {
	Title      string
	Heading    string
	Footer     string
	LeafletCSS string
	LeafletJS  string
	MarkersURL string
	CSS        template.CSS
	JS         template.JS
	Sources    []Link
	Map        config.Map

	// MaxNativeZoom is the highest zoom the local tile cache serves. Zero
	// leaves it to the tile server.
	MaxNativeZoom int
}

// NewMinifier returns a minifier for every asset type of the page.
func NewMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	return m
}

// Render executes the index template for cfg and returns minified HTML.
func Render(cfg *config.Config) ([]byte, error) {
	m := NewMinifier()

	cssMin, err := m.String("text/css", assets.Style)
	if err != nil {
		return nil, fmt.Errorf("minify CSS: %w", err)
	}

	jsMin, err := m.String("text/javascript", assets.Script)
	if err != nil {
		return nil, fmt.Errorf("minify JS: %w", err)
	}

	tmpl, err := template.New("index").Parse(assets.IndexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, Data{
		Title:      "Covid-19 Tracker",
		Heading:    "COVID 19 TRACKER",
		Footer:     "Global COVID-19 case map",
		LeafletCSS: LeafletCSS,
		LeafletJS:  LeafletJS,
		MarkersURL: MarkersURL,
		CSS:        template.CSS(cssMin),
		JS:         template.JS(jsMin),
		Sources:    Sources,
		Map:        cfg.Map,

		MaxNativeZoom: maxNativeZoom(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	out, err := m.Bytes("text/html", buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("minify HTML: %w", err)
	}

	return out, nil
}

// Favicon returns the minified site icon.
func Favicon() ([]byte, error) {
	return NewMinifier().Bytes("image/svg+xml", assets.Favicon)
}

func maxNativeZoom(cfg *config.Config) int {
	if !cfg.Tiles.Enabled() {
		return 0
	}
	return cfg.Tiles.ZoomLimit
}
