package feature

import (
	"html/template"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/covidmap/internal/covid"
	"github.com/woozymasta/covidmap/internal/geo"
)

// IconClass is the CSS class of every marker icon.
const IconClass = "icon"

const popupTemplate = `<h2>{{.Country}}</h2>` +
	`<ul>` +
	`<li><strong>Confirmed:</strong> {{.Cases}}</li>` +
	`<li><strong>Deaths:</strong> {{.Deaths}}</li>` +
	`<li><strong>Recovered:</strong> {{.Recovered}}</li>` +
	`<li><strong>Last Update:</strong> {{.Updated}}</li>` +
	`</ul>`

const iconTemplate = `<span class="icon-marker">` +
	`<span class="icon-marker-tooltip">{{template "popup" .}}</span>` +
	`{{.Label}}` +
	`</span>`

var markerTemplates = template.Must(
	template.Must(template.New("popup").Parse(popupTemplate)).New("icon").Parse(iconTemplate),
)

// MarkerDescriptor tells the map widget how to draw one feature.
type MarkerDescriptor struct {
	Label       string `json:"label" yaml:"label"`
	Popup       string `json:"popup" yaml:"popup"`
	HTML        string `json:"html" yaml:"html"`
	ClassName   string `json:"className" yaml:"class_name"`
	RiseOnHover bool   `json:"riseOnHover" yaml:"rise_on_hover"`
}

// MarkerFeature is a GeoJSON feature with the descriptor attached as a
// foreign member, leaving properties untouched.
type MarkerFeature struct {
	geo.Feature `yaml:",inline"`
	Marker      MarkerDescriptor `json:"marker" yaml:"marker"`
}

// MarkerCollection is a FeatureCollection of MarkerFeature.
type MarkerCollection struct {
	Type     string          `json:"type" yaml:"type"`
	Features []MarkerFeature `json:"features" yaml:"features"`
}

// Formatter renders marker labels and popups.
type Formatter struct {
	Location *time.Location
	Layout   string
}

// NewFormatter returns a Formatter that prints update times in loc using layout.
func NewFormatter(loc *time.Location, layout string) Formatter {
	if loc == nil {
		loc = time.Local
	}
	return Formatter{Location: loc, Layout: layout}
}

type popupData struct {
	Country   string
	Cases     string
	Deaths    string
	Recovered string
	Updated   string
	Label     string
}

// FormatUpdated renders an epoch milliseconds value, or Unknown.
func (f Formatter) FormatUpdated(v any) string {
	ts, ok := covid.Millis(v)
	if !ok {
		return Unknown
	}

	return ts.In(f.Location).Format(f.Layout)
}

// Describe builds the marker descriptor for a feature's properties.
func (f Formatter) Describe(props map[string]any) (MarkerDescriptor, error) {
	data := popupData{
		Country:   Display(props[covid.FieldCountry]),
		Cases:     Display(props[covid.FieldCases]),
		Deaths:    Display(props[covid.FieldDeaths]),
		Recovered: Display(props[covid.FieldRecovered]),
		Updated:   f.FormatUpdated(props[covid.FieldUpdated]),
		Label:     AbbreviateCount(props[covid.FieldCases]),
	}

	desc := MarkerDescriptor{
		Label:       data.Label,
		ClassName:   IconClass,
		RiseOnHover: true,
	}

	var popup, html strings.Builder
	if err := markerTemplates.ExecuteTemplate(&popup, "popup", data); err != nil {
		return desc, err
	}
	if err := markerTemplates.ExecuteTemplate(&html, "icon", data); err != nil {
		return desc, err
	}

	desc.Popup = popup.String()
	desc.HTML = html.String()

	return desc, nil
}

// Markers attaches a descriptor to every feature of fc. A feature whose
// popup fails to render keeps its label only.
func (f Formatter) Markers(fc geo.FeatureCollection) MarkerCollection {
	mc := MarkerCollection{
		Type:     geo.TypeFeatureCollection,
		Features: make([]MarkerFeature, 0, len(fc.Features)),
	}

	for _, feat := range fc.Features {
		desc, err := f.Describe(feat.Properties)
		if err != nil {
			log.Error().
				Err(err).
				Str("country", Display(feat.Properties[covid.FieldCountry])).
				Msg("Failed to render marker popup")
			desc.HTML = template.HTMLEscapeString(desc.Label)
		}
		mc.Features = append(mc.Features, MarkerFeature{Feature: feat, Marker: desc})
	}

	return mc
}
