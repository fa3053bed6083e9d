// Package geo handles geographic data structures.
package geo

// GeoJSON type names.
const (
	TypeFeatureCollection = "FeatureCollection"
	TypeFeature           = "Feature"
	TypePoint             = "Point"
)

// FeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type FeatureCollection struct {
	Type     string    `json:"type" yaml:"type"`
	Features []Feature `json:"features" yaml:"features"`
}

// Feature represents a single geographic feature with geometry and properties.
type Feature struct {
	Properties map[string]any `json:"properties" yaml:"properties"`
	Type       string         `json:"type" yaml:"type"`
	Geometry   Geometry       `json:"geometry" yaml:"geometry"`
}

// Geometry represents the geometry of a feature.
//
// Coordinates are kept as received, so a missing or non-numeric value is
// encoded as-is instead of being coerced to zero.
type Geometry struct {
	Type        string `json:"type" yaml:"type"`
	Coordinates []any  `json:"coordinates" yaml:"coordinates"` // [Lon, Lat]
}

// NewFeatureCollection returns an empty collection with room for n features.
func NewFeatureCollection(n int) FeatureCollection {
	return FeatureCollection{Type: TypeFeatureCollection, Features: make([]Feature, 0, n)}
}

// NewPoint builds a point feature from raw longitude and latitude values.
func NewPoint(lng, lat any, props map[string]any) Feature {
	return Feature{
		Type: TypeFeature,
		Geometry: Geometry{
			Type:        TypePoint,
			Coordinates: []any{lng, lat},
		},
		Properties: props,
	}
}
