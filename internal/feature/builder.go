// Package feature converts country records into map features and marker descriptors.
package feature

import (
	"maps"

	"github.com/woozymasta/covidmap/internal/covid"
	"github.com/woozymasta/covidmap/internal/geo"
)

// Build converts records to point features, one per record, in input order.
// Coordinates come from countryInfo and are not validated.
func Build(records []covid.CountryRecord) geo.FeatureCollection {
	fc := geo.NewFeatureCollection(len(records))
	for _, r := range records {
		fc.Features = append(fc.Features, fromRecord(r))
	}

	return fc
}

// BuildStrict is Build restricted to records that pass validation.
// Rejected records are reported as *covid.ValidationError.
func BuildStrict(records []covid.CountryRecord) (geo.FeatureCollection, []error) {
	fc := geo.NewFeatureCollection(len(records))
	var errs []error

	for _, r := range records {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		fc.Features = append(fc.Features, fromRecord(r))
	}

	return fc, errs
}

func fromRecord(r covid.CountryRecord) geo.Feature {
	props := make(map[string]any, len(r))
	maps.Copy(props, r)

	return geo.NewPoint(r.Lng(), r.Lat(), props)
}
