// Package covid fetches per-country case counts from the upstream service.
package covid

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Record attribute names as sent by the upstream service.
const (
	FieldCountry     = "country"
	FieldCountryInfo = "countryInfo"
	FieldLat         = "lat"
	FieldLong        = "long"
	FieldCases       = "cases"
	FieldDeaths      = "deaths"
	FieldRecovered   = "recovered"
	FieldUpdated     = "updated"
)

// CountryRecord is one country's snapshot exactly as received.
//
// Values are decoded with UseNumber, so numbers are json.Number and keep
// their wire text. The record is never modified after decoding.
type CountryRecord map[string]any

// Field returns the raw value stored under key.
func (r CountryRecord) Field(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// Country returns the country name, or "" when absent or not a string.
func (r CountryRecord) Country() string {
	s, _ := r[FieldCountry].(string)
	return s
}

// Info returns the nested country metadata object.
func (r CountryRecord) Info() map[string]any {
	info, _ := r[FieldCountryInfo].(map[string]any)
	return info
}

// Lat returns the raw latitude from countryInfo, nil when absent.
func (r CountryRecord) Lat() any {
	return r.Info()[FieldLat]
}

// Lng returns the raw longitude from countryInfo, nil when absent.
func (r CountryRecord) Lng() any {
	return r.Info()[FieldLong]
}

// Cases returns the raw confirmed case count.
func (r CountryRecord) Cases() any { return r[FieldCases] }

// Deaths returns the raw death count.
func (r CountryRecord) Deaths() any { return r[FieldDeaths] }

// Recovered returns the raw recovery count.
func (r CountryRecord) Recovered() any { return r[FieldRecovered] }

// Updated returns the last update time. ok is false when the field is
// absent, zero or not a number.
func (r CountryRecord) Updated() (time.Time, bool) {
	return Millis(r[FieldUpdated])
}

// Validate reports the first attribute that a map marker cannot be built from.
func (r CountryRecord) Validate() error {
	if r.Country() == "" {
		return &ValidationError{Field: FieldCountry, Reason: "missing or not a string"}
	}

	lat, ok := Number(r.Lat())
	if !ok || lat < -90 || lat > 90 {
		return &ValidationError{Country: r.Country(), Field: FieldCountryInfo + "." + FieldLat, Reason: "missing or out of range"}
	}
	lng, ok := Number(r.Lng())
	if !ok || lng < -180 || lng > 180 {
		return &ValidationError{Country: r.Country(), Field: FieldCountryInfo + "." + FieldLong, Reason: "missing or out of range"}
	}

	for _, key := range []string{FieldCases, FieldDeaths, FieldRecovered} {
		n, ok := Number(r[key])
		if !ok || n < 0 {
			return &ValidationError{Country: r.Country(), Field: key, Reason: "missing or negative"}
		}
	}

	if _, ok := r.Updated(); !ok {
		return &ValidationError{Country: r.Country(), Field: FieldUpdated, Reason: "missing"}
	}

	return nil
}

// Number converts a decoded JSON number to float64. Strings, booleans and
// nil are not numbers.
func Number(v any) (float64, bool) {
	var f float64

	switch n := v.(type) {
	case json.Number:
		parsed, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

// maxMillis bounds timestamps to ±100,000,000 days around the epoch.
const maxMillis = 8.64e15

// Millis interprets v as milliseconds since the Unix epoch. Zero and
// values outside ±maxMillis are rejected.
func Millis(v any) (time.Time, bool) {
	if n, ok := v.(json.Number); ok {
		if ms, err := n.Int64(); err == nil {
			if ms == 0 || ms > maxMillis || ms < -maxMillis {
				return time.Time{}, false
			}
			return time.UnixMilli(ms), true
		}
	}

	f, ok := Number(v)
	if !ok || f == 0 || math.IsNaN(f) || f > maxMillis || f < -maxMillis {
		return time.Time{}, false
	}

	return time.UnixMilli(int64(f)), true
}
