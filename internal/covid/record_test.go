package covid

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() CountryRecord {
	return CountryRecord{
		"country": "Italy",
		"countryInfo": map[string]any{
			"lat":  json.Number("42.8333"),
			"long": json.Number("12.8333"),
		},
		"cases":     json.Number("124632"),
		"deaths":    json.Number("15362"),
		"recovered": json.Number("20996"),
		"updated":   json.Number("1586000000000"),
	}
}

func TestRecord_Accessors(t *testing.T) {
	r := validRecord()

	assert.Equal(t, "Italy", r.Country())
	assert.Equal(t, json.Number("42.8333"), r.Lat())
	assert.Equal(t, json.Number("12.8333"), r.Lng())
	assert.Equal(t, json.Number("15362"), r.Deaths())
	assert.Equal(t, json.Number("20996"), r.Recovered())

	updated, ok := r.Updated()
	require.True(t, ok)
	assert.Equal(t, time.UnixMilli(1586000000000), updated)
}

func TestRecord_MissingInfo(t *testing.T) {
	r := CountryRecord{"country": "Nowhere"}

	assert.Nil(t, r.Lat())
	assert.Nil(t, r.Lng())

	_, ok := r.Updated()
	assert.False(t, ok)
}

func TestRecord_Validate(t *testing.T) {
	require.NoError(t, validRecord().Validate())

	tests := []struct {
		name  string
		edit  func(CountryRecord)
		field string
	}{
		{"missing country", func(r CountryRecord) { delete(r, "country") }, "country"},
		{"missing info", func(r CountryRecord) { delete(r, "countryInfo") }, "countryInfo.lat"},
		{"string latitude", func(r CountryRecord) { r["countryInfo"] = map[string]any{"lat": "north", "long": json.Number("1")} }, "countryInfo.lat"},
		{"longitude out of range", func(r CountryRecord) { r["countryInfo"] = map[string]any{"lat": json.Number("1"), "long": json.Number("181")} }, "countryInfo.long"},
		{"missing cases", func(r CountryRecord) { delete(r, "cases") }, "cases"},
		{"negative deaths", func(r CountryRecord) { r["deaths"] = json.Number("-1") }, "deaths"},
		{"missing updated", func(r CountryRecord) { delete(r, "updated") }, "updated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.edit(r)

			err := r.Validate()
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestNumber(t *testing.T) {
	f, ok := Number(json.Number("12.5"))
	assert.True(t, ok)
	assert.Equal(t, 12.5, f)

	f, ok = Number(7)
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	_, ok = Number("12")
	assert.False(t, ok)
	_, ok = Number(nil)
	assert.False(t, ok)
	_, ok = Number(json.Number("abc"))
	assert.False(t, ok)
}

func TestMillis(t *testing.T) {
	ts, ok := Millis(json.Number("1586000000000"))
	require.True(t, ok)
	assert.Equal(t, int64(1586000000000), ts.UnixMilli())

	ts, ok = Millis(1.586e12)
	require.True(t, ok)
	assert.Equal(t, int64(1586000000000), ts.UnixMilli())

	for _, v := range []any{nil, json.Number("0"), json.Number("1e30"), 1e30, -1e30, json.Number("9000000000000000"), "1586000000000"} {
		_, ok := Millis(v)
		assert.False(t, ok, "input %v", v)
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &NetworkError{Endpoint: "http://x", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fetch http://x: connection refused", err.Error())
}
