package feature

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/woozymasta/covidmap/internal/covid"
)

// Unknown is rendered in place of a missing value.
const Unknown = "unknown"

// AbbreviateCount renders a case count for the marker label.
//
// Counts above 1000 lose the last three characters of their decimal
// string and gain a "k+" suffix, so 12345 becomes "12k+" and 1999 becomes
// "1k+". The digits are cut, not rounded. Numeric strings are compared by
// value but cut as written. Smaller or non-numeric values are rendered
// unchanged.
func AbbreviateCount(v any) string {
	s := Display(v)

	n, ok := covid.Number(v)
	if !ok {
		n, ok = numericString(v)
	}
	if !ok || n <= 1000 || len(s) <= 3 {
		return s
	}

	return s[:len(s)-3] + "k+"
}

func numericString(v any) (float64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return n, err == nil
}

// Display renders a raw record value as text. Numbers use their plain
// decimal form, so 1.2345e4 and 12345.0 both render as 12345.
func Display(v any) string {
	switch n := v.(type) {
	case nil:
		return Unknown
	case string:
		return n
	case json.Number:
		if f, ok := covid.Number(n); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return n.String()
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	default:
		return fmt.Sprint(n)
	}
}
