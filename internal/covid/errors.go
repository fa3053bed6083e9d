package covid

import "fmt"

// NetworkError is returned when the upstream service is unreachable or
// answers with something that is not a usable JSON document.
type NetworkError struct {
	Err      error
	Endpoint string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError describes a record attribute that cannot be rendered.
type ValidationError struct {
	Country string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Country == "" {
		return fmt.Sprintf("invalid record: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid record %q: %s %s", e.Country, e.Field, e.Reason)
}
