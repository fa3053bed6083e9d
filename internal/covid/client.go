package covid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Client reads country snapshots from a disease.sh compatible endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient creates a client for endpoint. A zero timeout leaves the
// transport defaults in place.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the configured upstream URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchCountries performs exactly one GET request and decodes the records.
//
// A payload that is valid JSON but not an array yields no records and no
// error. Transport failures, non-200 answers and malformed JSON are
// returned as *NetworkError.
func (c *Client) FetchCountries(ctx context.Context) ([]CountryRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, c.fail(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, c.fail(fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body)))
	}

	records, err := Decode(resp.Body)
	if err != nil {
		return nil, c.fail(err)
	}

	log.Debug().
		Str("endpoint", c.endpoint).
		Int("records", len(records)).
		Msg("Fetched country records")

	return records, nil
}

func (c *Client) fail(err error) error {
	return &NetworkError{Endpoint: c.endpoint, Err: err}
}

// Decode parses a JSON array of country objects.
// Array elements that are not objects become empty records so the output
// keeps the length and order of the input.
func Decode(r io.Reader) ([]CountryRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items, ok := payload.([]any)
	if !ok {
		return nil, nil
	}

	records := make([]CountryRecord, 0, len(items))
	for _, item := range items {
		obj, _ := item.(map[string]any)
		if obj == nil {
			obj = map[string]any{}
		}
		records = append(records, CountryRecord(obj))
	}

	return records, nil
}
