// Package tracker runs the fetch-then-build cycle behind the map endpoints.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/covidmap/internal/covid"
	"github.com/woozymasta/covidmap/internal/feature"
	"github.com/woozymasta/covidmap/internal/geo"
	"github.com/woozymasta/covidmap/internal/metrics"
)

// Fetcher yields country records from the upstream service.
type Fetcher interface {
	FetchCountries(ctx context.Context) ([]covid.CountryRecord, error)
}

// Service turns one upstream fetch into map features.
// Fetch failures are logged and produce an empty collection.
type Service struct {
	cachedAt  time.Time
	fetcher   Fetcher
	clock     clockwork.Clock
	metrics   *metrics.Metrics
	cached    *geo.FeatureCollection
	formatter feature.Formatter
	ttl       time.Duration
	mu        sync.Mutex
	strict    bool
}

// Option configures a Service.
type Option func(*Service)

// WithCache keeps a successful snapshot for ttl. Zero disables caching.
func WithCache(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithClock replaces the time source used for cache expiry.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithStrict drops records that fail validation.
func WithStrict(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

// New creates a Service.
func New(fetcher Fetcher, formatter feature.Formatter, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		fetcher:   fetcher,
		formatter: formatter,
		metrics:   m,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Countries returns the current feature collection. It never fails: on
// any upstream problem the collection is empty.
func (s *Service) Countries(ctx context.Context) geo.FeatureCollection {
	if fc, ok := s.fromCache(); ok {
		return fc
	}

	start := s.clock.Now()
	records, err := s.fetcher.FetchCountries(ctx)
	s.metrics.FetchDuration.Observe(s.clock.Since(start).Seconds())

	if err != nil {
		s.metrics.FetchRequests.WithLabelValues("error").Inc()
		if errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("Country fetch canceled")
		} else {
			log.Error().Err(err).Msg("Failed to fetch countries")
		}
		return geo.NewFeatureCollection(0)
	}

	if len(records) == 0 {
		s.metrics.FetchRequests.WithLabelValues("empty").Inc()
		log.Warn().Msg("No country data available")
		return geo.NewFeatureCollection(0)
	}
	s.metrics.FetchRequests.WithLabelValues("success").Inc()

	fc := s.build(records)
	s.metrics.FeaturesBuilt.Set(float64(len(fc.Features)))

	log.Debug().
		Int("records", len(records)).
		Int("features", len(fc.Features)).
		Msg("Feature collection built")

	s.store(fc)
	return fc
}

// Markers returns Countries with a marker descriptor for every feature.
func (s *Service) Markers(ctx context.Context) feature.MarkerCollection {
	return s.formatter.Markers(s.Countries(ctx))
}

func (s *Service) build(records []covid.CountryRecord) geo.FeatureCollection {
	if !s.strict {
		for _, r := range records {
			if err := r.Validate(); err != nil {
				s.metrics.InvalidRecords.Inc()
				log.Debug().Err(err).Msg("Passing through invalid record")
			}
		}
		return feature.Build(records)
	}

	fc, errs := feature.BuildStrict(records)
	for _, err := range errs {
		s.metrics.InvalidRecords.Inc()
		log.Warn().Err(err).Msg("Skipping invalid record")
	}

	return fc
}

func (s *Service) fromCache() (geo.FeatureCollection, bool) {
	if s.ttl <= 0 {
		return geo.FeatureCollection{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached == nil || s.clock.Since(s.cachedAt) >= s.ttl {
		s.metrics.Cache.WithLabelValues("miss").Inc()
		return geo.FeatureCollection{}, false
	}

	s.metrics.Cache.WithLabelValues("hit").Inc()
	return *s.cached, true
}

func (s *Service) store(fc geo.FeatureCollection) {
	if s.ttl <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = &fc
	s.cachedAt = s.clock.Now()
}
