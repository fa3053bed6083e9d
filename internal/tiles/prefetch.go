package tiles

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
)

type result struct {
	Coord Coordinate
	Valid bool
}

// Prefetch downloads a tile pyramid from zoom 0 up to zoomLimit into dir.
// Only children of tiles that exist are requested at the next level.
// It returns the number of tiles available on disk.
func Prefetch(ctx context.Context, client *http.Client, tpl, dir string, zoomLimit, concurrency int, force bool) (int, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	log.Info().
		Str("upstream", tpl).
		Str("dir", dir).
		Int("zoom_limit", zoomLimit).
		Msg("Starting tile download")

	total := 0
	currentLevel := []Coordinate{{0, 0, 0}}

	for z := 0; z <= zoomLimit; z++ {
		if len(currentLevel) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}

		log.Debug().Int("zoom", z).Int("count", len(currentLevel)).Msg("Processing zoom level")

		valid := processBatch(ctx, client, concurrency, currentLevel, tpl, dir, force)
		total += len(valid)

		if len(valid) == 0 {
			log.Info().Int("zoom", z).Msg("No data found at zoom level, stopping")
			break
		}

		next := make([]Coordinate, 0, len(valid)*4)
		for _, t := range valid {
			nx, ny := t.X*2, t.Y*2
			next = append(next,
				Coordinate{Z: z + 1, X: nx, Y: ny},
				Coordinate{Z: z + 1, X: nx + 1, Y: ny},
				Coordinate{Z: z + 1, X: nx, Y: ny + 1},
				Coordinate{Z: z + 1, X: nx + 1, Y: ny + 1},
			)
		}
		currentLevel = next
	}

	return total, ctx.Err()
}

func processBatch(
	ctx context.Context,
	client *http.Client,
	concurrency int,
	coords []Coordinate,
	tpl, dir string,
	force bool,
) []Coordinate {
	jobs := make(chan Coordinate, len(coords))
	results := make(chan result, len(coords))

	for _, c := range coords {
		jobs <- c
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				if ctx.Err() != nil {
					results <- result{Coord: c}
					continue
				}

				err := Fetch(ctx, client, tpl, dir, c, force)
				if err != nil && !errors.Is(err, ErrNotFound) {
					log.Trace().
						Err(err).
						Str("url", BuildURL(tpl, c)).
						Msg("Failed to download tile")
				}
				results <- result{Coord: c, Valid: err == nil}
			}
		}()
	}
	wg.Wait()
	close(results)

	var valid []Coordinate
	for res := range results {
		if res.Valid {
			valid = append(valid, res.Coord)
		}
	}

	return valid
}
