package donations

import (
	"context"
	"math"

	"zerowaste/internal/geo"
	"zerowaste/internal/models"
)

// Catalog is the slice of the store the radius search reads from.
type Catalog interface {
	FindAvailable(ctx context.Context, limit int64) ([]models.Donation, error)
}

const (
	// radiusStepKm is the increment for the progressive search.
	radiusStepKm = 5
	// candidateFetchCap keeps the store query generous enough that distance
	// filtering, not the fetch, decides what the NGO sees.
	candidateFetchCap = 1000
)

// FindNearbyForNGO searches available donations around center, widening the
// radius in 5km steps until something matches or maxRadiusKm is reached.
// The NGO's operational radius is a hard ceiling: an empty result at the cap
// is returned as-is rather than silently falling back to unfiltered results.
// Results are nearest-first and truncated to limit.
func FindNearbyForNGO(ctx context.Context, catalog Catalog, center models.Coordinates, maxRadiusKm float64, limit int64) ([]models.Donation, error) {
	if maxRadiusKm <= 0 {
		maxRadiusKm = models.DefaultOperationalRadiusKm
	}

	// A cap below the step still gets exactly one pass, at the cap itself.
	radius := math.Min(radiusStepKm, maxRadiusKm)

	for {
		candidates, err := catalog.FindAvailable(ctx, candidateFetchCap)
		if err != nil {
			return nil, err
		}

		matched := geo.FilterWithinRadius(candidates, center, radius)
		if len(matched) > 0 {
			if limit > 0 && int64(len(matched)) > limit {
				matched = matched[:limit]
			}
			return matched, nil
		}

		if radius >= maxRadiusKm {
			return []models.Donation{}, nil
		}
		radius = math.Min(radius+radiusStepKm, maxRadiusKm)
	}
}
