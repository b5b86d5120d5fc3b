package geo

import (
	"math"
	"sort"

	"zerowaste/internal/models"
)

// FilterWithinRadius returns the candidates whose coordinates lie within
// radiusKm of center, sorted nearest-first. Candidates without coordinates,
// or with non-finite ones, are treated as "location unknown" and never match.
// Kept donations carry their computed distance in DistanceKm. The sort is
// stable, so equal distances preserve the input order.
func FilterWithinRadius(candidates []models.Donation, center models.Coordinates, radiusKm float64) []models.Donation {
	matched := make([]models.Donation, 0, len(candidates))

	for _, candidate := range candidates {
		coords := candidate.Location.Coordinates
		if coords == nil {
			continue
		}
		if !isFinite(coords.Lat) || !isFinite(coords.Lng) {
			continue
		}

		distance := DistanceKm(center.Lat, center.Lng, coords.Lat, coords.Lng)
		if distance > radiusKm {
			continue
		}

		candidate.DistanceKm = &distance
		matched = append(matched, candidate)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return *matched[i].DistanceKm < *matched[j].DistanceKm
	})

	return matched
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
