package handlers

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"zerowaste/internal/donations"
	"zerowaste/internal/geo"
	"zerowaste/internal/models"
)

const (
	defaultPublicRadiusKm = 10
	maxPublicRadiusKm     = 100
)

// GetDonationsByLocation is the public single-shot proximity query: available
// donations within radiusKm of the given point, nearest first. No progressive
// widening here; callers pick their own radius.
func GetDonationsByLocation(db *mongo.Database) gin.HandlerFunc {
	store := donations.NewStore(db)

	return func(c *gin.Context) {
		const route = "GET /donations/location"
		defer handlePanic(c, route)

		lat, err := parseCoordParam(c.Query("lat"), "lat", -90, 90)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		lng, err := parseCoordParam(c.Query("lng"), "lng", -180, 180)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		radiusKm := float64(defaultPublicRadiusKm)
		if raw := strings.TrimSpace(c.Query("radius")); raw != "" {
			radiusKm, err = strconv.ParseFloat(raw, 64)
			if err != nil || !isFiniteKm(radiusKm) || radiusKm <= 0 {
				respondDomainError(c, route, donations.ValidationError{Field: "radius", Reason: "must be a positive number"})
				return
			}
			if radiusKm > maxPublicRadiusKm {
				radiusKm = maxPublicRadiusKm
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := ensureDBConnection(ctx, db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		candidates, err := store.FindAvailable(ctx, 0)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		center := models.Coordinates{Lat: lat, Lng: lng}
		matched := geo.FilterWithinRadius(candidates, center, radiusKm)

		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"donations": matched,
			"metadata": gin.H{
				"totalCount": len(matched),
				"radiusKm":   radiusKm,
			},
		})
	}
}

// GetDonationStats is the public counters endpoint: totals by lifecycle state
// plus a breakdown of available donations by food type.
func GetDonationStats(db *mongo.Database) gin.HandlerFunc {
	store := donations.NewStore(db)

	return func(c *gin.Context) {
		const route = "GET /donations/stats"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := ensureDBConnection(ctx, db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		all, err := store.FindAll(ctx, 0)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		byFoodType := map[string]int{}
		available, claimed, picked := 0, 0, 0
		for _, donation := range all {
			switch donation.Status {
			case models.StatusAvailable:
				if donation.IsExpired {
					continue
				}
				available++
				byFoodType[donation.FoodType]++
			case models.StatusClaimed:
				claimed++
			case models.StatusPicked:
				picked++
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"stats": gin.H{
				"totalDonations":     len(all),
				"availableDonations": available,
				"claimedDonations":   claimed,
				"completedDonations": picked,
				"byFoodType":         byFoodType,
			},
		})
	}
}

func parseCoordParam(raw, field string, min, max float64) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, donations.ValidationError{Field: field, Reason: "is required"}
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || !isFiniteKm(value) || value < min || value > max {
		return 0, donations.ValidationError{Field: field, Reason: "is out of range"}
	}
	return value, nil
}

func isFiniteKm(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
