package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"zerowaste/internal/donations"
)

// ClaimDonation reserves an available donation for the authenticated NGO.
// The distance between NGO and donation rides along in the response when both
// sides have coordinates.
func ClaimDonation(db *mongo.Database) gin.HandlerFunc {
	lifecycle := donations.NewLifecycle(donations.NewStore(db))

	return func(c *gin.Context) {
		const route = "POST /donations/:id/claim"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid donation id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := loadUser(ctx, db, userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		claimed, err := lifecycle.Claim(ctx, id, donations.ClaimantFromUser(user))
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		body := gin.H{"success": true, "donation": claimed}
		if claimed.DistanceKm != nil {
			body["distanceKm"] = roundKm(*claimed.DistanceKm)
		}

		log.Println("[DONATIONS] [INFO] donation claimed:", id.Hex(), "by", user.Email)
		c.JSON(http.StatusOK, body)
	}
}

// MarkPicked confirms that the claiming NGO collected the donation.
func MarkPicked(db *mongo.Database) gin.HandlerFunc {
	lifecycle := donations.NewLifecycle(donations.NewStore(db))

	return func(c *gin.Context) {
		const route = "POST /donations/:id/pickup"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid donation id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		picked, err := lifecycle.MarkPicked(ctx, id, userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		log.Println("[DONATIONS] [INFO] pickup confirmed:", id.Hex())
		c.JSON(http.StatusOK, gin.H{"success": true, "donation": picked})
	}
}
