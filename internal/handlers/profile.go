package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"zerowaste/internal/donations"
	"zerowaste/internal/models"
)

type updateProfileRequest struct {
	DisplayName *string            `json:"displayName"`
	PhotoURL    *string            `json:"photoURL"`
	Location    *locationRequest   `json:"location"`
	NGODetails  *ngoDetailsRequest `json:"ngoDetails"`
}

type ngoDetailsRequest struct {
	Description         *string  `json:"description"`
	ContactInfo         *string  `json:"contactInfo"`
	OperationalRadiusKm *float64 `json:"operationalRadiusKm"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func GetMe(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := loadUser(ctx, db, userID)
		if err != nil {
			respondDomainError(c, "GET /auth/me", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
	}
}

func UpdateProfile(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /auth/profile"

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req updateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := loadUser(ctx, db, userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		set := bson.M{}

		if req.DisplayName != nil {
			displayName := strings.TrimSpace(*req.DisplayName)
			if displayName == "" {
				respondDomainError(c, route, donations.ValidationError{Field: "displayName", Reason: "must not be empty"})
				return
			}
			set["displayName"] = displayName
		}
		if req.PhotoURL != nil {
			set["photoURL"] = strings.TrimSpace(*req.PhotoURL)
		}
		if req.Location != nil {
			location := req.Location.toModel()
			if err := donations.ValidateLocation(location); err != nil {
				respondDomainError(c, route, err)
				return
			}
			set["location"] = location
		}
		if req.NGODetails != nil {
			if user.Role != models.RoleNGO {
				respondDomainError(c, route, donations.ValidationError{Field: "ngoDetails", Reason: "only NGO accounts have NGO details"})
				return
			}
			details := models.NGODetails{}
			if user.NGODetails != nil {
				details = *user.NGODetails
			}
			if req.NGODetails.Description != nil {
				details.Description = strings.TrimSpace(*req.NGODetails.Description)
			}
			if req.NGODetails.ContactInfo != nil {
				details.ContactInfo = strings.TrimSpace(*req.NGODetails.ContactInfo)
			}
			if req.NGODetails.OperationalRadiusKm != nil {
				if *req.NGODetails.OperationalRadiusKm <= 0 {
					respondDomainError(c, route, donations.ValidationError{Field: "ngoDetails.operationalRadiusKm", Reason: "must be greater than 0"})
					return
				}
				details.OperationalRadiusKm = *req.NGODetails.OperationalRadiusKm
			}
			set["ngoDetails"] = details
		}

		if len(set) == 0 {
			respondDomainError(c, route, donations.ValidationError{Field: "fields", Reason: "no updatable fields provided"})
			return
		}
		set["updatedAt"] = time.Now()

		if _, err := db.Collection("users").UpdateByID(ctx, userID, bson.M{"$set": set}); err != nil {
			log.Println("[PROFILE] [ERROR] update failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		updated, err := loadUser(ctx, db, userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		log.Println("[PROFILE] [INFO] profile updated:", updated.Email)
		c.JSON(http.StatusOK, gin.H{"success": true, "user": updated})
	}
}

func ChangePassword(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if len(strings.TrimSpace(req.NewPassword)) < 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "newPassword must be at least 6 characters"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := loadUser(ctx, db, userID)
		if err != nil {
			respondDomainError(c, "PUT /auth/password", err)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "current password is incorrect"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(req.NewPassword)), bcrypt.DefaultCost)
		if err != nil {
			log.Println("[PROFILE] [ERROR] password hash failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "password hash failed"})
			return
		}

		_, err = db.Collection("users").UpdateByID(ctx, userID, bson.M{"$set": bson.M{
			"passwordHash": string(hash),
			"updatedAt":    time.Now(),
		}})
		if err != nil {
			log.Println("[PROFILE] [ERROR] password update failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		log.Println("[PROFILE] [INFO] password changed:", user.Email)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "password changed"})
	}
}

// DeleteAccount removes the user. A donor's donations go with the account;
// an NGO's past claims stay as historical records on other donors' listings.
func DeleteAccount(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /auth/account"

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := loadUser(ctx, db, userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		if user.Role == models.RoleDonor {
			removed, err := donations.NewStore(db).DeleteByDonor(ctx, userID)
			if err != nil {
				respondDomainError(c, route, err)
				return
			}
			log.Printf("[PROFILE] [INFO] removed %d donations for donor %s", removed, user.Email)
		}

		if _, err := db.Collection("refresh_tokens").DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
			log.Println("[PROFILE] [ERROR] refresh token cleanup failed:", err)
		}

		if _, err := db.Collection("users").DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
			log.Println("[PROFILE] [ERROR] account delete failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		log.Println("[PROFILE] [INFO] account deleted:", user.Email)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "account deleted"})
	}
}

func GetUserStats(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /auth/stats"

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := loadUser(ctx, db, userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		store := donations.NewStore(db)
		stats := gin.H{}

		switch user.Role {
		case models.RoleDonor:
			owned, err := store.FindByDonor(ctx, userID, 0)
			if err != nil {
				respondDomainError(c, route, err)
				return
			}
			stats = gin.H{
				"totalDonations":     len(owned),
				"availableDonations": countByStatus(owned, models.StatusAvailable),
				"claimedDonations":   countByStatus(owned, models.StatusClaimed),
				"completedDonations": countByStatus(owned, models.StatusPicked),
			}
		case models.RoleNGO:
			claimed, err := store.FindByClaimedBy(ctx, userID, 0)
			if err != nil {
				respondDomainError(c, route, err)
				return
			}
			available, err := store.FindAvailable(ctx, 0)
			if err != nil {
				respondDomainError(c, route, err)
				return
			}
			stats = gin.H{
				"totalClaims":        len(claimed),
				"pendingClaims":      countByStatus(claimed, models.StatusClaimed),
				"completedClaims":    countByStatus(claimed, models.StatusPicked),
				"availableDonations": len(available),
			}
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
	}
}

func countByStatus(list []models.Donation, status models.Status) int {
	count := 0
	for _, d := range list {
		if d.Status == status {
			count++
		}
	}
	return count
}
