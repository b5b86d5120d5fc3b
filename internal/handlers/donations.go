package handlers

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"zerowaste/internal/donations"
	"zerowaste/internal/models"
)

const defaultListLimit = 50

// GetDonations lists donations for the authenticated user. NGOs with a saved
// location get the progressive radius search around it; everyone else gets
// the plain available feed. status, donorId=me and claimedBy=me narrow the
// list explicitly and bypass the location branch.
func GetDonations(db *mongo.Database) gin.HandlerFunc {
	store := donations.NewStore(db)

	return func(c *gin.Context) {
		const route = "GET /donations"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		limit, err := parseLimitParam(c.Query("limit"), defaultListLimit)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		user, err := loadUser(ctx, db, userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		query := listQuery{
			Status:    c.Query("status"),
			DonorMe:   c.Query("donorId") == "me",
			ClaimedMe: c.Query("claimedBy") == "me",
		}
		list, filteredByLocation, err := listDonations(ctx, store, user, query, limit)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"donations": list,
			"metadata": gin.H{
				"totalCount":         len(list),
				"filteredByLocation": filteredByLocation,
				"userRole":           user.Role,
			},
		})
	}
}

// donationLister is the slice of the store the list endpoint reads from,
// small enough to fake in tests.
type donationLister interface {
	FindAvailable(ctx context.Context, limit int64) ([]models.Donation, error)
	FindByStatus(ctx context.Context, status models.Status, limit int64) ([]models.Donation, error)
	FindByDonor(ctx context.Context, donorID primitive.ObjectID, limit int64) ([]models.Donation, error)
	FindByClaimedBy(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Donation, error)
}

type listQuery struct {
	Status    string
	DonorMe   bool
	ClaimedMe bool
}

func listDonations(ctx context.Context, store donationLister, user models.User, query listQuery, limit int64) ([]models.Donation, bool, error) {
	if status := strings.TrimSpace(query.Status); status != "" {
		parsed := models.Status(status)
		if !parsed.Valid() {
			return nil, false, donations.ValidationError{Field: "status", Reason: "unknown status"}
		}
		// Asking for "available" explicitly still means the live feed:
		// listings past their expiry never come back under that status.
		if parsed == models.StatusAvailable {
			list, err := store.FindAvailable(ctx, limit)
			return list, false, err
		}
		list, err := store.FindByStatus(ctx, parsed, limit)
		return list, false, err
	}
	if query.DonorMe {
		list, err := store.FindByDonor(ctx, user.ID, limit)
		return list, false, err
	}
	if query.ClaimedMe {
		list, err := store.FindByClaimedBy(ctx, user.ID, limit)
		return list, false, err
	}

	if user.Role == models.RoleNGO && user.HasCoordinates() {
		list, err := donations.FindNearbyForNGO(ctx, store, *user.Location.Coordinates, user.OperationalRadiusKm(), limit)
		if err == nil {
			return list, true, nil
		}
		// The plain feed is better than an error page when the search is the
		// only thing failing.
		log.Println("[DONATIONS] [ERROR] radius search failed, falling back to available feed:", err)
		list, err = store.FindAvailable(ctx, limit)
		return list, false, err
	}

	list, err := store.FindAvailable(ctx, limit)
	return list, false, err
}

func GetDonationByID(db *mongo.Database) gin.HandlerFunc {
	store := donations.NewStore(db)

	return func(c *gin.Context) {
		const route = "GET /donations/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid donation id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		donation, err := store.FindByID(ctx, id)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "donation": donation})
	}
}

// CreateDonation publishes a new listing for the authenticated donor.
func CreateDonation(db *mongo.Database) gin.HandlerFunc {
	store := donations.NewStore(db)

	return func(c *gin.Context) {
		const route = "POST /donations"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req createDonationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := loadUser(ctx, db, userID)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}
		if user.Role != models.RoleDonor {
			respondDomainError(c, route, donations.AuthorizationError{Reason: "only donors can create donations"})
			return
		}

		donation, err := buildDonationFromRequest(req, user, time.Now())
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		created, err := store.Insert(ctx, donation)
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		log.Println("[DONATIONS] [INFO] donation created:", created.ID.Hex(), "by", user.Email)
		c.JSON(http.StatusCreated, gin.H{"success": true, "donation": created})
	}
}

// UpdateDonation edits a listing's descriptive fields. The body is checked
// against the lifecycle field list first, so a request trying to flip status
// or claimant directly is rejected rather than silently stripped.
func UpdateDonation(db *mongo.Database) gin.HandlerFunc {
	lifecycle := donations.NewLifecycle(donations.NewStore(db))

	return func(c *gin.Context) {
		const route = "PUT /donations/:id"
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

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "could not read body")
			return
		}
		if err := rejectLifecycleFieldWrites(body); err != nil {
			respondDomainError(c, route, err)
			return
		}

		var req updateDonationRequest
		if err := bindJSONBytes(body, &req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		updated, err := lifecycle.Update(ctx, id, userID, req.toInput())
		if err != nil {
			respondDomainError(c, route, err)
			return
		}

		log.Println("[DONATIONS] [INFO] donation updated:", id.Hex())
		c.JSON(http.StatusOK, gin.H{"success": true, "donation": updated})
	}
}

func DeleteDonation(db *mongo.Database) gin.HandlerFunc {
	lifecycle := donations.NewLifecycle(donations.NewStore(db))

	return func(c *gin.Context) {
		const route = "DELETE /donations/:id"
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

		if err := lifecycle.Delete(ctx, id, userID); err != nil {
			respondDomainError(c, route, err)
			return
		}

		log.Println("[DONATIONS] [INFO] donation deleted:", id.Hex())
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "donation deleted"})
	}
}
