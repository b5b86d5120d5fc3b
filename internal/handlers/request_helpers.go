package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"zerowaste/internal/donations"
	"zerowaste/internal/models"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func ensureDBConnection(ctx context.Context, db *mongo.Database) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Client().Ping(checkCtx, readpref.Primary())
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondDomainError maps the donation error taxonomy onto HTTP statuses and
// the stable {error, code} response shape. Out-of-range rejections carry the
// computed distance so clients can explain them.
func respondDomainError(c *gin.Context, route string, err error) {
	var validationErr donations.ValidationError
	if errors.As(err, &validationErr) {
		log.Printf("[%s] validation error: %v", route, err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Error(),
			"code":  validationErr.ErrorCode(),
			"field": validationErr.Field,
		})
		return
	}

	var authErr donations.AuthorizationError
	if errors.As(err, &authErr) {
		log.Printf("[%s] authorization error: %v", route, err)
		body := gin.H{"error": authErr.Error(), "code": authErr.ErrorCode()}
		if authErr.AllowedKm > 0 {
			body["distanceKm"] = roundKm(authErr.DistanceKm)
			body["allowedKm"] = authErr.AllowedKm
		}
		c.JSON(http.StatusForbidden, body)
		return
	}

	var conflictErr donations.StateConflictError
	if errors.As(err, &conflictErr) {
		log.Printf("[%s] state conflict: %v", route, err)
		c.JSON(http.StatusConflict, gin.H{
			"error":         conflictErr.Error(),
			"code":          conflictErr.ErrorCode(),
			"currentStatus": conflictErr.Current,
		})
		return
	}

	var notFoundErr donations.NotFoundError
	if errors.As(err, &notFoundErr) {
		log.Printf("[%s] not found: %v", route, err)
		c.JSON(http.StatusNotFound, gin.H{
			"error": notFoundErr.Error(),
			"code":  notFoundErr.ErrorCode(),
		})
		return
	}

	var storeErr donations.StoreError
	if errors.As(err, &storeErr) {
		log.Printf("[%s] store error: %v", route, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "donation store unavailable",
			"code":  storeErr.ErrorCode(),
		})
		return
	}

	log.Printf("[%s] unexpected error: %v", route, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"code":    donations.CodeValidation,
			"details": details,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// currentUserID pulls the ObjectID the auth middleware stored on the context.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, ok := c.Get("userId")
	if !ok {
		return primitive.NilObjectID, false
	}
	userID, ok := value.(primitive.ObjectID)
	return userID, ok
}

// loadUser fetches the authenticated user's record; handlers re-read it per
// request instead of trusting anything beyond identity from the token.
func loadUser(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) (models.User, error) {
	var user models.User
	err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, donations.NotFoundError{Resource: "user", ID: userID.Hex()}
	}
	if err != nil {
		return models.User{}, donations.StoreError{Op: "findUser", Err: err}
	}
	return user, nil
}

// bindJSONBytes decodes a body that was already drained, e.g. for a
// field-level pre-check before binding.
func bindJSONBytes(body []byte, out interface{}) error {
	return json.Unmarshal(body, out)
}

func parseLimitParam(value string, fallback int64) (int64, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	limit, err := strconv.ParseInt(value, 10, 64)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return limit, nil
}

func roundKm(value float64) float64 {
	return math.Round(value*10) / 10
}
