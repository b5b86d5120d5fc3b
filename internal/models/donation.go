package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the donation lifecycle state. Transitions only move forward:
// available -> claimed -> picked. "expired" is derived from ExpiryTime and is
// never written by a transition in this service.
type Status string

const (
	StatusAvailable Status = "available"
	StatusClaimed   Status = "claimed"
	StatusPicked    Status = "picked"
	StatusExpired   Status = "expired"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusClaimed, StatusPicked, StatusExpired:
		return true
	}
	return false
}

// Donation is a single surplus-food listing.
type Donation struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	DonorID       primitive.ObjectID  `bson:"donorId" json:"donorId"`
	DonorName     string              `bson:"donorName" json:"donorName"`
	Title         string              `bson:"title" json:"title"`
	Description   string              `bson:"description" json:"description"`
	Quantity      string              `bson:"quantity" json:"quantity"`
	FoodType      string              `bson:"foodType" json:"foodType"`
	ExpiryTime    time.Time           `bson:"expiryTime" json:"expiryTime"`
	PickupWindow  PickupWindow        `bson:"pickupWindow" json:"pickupWindow"`
	Location      Location            `bson:"location" json:"location"`
	ImageURL      string              `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Status        Status              `bson:"status" json:"status"`
	ClaimedBy     *primitive.ObjectID `bson:"claimedBy,omitempty" json:"claimedBy,omitempty"`
	ClaimedByName string              `bson:"claimedByName,omitempty" json:"claimedByName,omitempty"`
	PickedUpAt    *time.Time          `bson:"pickedUpAt,omitempty" json:"pickedUpAt,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`

	// IsExpired is derived at read time, never persisted.
	IsExpired bool `bson:"-" json:"isExpired"`
	// DistanceKm is set by proximity queries for the requesting center point.
	DistanceKm *float64 `bson:"-" json:"distanceKm,omitempty"`
}

// ExpiredAt reports whether the donation's expiry time has passed at now.
func (d Donation) ExpiredAt(now time.Time) bool {
	return !d.ExpiryTime.IsZero() && now.After(d.ExpiryTime)
}

// HasCoordinates reports whether the donation stored a usable lat/lng pair.
func (d Donation) HasCoordinates() bool {
	return d.Location.Coordinates != nil
}
