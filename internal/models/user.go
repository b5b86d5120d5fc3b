package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role distinguishes the two account types. It is fixed at registration and
// never changed afterwards.
type Role string

const (
	RoleDonor Role = "donor"
	RoleNGO   Role = "ngo"
)

// DefaultOperationalRadiusKm applies when an NGO has not configured a radius.
const DefaultOperationalRadiusKm = 20

// Valid reports whether the role is one of the two known account types.
func (r Role) Valid() bool {
	return r == RoleDonor || r == RoleNGO
}

// NGODetails holds the NGO-only profile section.
type NGODetails struct {
	Description         string  `bson:"description,omitempty" json:"description,omitempty"`
	ContactInfo         string  `bson:"contactInfo,omitempty" json:"contactInfo,omitempty"`
	OperationalRadiusKm float64 `bson:"operationalRadiusKm,omitempty" json:"operationalRadiusKm,omitempty"`
}

// User represents the application user account.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	DisplayName  string             `bson:"displayName" json:"displayName"`
	Role         Role               `bson:"role" json:"role"`
	PhotoURL     string             `bson:"photoURL,omitempty" json:"photoURL,omitempty"`
	Location     *Location          `bson:"location,omitempty" json:"location,omitempty"`
	NGODetails   *NGODetails        `bson:"ngoDetails,omitempty" json:"ngoDetails,omitempty"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// OperationalRadiusKm returns the configured radius, or the default when the
// NGO details are missing or hold a non-positive value.
func (u User) OperationalRadiusKm() float64 {
	if u.NGODetails != nil && u.NGODetails.OperationalRadiusKm > 0 {
		return u.NGODetails.OperationalRadiusKm
	}
	return DefaultOperationalRadiusKm
}

// HasCoordinates reports whether the user stored a usable lat/lng pair.
func (u User) HasCoordinates() bool {
	return u.Location != nil && u.Location.Coordinates != nil
}
