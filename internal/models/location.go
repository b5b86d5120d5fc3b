package models

import "time"

// Coordinates is a decimal-degree lat/lng pair.
type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Location couples a free-text address with optional coordinates. The address
// is always entered by the user; coordinates are only present when the client
// supplied them, so every consumer must handle the nil case.
type Location struct {
	Address     string       `bson:"address" json:"address"`
	Coordinates *Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// PickupWindow is the time span a donor is reachable for pickup.
type PickupWindow struct {
	Start time.Time `bson:"start" json:"start"`
	End   time.Time `bson:"end" json:"end"`
}
