package donations

import (
	"strings"

	"zerowaste/internal/models"
)

// ValidateLocation checks the address requirement and, when coordinates are
// present, their decimal-degree ranges.
func ValidateLocation(location models.Location) error {
	if strings.TrimSpace(location.Address) == "" {
		return ValidationError{Field: "location.address", Reason: "address is required"}
	}
	if coords := location.Coordinates; coords != nil {
		if coords.Lat < -90 || coords.Lat > 90 {
			return ValidationError{Field: "location.coordinates.lat", Reason: "must be between -90 and 90"}
		}
		if coords.Lng < -180 || coords.Lng > 180 {
			return ValidationError{Field: "location.coordinates.lng", Reason: "must be between -180 and 180"}
		}
	}
	return nil
}

// ValidateNew checks a donation before its first insert.
func ValidateNew(donation models.Donation) error {
	required := []struct {
		field string
		value string
	}{
		{"title", donation.Title},
		{"description", donation.Description},
		{"quantity", donation.Quantity},
		{"foodType", donation.FoodType},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return ValidationError{Field: r.field, Reason: "is required"}
		}
	}

	if donation.ExpiryTime.IsZero() {
		return ValidationError{Field: "expiryTime", Reason: "is required"}
	}
	if donation.PickupWindow.Start.IsZero() || donation.PickupWindow.End.IsZero() {
		return ValidationError{Field: "pickupWindow", Reason: "start and end are required"}
	}
	if donation.PickupWindow.Start.After(donation.PickupWindow.End) {
		return ValidationError{Field: "pickupWindow", Reason: "start must not be after end"}
	}

	return ValidateLocation(donation.Location)
}
