package handlers

import (
	"encoding/json"
	"strings"
	"time"

	"zerowaste/internal/donations"
	"zerowaste/internal/models"
)

type locationRequest struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

// toModel keeps coordinates only when both halves were supplied; a lone lat
// or lng is treated as no coordinates at all.
func (r locationRequest) toModel() models.Location {
	location := models.Location{Address: strings.TrimSpace(r.Address)}
	if r.Lat != nil && r.Lng != nil {
		location.Coordinates = &models.Coordinates{Lat: *r.Lat, Lng: *r.Lng}
	}
	return location
}

type pickupWindowRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type createDonationRequest struct {
	Title        string              `json:"title" binding:"required"`
	Description  string              `json:"description" binding:"required"`
	Quantity     string              `json:"quantity" binding:"required"`
	FoodType     string              `json:"foodType" binding:"required"`
	ExpiryTime   time.Time           `json:"expiryTime" binding:"required"`
	PickupWindow pickupWindowRequest `json:"pickupWindow" binding:"required"`
	Location     locationRequest     `json:"location" binding:"required"`
	ImageURL     string              `json:"imageUrl"`
}

func buildDonationFromRequest(req createDonationRequest, donor models.User, now time.Time) (models.Donation, error) {
	donation := models.Donation{
		DonorID:     donor.ID,
		DonorName:   donor.DisplayName,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Quantity:    strings.TrimSpace(req.Quantity),
		FoodType:    strings.TrimSpace(req.FoodType),
		ExpiryTime:  req.ExpiryTime,
		PickupWindow: models.PickupWindow{
			Start: req.PickupWindow.Start,
			End:   req.PickupWindow.End,
		},
		Location:  req.Location.toModel(),
		ImageURL:  strings.TrimSpace(req.ImageURL),
		Status:    models.StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := donations.ValidateNew(donation); err != nil {
		return models.Donation{}, err
	}
	return donation, nil
}

type updateDonationRequest struct {
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	Quantity     *string              `json:"quantity"`
	FoodType     *string              `json:"foodType"`
	ExpiryTime   *time.Time           `json:"expiryTime"`
	PickupWindow *pickupWindowRequest `json:"pickupWindow"`
	Location     *locationRequest     `json:"location"`
	ImageURL     *string              `json:"imageUrl"`
}

func (r updateDonationRequest) toInput() donations.UpdateInput {
	input := donations.UpdateInput{
		Title:       r.Title,
		Description: r.Description,
		Quantity:    r.Quantity,
		FoodType:    r.FoodType,
		ExpiryTime:  r.ExpiryTime,
		ImageURL:    r.ImageURL,
	}
	if r.PickupWindow != nil {
		input.PickupWindow = &models.PickupWindow{
			Start: r.PickupWindow.Start,
			End:   r.PickupWindow.End,
		}
	}
	if r.Location != nil {
		location := r.Location.toModel()
		input.Location = &location
	}
	return input
}

// lifecycleFields are donation fields only state transitions may touch.
// Edits that try to write them directly are rejected instead of ignored.
var lifecycleFields = []string{"status", "claimedBy", "claimedByName", "pickedUpAt", "donorId", "donorName", "createdAt"}

func rejectLifecycleFieldWrites(body []byte) error {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return donations.ValidationError{Field: "body", Reason: "invalid JSON payload"}
	}
	for _, field := range lifecycleFields {
		if _, ok := payload[field]; ok {
			return donations.ValidationError{Field: field, Reason: "cannot be set through an update"}
		}
	}
	return nil
}
