package donations

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"zerowaste/internal/geo"
	"zerowaste/internal/models"
)

// TransitionStore is the persistence contract the lifecycle drives. Every
// Apply* operation must check the expected current state at write time and
// report a miss instead of overwriting it.
type TransitionStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Donation, error)
	ApplyClaim(ctx context.Context, id, claimedBy primitive.ObjectID, claimedByName string) (models.Donation, error)
	ApplyPickup(ctx context.Context, id, requesterID primitive.ObjectID) (models.Donation, error)
	DeleteOwned(ctx context.Context, id, donorID primitive.ObjectID) error
	ApplyUpdate(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Donation, error)
}

// Claimant is the NGO-side context for a claim attempt, resolved from the
// authenticated user record before the lifecycle is invoked.
type Claimant struct {
	ID                  primitive.ObjectID
	Role                models.Role
	DisplayName         string
	Coordinates         *models.Coordinates
	OperationalRadiusKm float64
}

// ClaimantFromUser builds the claim context from a stored user record.
func ClaimantFromUser(user models.User) Claimant {
	claimant := Claimant{
		ID:                  user.ID,
		Role:                user.Role,
		DisplayName:         user.DisplayName,
		OperationalRadiusKm: user.OperationalRadiusKm(),
	}
	if user.HasCoordinates() {
		coords := *user.Location.Coordinates
		claimant.Coordinates = &coords
	}
	return claimant
}

// Lifecycle owns the donation state machine: claim, pickup, delete and edit,
// with their authorization and precondition guards. Guards here give the
// descriptive rejection; the store's conditional writes are the authority
// under concurrency.
type Lifecycle struct {
	store TransitionStore
	now   func() time.Time
}

func NewLifecycle(store TransitionStore) *Lifecycle {
	return &Lifecycle{store: store, now: time.Now}
}

// Claim reserves an available donation for the claimant. The distance between
// claimant and donation, when both sides have coordinates, is checked against
// the claimant's operational radius and returned on the updated donation.
func (l *Lifecycle) Claim(ctx context.Context, id primitive.ObjectID, claimant Claimant) (models.Donation, error) {
	donation, err := l.store.FindByID(ctx, id)
	if err != nil {
		return models.Donation{}, err
	}

	switch donation.Status {
	case models.StatusAvailable:
	case models.StatusClaimed, models.StatusPicked:
		return models.Donation{}, StateConflictError{
			Code:    CodeAlreadyClaimed,
			Reason:  "donation has already been claimed",
			Current: donation.Status,
		}
	default:
		return models.Donation{}, StateConflictError{
			Reason:  "donation is not available for claiming",
			Current: donation.Status,
		}
	}

	if donation.ExpiredAt(l.now()) {
		return models.Donation{}, StateConflictError{
			Code:    CodeExpired,
			Reason:  "donation has expired",
			Current: donation.Status,
		}
	}

	if claimant.Role != models.RoleNGO {
		return models.Donation{}, AuthorizationError{Reason: "only NGOs can claim donations"}
	}

	// Geo guard is soft: it only applies when both sides have coordinates.
	// The distance is computed here, before the write, and reused for the
	// response.
	var distance *float64
	if donation.HasCoordinates() && claimant.Coordinates != nil {
		d := geo.DistanceKm(
			claimant.Coordinates.Lat, claimant.Coordinates.Lng,
			donation.Location.Coordinates.Lat, donation.Location.Coordinates.Lng,
		)
		allowed := claimant.OperationalRadiusKm
		if allowed <= 0 {
			allowed = models.DefaultOperationalRadiusKm
		}
		if d > allowed {
			return models.Donation{}, AuthorizationError{
				Reason:     fmt.Sprintf("donation is %.1fkm away, outside your operational radius of %.0fkm", d, allowed),
				DistanceKm: d,
				AllowedKm:  allowed,
			}
		}
		distance = &d
	}

	updated, err := l.store.ApplyClaim(ctx, id, claimant.ID, claimant.DisplayName)
	if err != nil {
		return models.Donation{}, err
	}
	updated.DistanceKm = distance
	return updated, nil
}

// MarkPicked confirms pickup of a claimed donation. Only the claimant may do
// this.
func (l *Lifecycle) MarkPicked(ctx context.Context, id, requesterID primitive.ObjectID) (models.Donation, error) {
	donation, err := l.store.FindByID(ctx, id)
	if err != nil {
		return models.Donation{}, err
	}

	if donation.Status != models.StatusClaimed {
		return models.Donation{}, StateConflictError{
			Reason:  "donation is not in claimed status",
			Current: donation.Status,
		}
	}
	if donation.ClaimedBy == nil || *donation.ClaimedBy != requesterID {
		return models.Donation{}, AuthorizationError{Reason: "only the claiming NGO can confirm pickup"}
	}

	return l.store.ApplyPickup(ctx, id, requesterID)
}

// Delete removes a donation for its donor. Claimed and picked donations are
// protected; available ones (including those left to expire) may go.
func (l *Lifecycle) Delete(ctx context.Context, id, requesterID primitive.ObjectID) error {
	donation, err := l.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if donation.DonorID != requesterID {
		return AuthorizationError{Reason: "only the donor can delete this donation"}
	}
	if donation.Status != models.StatusAvailable && donation.Status != models.StatusExpired {
		return StateConflictError{
			Reason:  "claimed or picked donations cannot be deleted",
			Current: donation.Status,
		}
	}

	return l.store.DeleteOwned(ctx, id, requesterID)
}

// UpdateInput carries the descriptive fields a donor may edit. Status,
// claimant and pickup bookkeeping have no representation here and can never
// be written through an edit.
type UpdateInput struct {
	Title        *string
	Description  *string
	Quantity     *string
	FoodType     *string
	ExpiryTime   *time.Time
	PickupWindow *models.PickupWindow
	Location     *models.Location
	ImageURL     *string
}

// Update edits a donation's descriptive fields for its donor.
func (l *Lifecycle) Update(ctx context.Context, id, requesterID primitive.ObjectID, input UpdateInput) (models.Donation, error) {
	donation, err := l.store.FindByID(ctx, id)
	if err != nil {
		return models.Donation{}, err
	}

	if donation.DonorID != requesterID {
		return models.Donation{}, AuthorizationError{Reason: "only the donor can update this donation"}
	}

	set, err := input.setDocument(l.now())
	if err != nil {
		return models.Donation{}, err
	}

	return l.store.ApplyUpdate(ctx, id, set)
}

func (in UpdateInput) setDocument(now time.Time) (bson.M, error) {
	set := bson.M{}

	if in.Title != nil {
		set["title"] = *in.Title
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Quantity != nil {
		set["quantity"] = *in.Quantity
	}
	if in.FoodType != nil {
		set["foodType"] = *in.FoodType
	}
	if in.ExpiryTime != nil {
		set["expiryTime"] = *in.ExpiryTime
	}
	if in.PickupWindow != nil {
		if in.PickupWindow.Start.After(in.PickupWindow.End) {
			return nil, ValidationError{Field: "pickupWindow", Reason: "start must not be after end"}
		}
		set["pickupWindow"] = *in.PickupWindow
	}
	if in.Location != nil {
		if err := ValidateLocation(*in.Location); err != nil {
			return nil, err
		}
		set["location"] = *in.Location
	}
	if in.ImageURL != nil {
		set["imageUrl"] = *in.ImageURL
	}

	if len(set) == 0 {
		return nil, ValidationError{Field: "fields", Reason: "no updatable fields provided"}
	}

	set["updatedAt"] = now
	return set, nil
}
