package donations

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"zerowaste/internal/models"
)

// memoryStore implements TransitionStore with the same conditional-write
// semantics as the Mongo store: every transition re-checks the current state
// at write time.
type memoryStore struct {
	donations map[primitive.ObjectID]models.Donation
}

func newMemoryStore(donations ...models.Donation) *memoryStore {
	store := &memoryStore{donations: map[primitive.ObjectID]models.Donation{}}
	for _, d := range donations {
		store.donations[d.ID] = d
	}
	return store
}

func (m *memoryStore) FindByID(ctx context.Context, id primitive.ObjectID) (models.Donation, error) {
	donation, ok := m.donations[id]
	if !ok {
		return models.Donation{}, NotFoundError{Resource: "donation", ID: id.Hex()}
	}
	donation.IsExpired = donation.ExpiredAt(time.Now())
	return donation, nil
}

func (m *memoryStore) ApplyClaim(ctx context.Context, id, claimedBy primitive.ObjectID, claimedByName string) (models.Donation, error) {
	donation, ok := m.donations[id]
	if !ok {
		return models.Donation{}, NotFoundError{Resource: "donation", ID: id.Hex()}
	}
	if donation.Status != models.StatusAvailable || donation.ExpiredAt(time.Now()) {
		return models.Donation{}, StateConflictError{
			Code:    CodeAlreadyClaimed,
			Reason:  "donation has already been claimed",
			Current: donation.Status,
		}
	}
	donation.Status = models.StatusClaimed
	donation.ClaimedBy = &claimedBy
	donation.ClaimedByName = claimedByName
	m.donations[id] = donation
	return donation, nil
}

func (m *memoryStore) ApplyPickup(ctx context.Context, id, requesterID primitive.ObjectID) (models.Donation, error) {
	donation, ok := m.donations[id]
	if !ok {
		return models.Donation{}, NotFoundError{Resource: "donation", ID: id.Hex()}
	}
	if donation.Status != models.StatusClaimed || donation.ClaimedBy == nil || *donation.ClaimedBy != requesterID {
		return models.Donation{}, StateConflictError{Reason: "donation is not in claimed status", Current: donation.Status}
	}
	now := time.Now()
	donation.Status = models.StatusPicked
	donation.PickedUpAt = &now
	m.donations[id] = donation
	return donation, nil
}

func (m *memoryStore) DeleteOwned(ctx context.Context, id, donorID primitive.ObjectID) error {
	donation, ok := m.donations[id]
	if !ok {
		return NotFoundError{Resource: "donation", ID: id.Hex()}
	}
	if donation.DonorID != donorID || (donation.Status != models.StatusAvailable && donation.Status != models.StatusExpired) {
		return StateConflictError{Reason: "claimed or picked donations cannot be deleted", Current: donation.Status}
	}
	delete(m.donations, id)
	return nil
}

func (m *memoryStore) ApplyUpdate(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Donation, error) {
	donation, ok := m.donations[id]
	if !ok {
		return models.Donation{}, NotFoundError{Resource: "donation", ID: id.Hex()}
	}
	if title, ok := set["title"].(string); ok {
		donation.Title = title
	}
	if description, ok := set["description"].(string); ok {
		donation.Description = description
	}
	m.donations[id] = donation
	return donation, nil
}

func testDonation(donorID primitive.ObjectID, coords *models.Coordinates) models.Donation {
	return models.Donation{
		ID:         primitive.NewObjectID(),
		DonorID:    donorID,
		DonorName:  "Test Donor",
		Title:      "Leftover rice",
		Status:     models.StatusAvailable,
		ExpiryTime: time.Now().Add(6 * time.Hour),
		PickupWindow: models.PickupWindow{
			Start: time.Now(),
			End:   time.Now().Add(4 * time.Hour),
		},
		Location: models.Location{Address: "MG Road", Coordinates: coords},
	}
}

func ngoClaimant(radius float64, coords *models.Coordinates) Claimant {
	return Claimant{
		ID:                  primitive.NewObjectID(),
		Role:                models.RoleNGO,
		DisplayName:         "Helping Hands",
		Coordinates:         coords,
		OperationalRadiusKm: radius,
	}
}

func TestClaimSucceedsWithinOperationalRadius(t *testing.T) {
	donorID := primitive.NewObjectID()
	donation := testDonation(donorID, &models.Coordinates{Lat: 12.9716, Lng: 77.5946})
	store := newMemoryStore(donation)
	lifecycle := NewLifecycle(store)

	// NGO ~4.8km from the donation with a 20km radius.
	claimant := ngoClaimant(20, &models.Coordinates{Lat: 12.9352, Lng: 77.6146})

	claimed, err := lifecycle.Claim(context.Background(), donation.ID, claimant)
	if err != nil {
		t.Fatalf("expected claim to succeed, got %v", err)
	}
	if claimed.Status != models.StatusClaimed {
		t.Fatalf("expected status claimed, got %s", claimed.Status)
	}
	if claimed.ClaimedBy == nil || *claimed.ClaimedBy != claimant.ID {
		t.Fatal("expected claimedBy to be the claimant")
	}
	if claimed.ClaimedByName != "Helping Hands" {
		t.Fatalf("expected denormalized claimant name, got %q", claimed.ClaimedByName)
	}
	if claimed.DistanceKm == nil {
		t.Fatal("expected distance on the claim result")
	}
	if *claimed.DistanceKm < 4.3 || *claimed.DistanceKm > 5.3 {
		t.Fatalf("expected ~4.8km distance, got %v", *claimed.DistanceKm)
	}
}

func TestClaimRejectedOutsideOperationalRadius(t *testing.T) {
	donorID := primitive.NewObjectID()
	// Donation ~48km from the NGO.
	donation := testDonation(donorID, &models.Coordinates{Lat: 13.3525, Lng: 77.1010})
	store := newMemoryStore(donation)
	lifecycle := NewLifecycle(store)

	claimant := ngoClaimant(20, &models.Coordinates{Lat: 12.9352, Lng: 77.6146})

	_, err := lifecycle.Claim(context.Background(), donation.ID, claimant)
	var authErr AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
	if authErr.ErrorCode() != CodeOutOfRange {
		t.Fatalf("expected OUT_OF_RANGE code, got %s", authErr.ErrorCode())
	}
	if authErr.DistanceKm < 45 || authErr.DistanceKm > 52 {
		t.Fatalf("expected ~48km in the rejection, got %v", authErr.DistanceKm)
	}
	if authErr.AllowedKm != 20 {
		t.Fatalf("expected the 20km radius in the rejection, got %v", authErr.AllowedKm)
	}

	if stored, _ := store.FindByID(context.Background(), donation.ID); stored.Status != models.StatusAvailable {
		t.Fatalf("expected donation to stay available after rejection, got %s", stored.Status)
	}
}

func TestClaimSkipsGeoGuardWithoutCoordinates(t *testing.T) {
	donorID := primitive.NewObjectID()
	donation := testDonation(donorID, nil)
	store := newMemoryStore(donation)
	lifecycle := NewLifecycle(store)

	claimed, err := lifecycle.Claim(context.Background(), donation.ID, ngoClaimant(20, &models.Coordinates{Lat: 12.9352, Lng: 77.6146}))
	if err != nil {
		t.Fatalf("expected claim without donation coordinates to succeed, got %v", err)
	}
	if claimed.DistanceKm != nil {
		t.Fatal("expected no distance when the donation has no coordinates")
	}
}

func TestClaimRejectedForNonNGO(t *testing.T) {
	donation := testDonation(primitive.NewObjectID(), nil)
	lifecycle := NewLifecycle(newMemoryStore(donation))

	claimant := ngoClaimant(20, nil)
	claimant.Role = models.RoleDonor

	_, err := lifecycle.Claim(context.Background(), donation.ID, claimant)
	var authErr AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError for donor claimant, got %v", err)
	}
	if authErr.ErrorCode() != CodeNotAuthorized {
		t.Fatalf("expected NOT_AUTHORIZED code, got %s", authErr.ErrorCode())
	}
}

func TestClaimRejectedWhenExpiredDespiteStoredStatus(t *testing.T) {
	donation := testDonation(primitive.NewObjectID(), nil)
	donation.Status = models.StatusAvailable
	donation.ExpiryTime = time.Now().Add(-time.Hour)
	lifecycle := NewLifecycle(newMemoryStore(donation))

	_, err := lifecycle.Claim(context.Background(), donation.ID, ngoClaimant(20, nil))
	var conflict StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError for expired donation, got %v", err)
	}
	if conflict.ErrorCode() != CodeExpired {
		t.Fatalf("expected EXPIRED code, got %s", conflict.ErrorCode())
	}
}

func TestSecondClaimLosesTheRace(t *testing.T) {
	donation := testDonation(primitive.NewObjectID(), nil)
	store := newMemoryStore(donation)
	lifecycle := NewLifecycle(store)

	first := ngoClaimant(20, nil)
	second := ngoClaimant(20, nil)

	if _, err := lifecycle.Claim(context.Background(), donation.ID, first); err != nil {
		t.Fatalf("expected first claim to succeed, got %v", err)
	}

	_, err := lifecycle.Claim(context.Background(), donation.ID, second)
	var conflict StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError for the losing claim, got %v", err)
	}
	if conflict.ErrorCode() != CodeAlreadyClaimed {
		t.Fatalf("expected ALREADY_CLAIMED code, got %s", conflict.ErrorCode())
	}

	stored, _ := store.FindByID(context.Background(), donation.ID)
	if stored.Status != models.StatusClaimed || stored.ClaimedBy == nil || *stored.ClaimedBy != first.ID {
		t.Fatal("expected exactly one claimant recorded")
	}
}

// staleReadStore reports an available donation on read but a conflict at
// write time, the shape a lost race takes against a shared store.
type staleReadStore struct {
	memoryStore
	stale models.Donation
}

func (s *staleReadStore) FindByID(ctx context.Context, id primitive.ObjectID) (models.Donation, error) {
	return s.stale, nil
}

func TestClaimSurfacesWriteTimeConflict(t *testing.T) {
	donation := testDonation(primitive.NewObjectID(), nil)
	claimed := donation
	winner := primitive.NewObjectID()
	claimed.Status = models.StatusClaimed
	claimed.ClaimedBy = &winner

	store := &staleReadStore{stale: donation}
	store.donations = map[primitive.ObjectID]models.Donation{donation.ID: claimed}
	lifecycle := NewLifecycle(store)

	_, err := lifecycle.Claim(context.Background(), donation.ID, ngoClaimant(20, nil))
	var conflict StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected the write-time conflict to surface, got %v", err)
	}
	if conflict.ErrorCode() != CodeAlreadyClaimed {
		t.Fatalf("expected ALREADY_CLAIMED code, got %s", conflict.ErrorCode())
	}
}

func TestMarkPickedOnlyByClaimant(t *testing.T) {
	donation := testDonation(primitive.NewObjectID(), nil)
	claimant := primitive.NewObjectID()
	donation.Status = models.StatusClaimed
	donation.ClaimedBy = &claimant
	lifecycle := NewLifecycle(newMemoryStore(donation))

	_, err := lifecycle.MarkPicked(context.Background(), donation.ID, primitive.NewObjectID())
	var authErr AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError for a stranger, got %v", err)
	}

	picked, err := lifecycle.MarkPicked(context.Background(), donation.ID, claimant)
	if err != nil {
		t.Fatalf("expected pickup by the claimant to succeed, got %v", err)
	}
	if picked.Status != models.StatusPicked || picked.PickedUpAt == nil {
		t.Fatal("expected picked status and pickedUpAt timestamp")
	}
}

func TestMarkPickedRequiresClaimedStatus(t *testing.T) {
	donation := testDonation(primitive.NewObjectID(), nil)
	lifecycle := NewLifecycle(newMemoryStore(donation))

	_, err := lifecycle.MarkPicked(context.Background(), donation.ID, primitive.NewObjectID())
	var conflict StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError for an unclaimed donation, got %v", err)
	}
}

func TestDeleteBlockedOnceClaimed(t *testing.T) {
	donorID := primitive.NewObjectID()
	donation := testDonation(donorID, nil)
	claimant := primitive.NewObjectID()
	donation.Status = models.StatusClaimed
	donation.ClaimedBy = &claimant
	lifecycle := NewLifecycle(newMemoryStore(donation))

	err := lifecycle.Delete(context.Background(), donation.ID, donorID)
	var conflict StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError for the owning donor, got %v", err)
	}
}

func TestDeleteByNonOwnerRejected(t *testing.T) {
	donation := testDonation(primitive.NewObjectID(), nil)
	lifecycle := NewLifecycle(newMemoryStore(donation))

	err := lifecycle.Delete(context.Background(), donation.ID, primitive.NewObjectID())
	var authErr AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError for non-owner, got %v", err)
	}
}

func TestDeleteAllowedWhileExpiredButStillStoredAvailable(t *testing.T) {
	donorID := primitive.NewObjectID()
	donation := testDonation(donorID, nil)
	donation.ExpiryTime = time.Now().Add(-time.Hour)
	store := newMemoryStore(donation)
	lifecycle := NewLifecycle(store)

	if err := lifecycle.Delete(context.Background(), donation.ID, donorID); err != nil {
		t.Fatalf("expected delete of expired donation to succeed, got %v", err)
	}
	if _, err := store.FindByID(context.Background(), donation.ID); err == nil {
		t.Fatal("expected donation to be gone")
	}
}

func TestUpdateByNonOwnerRejected(t *testing.T) {
	donation := testDonation(primitive.NewObjectID(), nil)
	lifecycle := NewLifecycle(newMemoryStore(donation))

	title := "New title"
	_, err := lifecycle.Update(context.Background(), donation.ID, primitive.NewObjectID(), UpdateInput{Title: &title})
	var authErr AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError for non-owner update, got %v", err)
	}
}

func TestUpdateRejectsInvalidPickupWindow(t *testing.T) {
	donorID := primitive.NewObjectID()
	donation := testDonation(donorID, nil)
	lifecycle := NewLifecycle(newMemoryStore(donation))

	window := models.PickupWindow{
		Start: time.Now().Add(2 * time.Hour),
		End:   time.Now().Add(time.Hour),
	}
	_, err := lifecycle.Update(context.Background(), donation.ID, donorID, UpdateInput{PickupWindow: &window})
	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for inverted window, got %v", err)
	}
}

func TestUpdateRejectsEmptyInput(t *testing.T) {
	donorID := primitive.NewObjectID()
	donation := testDonation(donorID, nil)
	lifecycle := NewLifecycle(newMemoryStore(donation))

	_, err := lifecycle.Update(context.Background(), donation.ID, donorID, UpdateInput{})
	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for empty update, got %v", err)
	}
}

func TestClaimUnknownDonation(t *testing.T) {
	lifecycle := NewLifecycle(newMemoryStore())

	_, err := lifecycle.Claim(context.Background(), primitive.NewObjectID(), ngoClaimant(20, nil))
	var notFound NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
