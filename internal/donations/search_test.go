package donations

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"zerowaste/internal/models"
)

type fakeCatalog struct {
	donations []models.Donation
	calls     int
	err       error
}

func (f *fakeCatalog) FindAvailable(ctx context.Context, limit int64) ([]models.Donation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && int64(len(f.donations)) > limit {
		return f.donations[:limit], nil
	}
	return f.donations, nil
}

func availableAt(title string, lat, lng float64) models.Donation {
	return models.Donation{
		ID:     primitive.NewObjectID(),
		Title:  title,
		Status: models.StatusAvailable,
		Location: models.Location{
			Address:     "test address",
			Coordinates: &models.Coordinates{Lat: lat, Lng: lng},
		},
	}
}

// Bangalore city center; the helper donations below are placed relative to it.
var testCenter = models.Coordinates{Lat: 12.9716, Lng: 77.5946}

func TestFindNearbyStopsAtFirstNonEmptyRadius(t *testing.T) {
	// Nothing within 5km, two donations within 10km. ~0.09 degrees of
	// latitude is roughly 10km.
	catalog := &fakeCatalog{donations: []models.Donation{
		availableAt("eight km out", 12.9716+0.072, 77.5946),
		availableAt("seven km out", 12.9716+0.063, 77.5946),
	}}

	got, err := FindNearbyForNGO(context.Background(), catalog, testCenter, 20, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 donations at the 10km pass, got %d", len(got))
	}
	if catalog.calls != 2 {
		t.Fatalf("expected the search to stop on the second pass, got %d passes", catalog.calls)
	}
	if got[0].Title != "seven km out" || got[1].Title != "eight km out" {
		t.Fatalf("expected nearest-first order, got %q then %q", got[0].Title, got[1].Title)
	}
}

func TestFindNearbyEmptyAtMaxRadius(t *testing.T) {
	catalog := &fakeCatalog{donations: []models.Donation{
		availableAt("fifty km out", 13.4216, 77.5946),
	}}

	got, err := FindNearbyForNGO(context.Background(), catalog, testCenter, 20, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result beyond the operational radius, got %d", len(got))
	}
	// 5, 10, 15, 20 and no further: the cap bounds the loop.
	if catalog.calls != 4 {
		t.Fatalf("expected 4 passes up to the 20km cap, got %d", catalog.calls)
	}
}

func TestFindNearbyMaxRadiusBelowStep(t *testing.T) {
	catalog := &fakeCatalog{donations: []models.Donation{
		availableAt("two km out", 12.9716+0.018, 77.5946),
	}}

	got, err := FindNearbyForNGO(context.Background(), catalog, testCenter, 3, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one pass at the 3km cap to match, got %d results", len(got))
	}
	if catalog.calls != 1 {
		t.Fatalf("expected exactly one pass when the cap is below the step, got %d", catalog.calls)
	}
}

func TestFindNearbyFinalPassAtOddCap(t *testing.T) {
	// Donation at ~12km, cap 12km: the 5 and 10km passes miss, the final
	// pass must run at the cap itself rather than jumping to 15.
	catalog := &fakeCatalog{donations: []models.Donation{
		availableAt("twelve km out", 12.9716+0.105, 77.5946),
	}}

	got, err := FindNearbyForNGO(context.Background(), catalog, testCenter, 12, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the final pass at 12km to match, got %d results", len(got))
	}
	if catalog.calls != 3 {
		t.Fatalf("expected passes at 5, 10 and 12km, got %d passes", catalog.calls)
	}
}

func TestFindNearbyTruncatesToLimit(t *testing.T) {
	catalog := &fakeCatalog{donations: []models.Donation{
		availableAt("a", 12.9720, 77.5946),
		availableAt("b", 12.9730, 77.5946),
		availableAt("c", 12.9740, 77.5946),
	}}

	got, err := FindNearbyForNGO(context.Background(), catalog, testCenter, 20, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected result truncated to limit 2, got %d", len(got))
	}
	if got[0].Title != "a" || got[1].Title != "b" {
		t.Fatalf("expected the two nearest to survive truncation, got %q, %q", got[0].Title, got[1].Title)
	}
}

func TestFindNearbyPropagatesStoreError(t *testing.T) {
	storeErr := StoreError{Op: "findAvailable", Err: errors.New("connection reset")}
	catalog := &fakeCatalog{err: storeErr}

	_, err := FindNearbyForNGO(context.Background(), catalog, testCenter, 20, 50)
	var got StoreError
	if !errors.As(err, &got) {
		t.Fatalf("expected StoreError to propagate, got %v", err)
	}
}
