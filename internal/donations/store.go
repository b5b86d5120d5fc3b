package donations

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"zerowaste/internal/models"
)

// Collection is the MongoDB collection holding donation documents.
const Collection = "donations"

// Store is the Mongo-backed donation collection. Status transitions go
// through conditional writes that carry the expected current state in the
// filter, so a stale read can never silently overwrite a concurrent claim.
type Store struct {
	db *mongo.Database
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) collection() *mongo.Collection {
	return s.db.Collection(Collection)
}

// Insert persists a new donation and returns it with its assigned id.
func (s *Store) Insert(ctx context.Context, donation models.Donation) (models.Donation, error) {
	res, err := s.collection().InsertOne(ctx, donation)
	if err != nil {
		return models.Donation{}, StoreError{Op: "insert", Err: err}
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		donation.ID = id
	}
	return donation, nil
}

// FindAvailable returns available, non-expired donations, newest first.
// limit <= 0 means no cap.
func (s *Store) FindAvailable(ctx context.Context, limit int64) ([]models.Donation, error) {
	filter := bson.M{
		"status":     models.StatusAvailable,
		"expiryTime": bson.M{"$gt": time.Now()},
	}
	return s.find(ctx, "findAvailable", filter, limit)
}

// FindByStatus returns donations in the given status, newest first.
func (s *Store) FindByStatus(ctx context.Context, status models.Status, limit int64) ([]models.Donation, error) {
	return s.find(ctx, "findByStatus", bson.M{"status": status}, limit)
}

// FindByDonor returns the donor's donations, newest first.
func (s *Store) FindByDonor(ctx context.Context, donorID primitive.ObjectID, limit int64) ([]models.Donation, error) {
	return s.find(ctx, "findByDonor", bson.M{"donorId": donorID}, limit)
}

// FindByClaimedBy returns the donations claimed by the given user, newest first.
func (s *Store) FindByClaimedBy(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Donation, error) {
	return s.find(ctx, "findByClaimedBy", bson.M{"claimedBy": userID}, limit)
}

// FindAll returns donations regardless of status, newest first. Used by the
// public stats endpoint.
func (s *Store) FindAll(ctx context.Context, limit int64) ([]models.Donation, error) {
	return s.find(ctx, "findAll", bson.M{}, limit)
}

func (s *Store) find(ctx context.Context, op string, filter bson.M, limit int64) ([]models.Donation, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}

	cursor, err := s.collection().Find(ctx, filter, findOptions)
	if err != nil {
		return nil, StoreError{Op: op, Err: err}
	}
	defer cursor.Close(ctx)

	donations := []models.Donation{}
	if err := cursor.All(ctx, &donations); err != nil {
		return nil, StoreError{Op: op, Err: err}
	}

	now := time.Now()
	for i := range donations {
		donations[i].IsExpired = donations[i].ExpiredAt(now)
	}
	return donations, nil
}

// FindByID returns a single donation or NotFoundError.
func (s *Store) FindByID(ctx context.Context, id primitive.ObjectID) (models.Donation, error) {
	var donation models.Donation
	err := s.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&donation)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Donation{}, NotFoundError{Resource: "donation", ID: id.Hex()}
	}
	if err != nil {
		return models.Donation{}, StoreError{Op: "findById", Err: err}
	}
	donation.IsExpired = donation.ExpiredAt(time.Now())
	return donation, nil
}

// ApplyClaim atomically moves an available, non-expired donation to claimed.
// The current status sits in the update filter, so at most one concurrent
// claim can match; losers get a StateConflictError describing what they lost
// to, never a silent overwrite.
func (s *Store) ApplyClaim(ctx context.Context, id, claimedBy primitive.ObjectID, claimedByName string) (models.Donation, error) {
	now := time.Now()
	filter := bson.M{
		"_id":        id,
		"status":     models.StatusAvailable,
		"expiryTime": bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{
		"status":        models.StatusClaimed,
		"claimedBy":     claimedBy,
		"claimedByName": claimedByName,
		"updatedAt":     now,
	}}

	updated, err := s.findOneAndUpdate(ctx, "claim", filter, update)
	if err == nil {
		return updated, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Donation{}, s.explainClaimMiss(ctx, id)
	}
	return models.Donation{}, err
}

func (s *Store) explainClaimMiss(ctx context.Context, id primitive.ObjectID) error {
	donation, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case donation.Status == models.StatusClaimed || donation.Status == models.StatusPicked:
		return StateConflictError{
			Code:    CodeAlreadyClaimed,
			Reason:  "donation has already been claimed",
			Current: donation.Status,
		}
	case donation.IsExpired || donation.Status == models.StatusExpired:
		return StateConflictError{
			Code:    CodeExpired,
			Reason:  "donation has expired",
			Current: donation.Status,
		}
	default:
		return StateConflictError{
			Reason:  "donation is not available for claiming",
			Current: donation.Status,
		}
	}
}

// ApplyPickup atomically moves a claimed donation to picked, but only when the
// requester is the claimant recorded on the document.
func (s *Store) ApplyPickup(ctx context.Context, id, requesterID primitive.ObjectID) (models.Donation, error) {
	now := time.Now()
	filter := bson.M{
		"_id":       id,
		"status":    models.StatusClaimed,
		"claimedBy": requesterID,
	}
	update := bson.M{"$set": bson.M{
		"status":     models.StatusPicked,
		"pickedUpAt": now,
		"updatedAt":  now,
	}}

	updated, err := s.findOneAndUpdate(ctx, "pickup", filter, update)
	if err == nil {
		return updated, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Donation{}, s.explainPickupMiss(ctx, id, requesterID)
	}
	return models.Donation{}, err
}

func (s *Store) explainPickupMiss(ctx context.Context, id, requesterID primitive.ObjectID) error {
	donation, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if donation.Status != models.StatusClaimed {
		return StateConflictError{
			Reason:  "donation is not in claimed status",
			Current: donation.Status,
		}
	}
	if donation.ClaimedBy == nil || *donation.ClaimedBy != requesterID {
		return AuthorizationError{Reason: "only the claiming NGO can confirm pickup"}
	}
	return StateConflictError{
		Reason:  "donation pickup could not be recorded",
		Current: donation.Status,
	}
}

// DeleteOwned removes a donation, but only for its donor and only while it is
// still available (or has been left to expire).
func (s *Store) DeleteOwned(ctx context.Context, id, donorID primitive.ObjectID) error {
	filter := bson.M{
		"_id":     id,
		"donorId": donorID,
		"status":  bson.M{"$in": []models.Status{models.StatusAvailable, models.StatusExpired}},
	}
	res, err := s.collection().DeleteOne(ctx, filter)
	if err != nil {
		return StoreError{Op: "delete", Err: err}
	}
	if res.DeletedCount == 0 {
		return s.explainDeleteMiss(ctx, id, donorID)
	}
	return nil
}

func (s *Store) explainDeleteMiss(ctx context.Context, id, donorID primitive.ObjectID) error {
	donation, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if donation.DonorID != donorID {
		return AuthorizationError{Reason: "only the donor can delete this donation"}
	}
	return StateConflictError{
		Reason:  "claimed or picked donations cannot be deleted",
		Current: donation.Status,
	}
}

// ApplyUpdate writes the given descriptive fields and returns the updated
// donation. Status fields never pass through here; the lifecycle builds the
// set document from a whitelist.
func (s *Store) ApplyUpdate(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Donation, error) {
	updated, err := s.findOneAndUpdate(ctx, "update", bson.M{"_id": id}, bson.M{"$set": set})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Donation{}, NotFoundError{Resource: "donation", ID: id.Hex()}
	}
	return updated, err
}

// DeleteByDonor removes all donations owned by the donor. Used by account
// deletion.
func (s *Store) DeleteByDonor(ctx context.Context, donorID primitive.ObjectID) (int64, error) {
	res, err := s.collection().DeleteMany(ctx, bson.M{"donorId": donorID})
	if err != nil {
		return 0, StoreError{Op: "deleteByDonor", Err: err}
	}
	return res.DeletedCount, nil
}

func (s *Store) findOneAndUpdate(ctx context.Context, op string, filter, update bson.M) (models.Donation, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Donation
	err := s.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Donation{}, err
	}
	if err != nil {
		return models.Donation{}, StoreError{Op: op, Err: err}
	}
	updated.IsExpired = updated.ExpiredAt(time.Now())
	return updated, nil
}
