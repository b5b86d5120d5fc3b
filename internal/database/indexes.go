package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("users").Indexes()

	userIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}},
			Options: options.Index().SetName("role_index"),
		},
	}

	log.Println("EnsureUserIndexes: creating user indexes")
	_, err := indexes.CreateMany(ctx, userIndexes)
	if err != nil {
		log.Println("EnsureUserIndexes: user index error:", err)
		return err
	}
	log.Println("EnsureUserIndexes: user indexes created")
	return nil
}

func EnsureDonationIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("donations").Indexes()

	donationIndexes := []mongo.IndexModel{
		{
			// Discovery fetches are status-filtered and newest-first.
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("status_createdAt_index"),
		},
		{
			Keys:    bson.D{{Key: "donorId", Value: 1}},
			Options: options.Index().SetName("donorId_index"),
		},
		{
			Keys:    bson.D{{Key: "claimedBy", Value: 1}},
			Options: options.Index().SetName("claimedBy_index"),
		},
		{
			Keys:    bson.D{{Key: "expiryTime", Value: 1}},
			Options: options.Index().SetName("expiryTime_index"),
		},
	}

	log.Println("EnsureDonationIndexes: creating donation indexes")
	_, err := indexes.CreateMany(ctx, donationIndexes)
	if err != nil {
		log.Println("EnsureDonationIndexes: donation index error:", err)
		return err
	}
	log.Println("EnsureDonationIndexes: donation indexes created")
	return nil
}

func EnsureRefreshTokenIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("refresh_tokens").Indexes()

	tokenIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "tokenHash", Value: 1}},
		Options: options.Index().SetName("tokenHash_index"),
	}

	log.Println("EnsureRefreshTokenIndexes: creating tokenHash index")
	_, err := indexes.CreateOne(ctx, tokenIndex)
	if err != nil {
		log.Println("EnsureRefreshTokenIndexes: tokenHash index error:", err)
		return err
	}
	log.Println("EnsureRefreshTokenIndexes: tokenHash index created")
	return nil
}
