package repository

import (
	"context"
	"errors"
	"time"

	"github.com/counterjob/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoUserRepository struct {
	collection *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *MongoUserRepository) Upsert(ctx context.Context, user *models.User) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.Email}, user, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoUserRepository) SetLoggedIn(ctx context.Context, email string, loggedIn bool) error {
	set := bson.M{"logged_in": loggedIn}
	if loggedIn {
		set["logged_in_at"] = time.Now().UTC()
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": email}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Rekey inserts the profile under its new email before removing the old
// document, so a failure never leaves the user without a profile.
func (r *MongoUserRepository) Rekey(ctx context.Context, oldEmail string, user *models.User) error {
	if oldEmail == user.Email {
		return r.Upsert(ctx, user)
	}
	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": oldEmail})
	return err
}
