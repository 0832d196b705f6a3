package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/counterjob/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReceiptRepository flattens transactions/{email}/receipts/{id} into a
// single collection keyed by (email, receipt_id).
type MongoReceiptRepository struct {
	collection *mongo.Collection
}

func NewMongoReceiptRepository(db *mongo.Database) *MongoReceiptRepository {
	return &MongoReceiptRepository{collection: db.Collection("receipts")}
}

func (r *MongoReceiptRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}, {Key: "receipt_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email_receipt"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}, {Key: "datepurchased", Value: -1}},
			Options: options.Index().SetName("email_date_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("create receipts indexes: %w", err)
	}
	return nil
}

func (r *MongoReceiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	_, err := r.collection.InsertOne(ctx, receipt)
	return err
}

func (r *MongoReceiptRepository) Find(ctx context.Context, email, receiptID string) (*models.Receipt, error) {
	var receipt models.Receipt
	err := r.collection.FindOne(ctx, bson.M{"email": email, "receipt_id": receiptID}).Decode(&receipt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ListByEmail returns the user's receipts, newest first.
func (r *MongoReceiptRepository) ListByEmail(ctx context.Context, email string) ([]models.Receipt, error) {
	opts := options.Find().SetSort(bson.D{{Key: "datepurchased", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	receipts := []models.Receipt{}
	if err := cursor.All(ctx, &receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}

func (r *MongoReceiptRepository) Delete(ctx context.Context, email, receiptID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"email": email, "receipt_id": receiptID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
