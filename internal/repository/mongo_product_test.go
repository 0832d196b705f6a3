package repository

import (
	"context"
	"testing"
	"time"

	"github.com/counterjob/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMockMongo(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func updated(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"})
}

func productDoc(barcode string, stock int) bson.D {
	return bson.D{
		{Key: "_id", Value: "p-" + barcode},
		{Key: "barcode", Value: barcode},
		{Key: "name", Value: "Milk"},
		{Key: "price", Value: 2.5},
		{Key: "stock", Value: stock},
	}
}

func TestMongoDecrementStock(t *testing.T) {
	mt := newMockMongo(t)
	ctx := context.Background()

	mt.Run("conditional decrement", func(mt *mtest.T) {
		repo := &MongoProductRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(1))

		require.NoError(mt, repo.DecrementStock(ctx, "123", 3))

		cmd := mt.GetStartedEvent().Command
		update := cmd.Lookup("updates").Array().Index(0).Value().Document()
		assert.Equal(mt, "123", update.Lookup("q", "barcode").StringValue())
		assert.EqualValues(mt, 3, update.Lookup("q", "stock", "$gte").AsInt64())
		assert.EqualValues(mt, -3, update.Lookup("u", "$inc", "stock").AsInt64())
	})

	mt.Run("insufficient stock", func(mt *mtest.T) {
		repo := &MongoProductRepository{collection: mt.Coll}
		mt.AddMockResponses(
			updated(0),
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, productDoc("123", 1)),
		)

		assert.ErrorIs(mt, repo.DecrementStock(ctx, "123", 5), ErrInsufficientStock)
	})

	mt.Run("unknown barcode", func(mt *mtest.T) {
		repo := &MongoProductRepository{collection: mt.Coll}
		mt.AddMockResponses(
			updated(0),
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch),
		)

		assert.ErrorIs(mt, repo.DecrementStock(ctx, "nope", 1), ErrNotFound)
	})
}

func TestMongoStockUpdatesMissingProduct(t *testing.T) {
	mt := newMockMongo(t)
	ctx := context.Background()

	mt.Run("set", func(mt *mtest.T) {
		repo := &MongoProductRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(0))
		assert.ErrorIs(mt, repo.SetStock(ctx, "nope", 4), ErrNotFound)
	})

	mt.Run("increment", func(mt *mtest.T) {
		repo := &MongoProductRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(0))
		assert.ErrorIs(mt, repo.IncrementStock(ctx, "nope", 4), ErrNotFound)
	})
}

func TestMongoFindByBarcode(t *testing.T) {
	mt := newMockMongo(t)
	ctx := context.Background()

	mt.Run("found", func(mt *mtest.T) {
		repo := &MongoProductRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, productDoc("123", 7)))

		p, err := repo.FindByBarcode(ctx, "123")
		require.NoError(mt, err)
		assert.Equal(mt, "Milk", p.Name)
		assert.Equal(mt, 7, p.Stock)
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := &MongoProductRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := repo.FindByBarcode(ctx, "nope")
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestMongoCreateProduct(t *testing.T) {
	mt := newMockMongo(t)
	ctx := context.Background()

	mt.Run("duplicate barcode", func(mt *mtest.T) {
		repo := &MongoProductRepository{collection: mt.Coll}
		mt.AddMockResponses(duplicateKey())

		assert.ErrorIs(mt, repo.Create(ctx, &models.Product{Barcode: "123"}), ErrDuplicateBarcode)
	})

	mt.Run("keeps existing timestamps", func(mt *mtest.T) {
		repo := &MongoProductRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		created := time.Date(2023, 3, 1, 9, 0, 0, 0, time.UTC)
		p := &models.Product{Barcode: "123", CreatedAt: created}
		require.NoError(mt, repo.Create(ctx, p))

		assert.NotEmpty(mt, p.ID)
		assert.Equal(mt, created, p.CreatedAt)
		assert.Equal(mt, created, p.UpdatedAt)
	})
}

func TestMongoListProductsSortsByName(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("list", func(mt *mtest.T) {
		repo := &MongoProductRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			productDoc("1", 1), productDoc("2", 2)))

		products, err := repo.List(context.Background())
		require.NoError(mt, err)
		assert.Len(mt, products, 2)

		sort := mt.GetStartedEvent().Command.Lookup("sort")
		assert.EqualValues(mt, 1, sort.Document().Lookup("name").AsInt64())
	})
}
