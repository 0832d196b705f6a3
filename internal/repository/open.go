package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awspkg "github.com/counterjob/backend/internal/aws"
)

// Store groups the repositories the service needs. Carts, receipts and users
// always live in MongoDB; the catalog can be moved to DynamoDB.
type Store struct {
	Mongo    *Mongo
	Products ProductRepository
	Carts    CartRepository
	Receipts ReceiptRepository
	Users    UserRepository
}

// StoreOptions selects the catalog backend.
type StoreOptions struct {
	Backend     string
	MongoURL    string
	MongoDB     string
	DynamoTable string
}

// OpenStore connects to MongoDB, picks the product backend and ensures the
// indexes exist.
func OpenStore(ctx context.Context, opts StoreOptions) (*Store, error) {
	m, err := ConnectMongo(ctx, opts.MongoURL, opts.MongoDB)
	if err != nil {
		return nil, err
	}
	if err := m.EnsureIndexes(ctx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	s := &Store{
		Mongo:    m,
		Carts:    NewMongoCartRepository(m.DB),
		Receipts: NewMongoReceiptRepository(m.DB),
		Users:    NewMongoUserRepository(m.DB),
	}

	switch opts.Backend {
	case "", "mongo":
		s.Products = NewMongoProductRepository(m.DB)
	case "dynamodb":
		awsCfg, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("dynamodb backend needs AWS config: %w", err)
		}
		s.Products = NewDynamoProductRepository(dynamodb.NewFromConfig(awsCfg), opts.DynamoTable)
	default:
		_ = m.Close()
		return nil, fmt.Errorf("unsupported store backend %q", opts.Backend)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.Mongo.Close()
}
