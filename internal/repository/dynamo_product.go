package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/counterjob/backend/internal/models"
	"github.com/google/uuid"
)

type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoProductRepository stores products in a table whose partition key is
// `barcode` (string).
type DynamoProductRepository struct {
	client dynamoAPI
	table  string
}

func NewDynamoProductRepository(client *dynamodb.Client, table string) *DynamoProductRepository {
	return &DynamoProductRepository{client: client, table: table}
}

type ddbProduct struct {
	Barcode     string  `dynamodbav:"barcode"`
	ProductID   string  `dynamodbav:"product_id"`
	Name        string  `dynamodbav:"name"`
	Brand       *string `dynamodbav:"brand,omitempty"`
	Category    string  `dynamodbav:"category"`
	Description string  `dynamodbav:"description"`
	Price       float64 `dynamodbav:"price"`
	Stock       int     `dynamodbav:"stock"`
	CreatedAt   string  `dynamodbav:"created_at"`
	UpdatedAt   string  `dynamodbav:"updated_at"`
}

func toDDBProduct(p *models.Product) ddbProduct {
	dp := ddbProduct{
		Barcode:     p.Barcode,
		ProductID:   p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p.Brand != "" {
		brand := p.Brand
		dp.Brand = &brand
	}
	return dp
}

func (dp ddbProduct) toModel() models.Product {
	p := models.Product{
		ID:          dp.ProductID,
		Barcode:     dp.Barcode,
		Name:        dp.Name,
		Category:    dp.Category,
		Description: dp.Description,
		Price:       dp.Price,
		Stock:       dp.Stock,
	}
	if dp.Brand != nil {
		p.Brand = *dp.Brand
	}
	if t, err := time.Parse(time.RFC3339, dp.CreatedAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, dp.UpdatedAt); err == nil {
		p.UpdatedAt = t
	}
	return p
}

func barcodeKey(barcode string) (map[string]types.AttributeValue, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"barcode": barcode})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	return key, nil
}

// EnsureIndexes is a no-op; the table and its key schema are provisioned
// outside the service.
func (r *DynamoProductRepository) EnsureIndexes(ctx context.Context) error {
	return nil
}

// List scans the whole table. Results are ordered by name to match the Mongo
// adapter.
func (r *DynamoProductRepository) List(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: &r.table})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan page failed: %w", err)
		}
		for _, it := range page.Items {
			var dp ddbProduct
			if err := attributevalue.UnmarshalMap(it, &dp); err != nil {
				return nil, fmt.Errorf("unmarshal item: %w", err)
			}
			products = append(products, dp.toModel())
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (r *DynamoProductRepository) FindByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	key, err := barcodeKey(barcode)
	if err != nil {
		return nil, err
	}
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: &r.table, Key: key})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var dp ddbProduct
	if err := attributevalue.UnmarshalMap(out.Item, &dp); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	p := dp.toModel()
	return &p, nil
}

func (r *DynamoProductRepository) Create(ctx context.Context, product *models.Product) error {
	now := time.Now().UTC()
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	// copies from another store keep their timestamps
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = product.CreatedAt
	}

	item, err := attributevalue.MarshalMap(toDDBProduct(product))
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	cond := "attribute_not_exists(barcode)"
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.table,
		Item:                item,
		ConditionExpression: &cond,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrDuplicateBarcode
		}
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

func (r *DynamoProductRepository) SetStock(ctx context.Context, barcode string, stock int) error {
	return r.updateStock(ctx, barcode,
		"SET #stock = :qty, updated_at = :now",
		"attribute_exists(barcode)",
		stock, ErrNotFound)
}

// DecrementStock relies on a conditional update so concurrent checkouts
// cannot drive stock negative.
func (r *DynamoProductRepository) DecrementStock(ctx context.Context, barcode string, qty int) error {
	if _, err := r.FindByBarcode(ctx, barcode); err != nil {
		return err
	}
	return r.updateStock(ctx, barcode,
		"SET #stock = #stock - :qty, updated_at = :now",
		"attribute_exists(barcode) AND #stock >= :qty",
		qty, ErrInsufficientStock)
}

func (r *DynamoProductRepository) IncrementStock(ctx context.Context, barcode string, qty int) error {
	return r.updateStock(ctx, barcode,
		"SET #stock = #stock + :qty, updated_at = :now",
		"attribute_exists(barcode)",
		qty, ErrNotFound)
}

func (r *DynamoProductRepository) updateStock(ctx context.Context, barcode, expr, condExpr string, qty int, condErr error) error {
	key, err := barcodeKey(barcode)
	if err != nil {
		return err
	}

	qtyAV, _ := attributevalue.Marshal(qty)
	nowAV, _ := attributevalue.Marshal(time.Now().UTC().Format(time.RFC3339))

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.table,
		Key:                 key,
		UpdateExpression:    &expr,
		ConditionExpression: &condExpr,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty": qtyAV,
			":now": nowAV,
		},
		ExpressionAttributeNames: map[string]string{
			"#stock": "stock",
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return condErr
		}
		return fmt.Errorf("update stock failed: %w", err)
	}
	return nil
}
