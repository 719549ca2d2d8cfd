package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/guregu/dynamo"
)

type dynamoItem struct {
	Key       string `dynamo:"key,hash"`
	Value     string `dynamo:"value"`
	UpdatedAt int64  `dynamo:"updated_at"`
}

// DynamoStore keeps keys in a DynamoDB table with hash key "key".
type DynamoStore struct {
	table dynamo.Table
}

func NewDynamoStore(region, table string) (*DynamoStore, error) {
	return NewDynamoStoreWithConfig(&aws.Config{Region: aws.String(region)}, table)
}

// NewDynamoStoreWithConfig allows a custom endpoint, e.g. DynamoDB Local.
func NewDynamoStoreWithConfig(cfg *aws.Config, table string) (*DynamoStore, error) {
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	db := dynamo.NewFromIface(dynamodb.New(sess))
	return &DynamoStore{table: db.Table(table)}, nil
}

func (s *DynamoStore) Get(ctx context.Context, key string) (string, bool, error) {
	var item dynamoItem
	err := s.table.Get("key", key).OneWithContext(ctx, &item)
	if err != nil {
		if errors.Is(err, dynamo.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return item.Value, true, nil
}

func (s *DynamoStore) Set(ctx context.Context, key, value string) error {
	item := dynamoItem{Key: key, Value: value, UpdatedAt: time.Now().Unix()}
	return s.table.Put(item).RunWithContext(ctx)
}

func (s *DynamoStore) Delete(ctx context.Context, key string) error {
	return s.table.Delete("key", key).RunWithContext(ctx)
}
