package metastore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"

	"github.com/spachava753/imagecrawl/internal/models"
)

// PutItemAPI is the subset of the DynamoDB client used by DynamoDBStore.
type PutItemAPI interface {
	PutItemWithContext(ctx aws.Context, input *dynamodb.PutItemInput, opts ...request.Option) (*dynamodb.PutItemOutput, error)
}

type DynamoDBStore struct {
	Client PutItemAPI
}

// NewDynamoDBStore creates a DynamoDBStore. An empty region or endpoint falls
// back to the AWS session defaults.
func NewDynamoDBStore(region, endpoint string) (*DynamoDBStore, error) {
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	if endpoint != "" {
		cfg = cfg.WithEndpoint(endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}
	return &DynamoDBStore{Client: dynamodb.New(sess)}, nil
}

// Upsert implements Upserter with an unconditional PutItem.
func (s *DynamoDBStore) Upsert(ctx context.Context, rec models.Record) error {
	if _, err := s.Client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(rec.Table),
		Item:      recordToAttributes(rec),
	}); err != nil {
		return fmt.Errorf("upserting %s/%s into `%s`: %w", rec.PartitionKey, rec.RowKey, rec.Table, err)
	}
	return nil
}

func recordToAttributes(rec models.Record) map[string]*dynamodb.AttributeValue {
	attrs := map[string]*dynamodb.AttributeValue{
		PartitionKeyAttr: {S: aws.String(rec.PartitionKey)},
		RowKeyAttr:       {S: aws.String(rec.RowKey)},
	}
	for name, v := range rec.Fields {
		attrs[name] = toAttribute(v)
	}
	return attrs
}

func toAttribute(v any) *dynamodb.AttributeValue {
	switch v := v.(type) {
	case string:
		return &dynamodb.AttributeValue{S: aws.String(v)}
	case []string:
		list := make([]*dynamodb.AttributeValue, len(v))
		for i, s := range v {
			list[i] = &dynamodb.AttributeValue{S: aws.String(s)}
		}
		return &dynamodb.AttributeValue{L: list}
	default:
		return &dynamodb.AttributeValue{S: aws.String(fmt.Sprint(v))}
	}
}
