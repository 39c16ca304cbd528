package license

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the subset of the DynamoDB API used by DynamoLedger.
type DDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoLedger stores conversion counts in DynamoDB so that several
// converter processes share one quota. Decrements are conditional writes,
// so a count never drops below zero.
//
// Table schema:
//   - Partition key: subject (string)
//   - Attribute: remaining (number)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name splatgo-licenses \
//	  --attribute-definitions AttributeName=subject,AttributeType=S \
//	  --key-schema AttributeName=subject,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type DynamoLedger struct {
	client    DDBClient
	tableName string
}

// NewDynamoLedger creates a ledger backed by tableName.
func NewDynamoLedger(client DDBClient, tableName string) *DynamoLedger {
	return &DynamoLedger{client: client, tableName: tableName}
}

func (l *DynamoLedger) key(subject string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"subject": &types.AttributeValueMemberS{Value: subject},
	}
}

// Remaining implements Ledger.
func (l *DynamoLedger) Remaining(ctx context.Context, subject string) (int64, bool, error) {
	resp, err := l.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(l.tableName),
		Key:            l.key(subject),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, false, fmt.Errorf("license: get quota: %w", err)
	}
	if resp.Item == nil {
		return 0, false, nil
	}

	attr, ok := resp.Item["remaining"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, false, errors.New("license: invalid remaining attribute in DynamoDB")
	}
	n, err := strconv.ParseInt(attr.Value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("license: parse remaining: %w", err)
	}
	return n, true, nil
}

// Consume implements Ledger.
func (l *DynamoLedger) Consume(ctx context.Context, subject string, initial int64) error {
	condition := "remaining > :zero"
	if initial > 0 {
		condition = "attribute_not_exists(remaining) OR remaining > :zero"
	}

	_, err := l.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(l.tableName),
		Key:                 l.key(subject),
		UpdateExpression:    aws.String("SET remaining = if_not_exists(remaining, :init) - :one"),
		ConditionExpression: aws.String(condition),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":init": &types.AttributeValueMemberN{Value: strconv.FormatInt(initial, 10)},
			":one":  &types.AttributeValueMemberN{Value: "1"},
			":zero": &types.AttributeValueMemberN{Value: "0"},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrQuotaExceeded
		}
		return fmt.Errorf("license: consume quota: %w", err)
	}
	return nil
}
