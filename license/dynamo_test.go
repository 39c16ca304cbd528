package license

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDDBClient is an in-memory DynamoDB mock that understands the
// expressions DynamoLedger issues.
type mockDDBClient struct {
	mu    sync.Mutex
	items map[string]int64
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{items: make(map[string]int64)}
}

func (m *mockDDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subject := params.Key["subject"].(*types.AttributeValueMemberS).Value
	n, ok := m.items[subject]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"subject":   &types.AttributeValueMemberS{Value: subject},
		"remaining": &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)},
	}}, nil
}

func (m *mockDDBClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subject := params.Key["subject"].(*types.AttributeValueMemberS).Value
	initial, _ := strconv.ParseInt(params.ExpressionAttributeValues[":init"].(*types.AttributeValueMemberN).Value, 10, 64)

	n, exists := m.items[subject]
	allowMissing := strings.HasPrefix(aws.ToString(params.ConditionExpression), "attribute_not_exists")
	switch {
	case exists && n > 0:
	case !exists && allowMissing:
		n = initial
	default:
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
	}

	m.items[subject] = n - 1
	return &dynamodb.UpdateItemOutput{}, nil
}

func TestDynamoLedger(t *testing.T) {
	ctx := context.Background()
	client := newMockDDBClient()
	ledger := NewDynamoLedger(client, "licenses")

	_, ok, err := ledger.Remaining(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.Consume(ctx, "acme", 2))
	n, ok, err := ledger.Remaining(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), n)

	require.NoError(t, ledger.Consume(ctx, "acme", 2))
	assert.ErrorIs(t, ledger.Consume(ctx, "acme", 2), ErrQuotaExceeded)
	assert.Equal(t, int64(0), client.items["acme"])

	// Unknown subject with an empty token allowance.
	assert.ErrorIs(t, ledger.Consume(ctx, "nobody", 0), ErrQuotaExceeded)
}

func TestDynamoLedger_WithAuthorizer(t *testing.T) {
	ctx := context.Background()
	ledger := NewDynamoLedger(newMockDDBClient(), "licenses")

	c := validClaims()
	c.RemainingConversions = Int64(1)
	a := newAuthorizer(t, c, ledger)

	g, err := a.Authorize(ctx, 1, "glb")
	require.NoError(t, err)
	require.NoError(t, a.Consume(ctx, g))

	_, err = a.Authorize(ctx, 1, "glb")
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}
