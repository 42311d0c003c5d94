package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"treeservice/infrastructure/persistence/abstractions"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockClient) BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.BatchGetItemOutput)
	return out, args.Error(1)
}

func (m *mockClient) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}

func (m *mockClient) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockClient) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.TransactWriteItemsOutput)
	return out, args.Error(1)
}

func (m *mockClient) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}

func (m *mockClient) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DescribeTableOutput)
	return out, args.Error(1)
}

func (m *mockClient) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.CreateTableOutput)
	return out, args.Error(1)
}

func marshalItem(t *testing.T, pk, sk, data string) map[string]types.AttributeValue {
	av, err := attributevalue.MarshalMap(itemRecord{PK: pk, SK: sk, EntityType: "NODE", Data: []byte(data)})
	require.NoError(t, err)
	return av
}

func TestStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		client := new(mockClient)
		client.On("GetItem", ctx, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
			return *in.TableName == "trees" && *in.ConsistentRead
		})).Return(&dynamodb.GetItemOutput{Item: marshalItem(t, "NODE#a", "METADATA", "x")}, nil)

		s := NewStore(client, "trees", zap.NewNop())
		item, err := s.Get(ctx, abstractions.Key{PK: "NODE#a", SK: "METADATA"})
		require.NoError(t, err)
		assert.Equal(t, "NODE", item.EntityType)
		assert.Equal(t, []byte("x"), item.Data)
		client.AssertExpectations(t)
	})

	t.Run("missing", func(t *testing.T) {
		client := new(mockClient)
		client.On("GetItem", ctx, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

		s := NewStore(client, "trees", zap.NewNop())
		_, err := s.Get(ctx, abstractions.Key{PK: "NODE#a", SK: "METADATA"})
		assert.ErrorIs(t, err, abstractions.ErrNotFound)
	})
}

func TestStore_BatchGetRetriesUnprocessedKeys(t *testing.T) {
	ctx := context.Background()
	client := new(mockClient)

	unprocessed := map[string]types.KeysAndAttributes{
		"trees": {Keys: []map[string]types.AttributeValue{marshalItem(t, "NODE#b", "METADATA", "")}},
	}
	client.On("BatchGetItem", ctx, mock.MatchedBy(func(in *dynamodb.BatchGetItemInput) bool {
		return len(in.RequestItems["trees"].Keys) == 2
	})).Return(&dynamodb.BatchGetItemOutput{
		Responses:       map[string][]map[string]types.AttributeValue{"trees": {marshalItem(t, "NODE#a", "METADATA", "a")}},
		UnprocessedKeys: unprocessed,
	}, nil).Once()
	client.On("BatchGetItem", ctx, mock.MatchedBy(func(in *dynamodb.BatchGetItemInput) bool {
		return len(in.RequestItems["trees"].Keys) == 1
	})).Return(&dynamodb.BatchGetItemOutput{
		Responses: map[string][]map[string]types.AttributeValue{"trees": {marshalItem(t, "NODE#b", "METADATA", "b")}},
	}, nil).Once()

	s := NewStore(client, "trees", zap.NewNop())
	got, err := s.BatchGet(ctx, []abstractions.Key{
		{PK: "NODE#a", SK: "METADATA"},
		{PK: "NODE#b", SK: "METADATA"},
		{PK: "NODE#a", SK: "METADATA"},
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []byte("b"), got[abstractions.Key{PK: "NODE#b", SK: "METADATA"}].Data)
	client.AssertExpectations(t)
}

func TestStore_QueryPaginatesUntilLimit(t *testing.T) {
	ctx := context.Background()
	client := new(mockClient)

	client.On("Query", ctx, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey == nil && !*in.ScanIndexForward && *in.Limit == 2
	})).Return(&dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{marshalItem(t, "TREE#1", "HISTORY#3", "3")},
		LastEvaluatedKey: marshalItem(t, "TREE#1", "HISTORY#3", ""),
	}, nil).Once()
	client.On("Query", ctx, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey != nil && *in.Limit == 1
	})).Return(&dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{marshalItem(t, "TREE#1", "HISTORY#2", "2")},
		LastEvaluatedKey: marshalItem(t, "TREE#1", "HISTORY#2", ""),
	}, nil).Once()

	s := NewStore(client, "trees", zap.NewNop())
	items, err := s.Query(ctx, "TREE#1", "HISTORY#", abstractions.QueryOptions{Limit: 2, Descending: true})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "HISTORY#3", items[0].Key.SK)
	assert.Equal(t, "HISTORY#2", items[1].Key.SK)
	client.AssertExpectations(t)
}

func TestStore_PutBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("single item uses PutItem", func(t *testing.T) {
		client := new(mockClient)
		client.On("PutItem", ctx, mock.Anything).Return(&dynamodb.PutItemOutput{}, nil).Once()

		s := NewStore(client, "trees", zap.NewNop())
		require.NoError(t, s.PutBatch(ctx, []abstractions.Item{{Key: abstractions.Key{PK: "A", SK: "B"}}}))
		client.AssertExpectations(t)
	})

	t.Run("duplicate keys collapse into one transaction", func(t *testing.T) {
		client := new(mockClient)
		client.On("TransactWriteItems", ctx, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
			return len(in.TransactItems) == 2
		})).Return(&dynamodb.TransactWriteItemsOutput{}, nil).Once()

		s := NewStore(client, "trees", zap.NewNop())
		require.NoError(t, s.PutBatch(ctx, []abstractions.Item{
			{Key: abstractions.Key{PK: "A", SK: "1"}, Data: []byte("old")},
			{Key: abstractions.Key{PK: "A", SK: "2"}},
			{Key: abstractions.Key{PK: "A", SK: "1"}, Data: []byte("new")},
		}))
		client.AssertExpectations(t)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		client := new(mockClient)
		s := NewStore(client, "trees", zap.NewNop())
		require.NoError(t, s.PutBatch(ctx, nil))
		client.AssertNotCalled(t, "TransactWriteItems", mock.Anything, mock.Anything)
	})
}

func TestStore_PutIfVersion(t *testing.T) {
	ctx := context.Background()
	item := abstractions.Item{Key: abstractions.Key{PK: "PROJECT", SK: "P#1"}, EntityType: "PROJECT", Data: []byte("x")}

	t.Run("writes the next version under a condition", func(t *testing.T) {
		client := new(mockClient)
		client.On("PutItem", ctx, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
			var rec itemRecord
			if err := attributevalue.UnmarshalMap(in.Item, &rec); err != nil {
				return false
			}
			return rec.Version == 4 && in.ConditionExpression != nil && len(in.ExpressionAttributeValues) == 1
		})).Return(&dynamodb.PutItemOutput{}, nil).Once()

		s := NewStore(client, "trees", zap.NewNop())
		require.NoError(t, s.PutIfVersion(ctx, item, 3))
		client.AssertExpectations(t)
	})

	t.Run("failed condition is a conflict and keeps the breaker closed", func(t *testing.T) {
		client := new(mockClient)
		client.On("PutItem", ctx, mock.Anything).
			Return(nil, &types.ConditionalCheckFailedException{Message: aws.String("stale")})

		s := NewStore(client, "trees", zap.NewNop())
		for i := 0; i < 8; i++ {
			assert.ErrorIs(t, s.PutIfVersion(ctx, item, 0), abstractions.ErrConflict)
		}
		client.AssertNumberOfCalls(t, "PutItem", 8)
	})
}

func TestStore_CircuitBreakerOpens(t *testing.T) {
	ctx := context.Background()
	client := new(mockClient)
	client.On("GetItem", ctx, mock.Anything).Return(nil, errors.New("throttled"))

	s := NewStore(client, "trees", zap.NewNop())
	for i := 0; i < 5; i++ {
		_, err := s.Get(ctx, abstractions.Key{PK: "A", SK: "B"})
		require.Error(t, err)
	}

	_, err := s.Get(ctx, abstractions.Key{PK: "A", SK: "B"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dynamodb unavailable")
	client.AssertNumberOfCalls(t, "GetItem", 5)
}

func TestStore_EnsureTable(t *testing.T) {
	ctx := context.Background()
	client := new(mockClient)
	client.On("DescribeTable", ctx, mock.Anything).Return(nil, &types.ResourceNotFoundException{})
	client.On("CreateTable", ctx, mock.MatchedBy(func(in *dynamodb.CreateTableInput) bool {
		return *in.TableName == "trees" && len(in.KeySchema) == 2
	})).Return(&dynamodb.CreateTableOutput{}, nil)

	s := NewStore(client, "trees", zap.NewNop())
	require.NoError(t, s.EnsureTable(ctx))
	client.AssertExpectations(t)
}
