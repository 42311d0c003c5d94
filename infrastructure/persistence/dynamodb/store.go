// Package dynamodb stores items in a single DynamoDB table keyed by PK/SK.
//
// DynamoDB has no multi-request snapshot, so View runs its reads as
// strongly consistent requests against live data. A resolution pass may
// therefore observe a write that committed between two of its reads; each
// individual batch write is still atomic.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"treeservice/infrastructure/persistence/abstractions"
)

const (
	// maxBatchGet is the BatchGetItem key limit
	maxBatchGet = 100
	// maxTransactItems is the TransactWriteItems item limit
	maxTransactItems = 100
	// maxUnprocessedRetries bounds retries of throttled batch reads
	maxUnprocessedRetries = 5
)

// Client is the subset of the DynamoDB API the store uses
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// itemRecord is the DynamoDB item layout
type itemRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	Version    int64  `dynamodbav:"Version,omitempty"`
	Data       []byte `dynamodbav:"Data"`
}

type keyRecord struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

// Store implements abstractions.Store on DynamoDB. Every call goes through
// a circuit breaker so a failing table sheds load instead of piling up.
type Store struct {
	client    Client
	tableName string
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

var _ abstractions.Store = (*Store)(nil)

// NewStore creates a store over tableName
func NewStore(client Client, tableName string, logger *zap.Logger) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		breaker:   newBreaker("dynamodb:"+tableName, logger),
		logger:    logger,
	}
}

func newBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Cancellations and failed conditions say nothing about the table's health.
		IsSuccessful: func(err error) bool {
			var failed *types.ConditionalCheckFailedException
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
				errors.As(err, &failed)
		},
	})
}

func (s *Store) execute(fn func() (interface{}, error)) (interface{}, error) {
	out, err := s.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("dynamodb unavailable: %w", err)
	}
	return out, err
}

func (s *Store) key(k abstractions.Key) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(keyRecord{PK: k.PK, SK: k.SK})
}

func toItem(av map[string]types.AttributeValue) (abstractions.Item, error) {
	var rec itemRecord
	if err := attributevalue.UnmarshalMap(av, &rec); err != nil {
		return abstractions.Item{}, fmt.Errorf("unmarshal item: %w", err)
	}
	return abstractions.Item{
		Key:        abstractions.Key{PK: rec.PK, SK: rec.SK},
		EntityType: rec.EntityType,
		Version:    rec.Version,
		Data:       rec.Data,
	}, nil
}

// Get implements abstractions.Reader
func (s *Store) Get(ctx context.Context, key abstractions.Key) (abstractions.Item, error) {
	k, err := s.key(key)
	if err != nil {
		return abstractions.Item{}, err
	}
	out, err := s.execute(func() (interface{}, error) {
		return s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(s.tableName),
			Key:            k,
			ConsistentRead: aws.Bool(true),
		})
	})
	if err != nil {
		return abstractions.Item{}, err
	}
	res := out.(*dynamodb.GetItemOutput)
	if len(res.Item) == 0 {
		return abstractions.Item{}, abstractions.ErrNotFound
	}
	return toItem(res.Item)
}

// BatchGet implements abstractions.Reader. Keys are read in chunks and
// throttled keys are retried with backoff.
func (s *Store) BatchGet(ctx context.Context, keys []abstractions.Key) (map[abstractions.Key]abstractions.Item, error) {
	result := make(map[abstractions.Key]abstractions.Item, len(keys))
	seen := make(map[abstractions.Key]bool, len(keys))
	var unique []abstractions.Key
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			unique = append(unique, k)
		}
	}

	for start := 0; start < len(unique); start += maxBatchGet {
		end := start + maxBatchGet
		if end > len(unique) {
			end = len(unique)
		}

		requestKeys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, k := range unique[start:end] {
			av, err := s.key(k)
			if err != nil {
				return nil, err
			}
			requestKeys = append(requestKeys, av)
		}

		request := map[string]types.KeysAndAttributes{
			s.tableName: {Keys: requestKeys, ConsistentRead: aws.Bool(true)},
		}
		for attempt := 0; len(request) > 0; attempt++ {
			if attempt > maxUnprocessedRetries {
				return nil, errors.New("batch get: unprocessed keys remain after retries")
			}
			if attempt > 0 {
				if err := sleep(ctx, time.Duration(attempt*attempt)*50*time.Millisecond); err != nil {
					return nil, err
				}
			}

			reqItems := request
			out, err := s.execute(func() (interface{}, error) {
				return s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: reqItems})
			})
			if err != nil {
				return nil, err
			}
			res := out.(*dynamodb.BatchGetItemOutput)
			for _, av := range res.Responses[s.tableName] {
				item, err := toItem(av)
				if err != nil {
					return nil, err
				}
				result[item.Key] = item
			}
			request = res.UnprocessedKeys
		}
	}
	return result, nil
}

// Query implements abstractions.Reader
func (s *Store) Query(ctx context.Context, pk, skPrefix string, opts abstractions.QueryOptions) ([]abstractions.Item, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(pk))
	if skPrefix != "" {
		keyCond = keyCond.And(expression.Key("SK").BeginsWith(skPrefix))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build query expression: %w", err)
	}

	var (
		items    []abstractions.Item
		startKey map[string]types.AttributeValue
	)
	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ScanIndexForward:          aws.Bool(!opts.Descending),
			ConsistentRead:            aws.Bool(true),
			ExclusiveStartKey:         startKey,
		}
		if opts.Limit > 0 {
			input.Limit = aws.Int32(int32(opts.Limit - len(items)))
		}

		out, err := s.execute(func() (interface{}, error) {
			return s.client.Query(ctx, input)
		})
		if err != nil {
			return nil, err
		}
		res := out.(*dynamodb.QueryOutput)
		for _, av := range res.Items {
			item, err := toItem(av)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}

		if len(res.LastEvaluatedKey) == 0 || (opts.Limit > 0 && len(items) >= opts.Limit) {
			return items, nil
		}
		startKey = res.LastEvaluatedKey
	}
}

// Put implements abstractions.Store
func (s *Store) Put(ctx context.Context, item abstractions.Item) error {
	av, err := attributevalue.MarshalMap(itemRecord{
		PK:         item.Key.PK,
		SK:         item.Key.SK,
		EntityType: item.EntityType,
		Version:    item.Version,
		Data:       item.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = s.execute(func() (interface{}, error) {
		return s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.tableName),
			Item:      av,
		})
	})
	return err
}

// PutBatch writes items with TransactWriteItems. Batches larger than one
// transaction are split, and each chunk commits on its own.
func (s *Store) PutBatch(ctx context.Context, items []abstractions.Item) error {
	// A transaction may not touch the same key twice; the last write wins.
	last := make(map[abstractions.Key]int, len(items))
	for i, item := range items {
		last[item.Key] = i
	}
	var deduped []abstractions.Item
	for i, item := range items {
		if last[item.Key] == i {
			deduped = append(deduped, item)
		}
	}

	switch len(deduped) {
	case 0:
		return nil
	case 1:
		return s.Put(ctx, deduped[0])
	}

	for start := 0; start < len(deduped); start += maxTransactItems {
		end := start + maxTransactItems
		if end > len(deduped) {
			end = len(deduped)
		}

		writes := make([]types.TransactWriteItem, 0, end-start)
		for _, item := range deduped[start:end] {
			av, err := attributevalue.MarshalMap(itemRecord{
				PK:         item.Key.PK,
				SK:         item.Key.SK,
				EntityType: item.EntityType,
				Version:    item.Version,
				Data:       item.Data,
			})
			if err != nil {
				return fmt.Errorf("marshal item: %w", err)
			}
			writes = append(writes, types.TransactWriteItem{
				Put: &types.Put{TableName: aws.String(s.tableName), Item: av},
			})
		}

		if _, err := s.execute(func() (interface{}, error) {
			return s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
		}); err != nil {
			return err
		}
	}
	return nil
}

// PutIfVersion implements abstractions.Store with a conditional PutItem.
// Items written by Put carry no Version attribute and count as zero.
func (s *Store) PutIfVersion(ctx context.Context, item abstractions.Item, expected int64) error {
	av, err := attributevalue.MarshalMap(itemRecord{
		PK:         item.Key.PK,
		SK:         item.Key.SK,
		EntityType: item.EntityType,
		Version:    expected + 1,
		Data:       item.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	cond := expression.Name("Version").Equal(expression.Value(expected))
	if expected == 0 {
		cond = expression.AttributeNotExists(expression.Name("Version")).Or(cond)
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("build condition expression: %w", err)
	}

	_, err = s.execute(func() (interface{}, error) {
		return s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                 aws.String(s.tableName),
			Item:                      av,
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
	})
	var failed *types.ConditionalCheckFailedException
	if errors.As(err, &failed) {
		return abstractions.ErrConflict
	}
	return err
}

// Delete implements abstractions.Store
func (s *Store) Delete(ctx context.Context, key abstractions.Key) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	_, err = s.execute(func() (interface{}, error) {
		return s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key:       k,
		})
	})
	return err
}

// View runs fn with strongly consistent reads; see the package comment.
func (s *Store) View(ctx context.Context, fn func(abstractions.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s)
}

// Close implements abstractions.Store
func (s *Store) Close() error { return nil }

// EnsureTable creates the table when it does not exist. It is meant for
// local endpoints; production tables are provisioned out of band.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table %s: %w", s.tableName, err)
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.tableName),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", s.tableName, err)
	}
	s.logger.Info("Created DynamoDB table", zap.String("table", s.tableName))
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
