package services

import (
	"context"
	"errors"
	"fmt"

	"bookreview_server/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of *dynamodb.Client the service uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type DynamoService struct {
	Client DynamoAPI
}

// errItemNotFound is returned by GetItem when the key has no item.
var errItemNotFound = errors.New("item not found")

// InitializeDynamoDBClient builds a DynamoDB client for region. A non-empty
// endpoint points the client at DynamoDB Local or LocalStack.
func InitializeDynamoDBClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// PutItem marshals item and writes it. A non-empty condition makes the write
// conditional.
func (ds *DynamoService) PutItem(ctx context.Context, tableName string, item interface{}, condition string) error {
	marshaledItem, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: &tableName,
		Item:      marshaledItem,
	}
	if condition != "" {
		input.ConditionExpression = aws.String(condition)
	}

	logging.Debug().Str("table", tableName).Msg("dynamodb put item")
	if _, err := ds.Client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put item in table '%s': %w", tableName, err)
	}
	return nil
}

// GetItem retrieves an item with a strongly consistent read and unmarshals it
// into out. Missing items yield errItemNotFound.
func (ds *DynamoService) GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue, out interface{}) error {
	output, err := ds.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &tableName,
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to get item from table '%s': %w", tableName, err)
	}
	if output.Item == nil {
		return errItemNotFound
	}
	if err := attributevalue.UnmarshalMap(output.Item, out); err != nil {
		return fmt.Errorf("failed to unmarshal item from table '%s': %w", tableName, err)
	}
	return nil
}

// UpdateInput describes one conditional UpdateItem call.
type UpdateInput struct {
	Key              map[string]types.AttributeValue
	UpdateExpression string
	Condition        string
	Names            map[string]string
	Values           map[string]types.AttributeValue
}

// UpdateItem applies an update expression and returns the new item
// attributes (ReturnValues ALL_NEW).
func (ds *DynamoService) UpdateItem(ctx context.Context, tableName string, in UpdateInput) (map[string]types.AttributeValue, error) {
	if len(in.Key) == 0 {
		return nil, errors.New("update failed: key cannot be empty")
	}
	if in.UpdateExpression == "" {
		return nil, errors.New("update failed: updateExpression cannot be empty")
	}

	updateInput := &dynamodb.UpdateItemInput{
		TableName:        &tableName,
		Key:              in.Key,
		UpdateExpression: aws.String(in.UpdateExpression),
		ReturnValues:     types.ReturnValueAllNew,
	}
	if in.Condition != "" {
		updateInput.ConditionExpression = aws.String(in.Condition)
	}
	if len(in.Names) > 0 {
		updateInput.ExpressionAttributeNames = in.Names
	}
	if len(in.Values) > 0 {
		updateInput.ExpressionAttributeValues = in.Values
	}

	logging.Debug().
		Str("table", tableName).
		Str("update", in.UpdateExpression).
		Str("condition", in.Condition).
		Msg("dynamodb update item")

	output, err := ds.Client.UpdateItem(ctx, updateInput)
	if err != nil {
		return nil, fmt.Errorf("failed to update item in table '%s': %w", tableName, err)
	}
	if output.Attributes == nil {
		return map[string]types.AttributeValue{}, nil
	}
	return output.Attributes, nil
}

// DeleteItem removes an item, optionally guarded by condition.
func (ds *DynamoService) DeleteItem(ctx context.Context, tableName string, key map[string]types.AttributeValue, condition string, values map[string]types.AttributeValue) error {
	input := &dynamodb.DeleteItemInput{
		TableName: &tableName,
		Key:       key,
	}
	if condition != "" {
		input.ConditionExpression = aws.String(condition)
	}
	if len(values) > 0 {
		input.ExpressionAttributeValues = values
	}
	if _, err := ds.Client.DeleteItem(ctx, input); err != nil {
		return fmt.Errorf("failed to delete item from table '%s': %w", tableName, err)
	}
	return nil
}

// QueryAllWithIndex queries a GSI and follows LastEvaluatedKey until the
// result set is exhausted. Items come back in ascending sort-key order.
func (ds *DynamoService) QueryAllWithIndex(
	ctx context.Context,
	tableName string,
	indexName string,
	keyConditionExpression string,
	expressionAttributeValues map[string]types.AttributeValue,
	expressionAttributeNames map[string]string,
) ([]map[string]types.AttributeValue, error) {
	var (
		items    []map[string]types.AttributeValue
		startKey map[string]types.AttributeValue
	)
	for {
		input := &dynamodb.QueryInput{
			TableName:                 &tableName,
			IndexName:                 &indexName,
			KeyConditionExpression:    &keyConditionExpression,
			ExpressionAttributeValues: expressionAttributeValues,
			ScanIndexForward:          aws.Bool(true),
			ExclusiveStartKey:         startKey,
		}
		if len(expressionAttributeNames) > 0 {
			input.ExpressionAttributeNames = expressionAttributeNames
		}
		output, err := ds.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query GSI '%s': %w", indexName, err)
		}
		items = append(items, output.Items...)
		if len(output.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = output.LastEvaluatedKey
	}
}

// BatchWriteItems writes requests in chunks of 25, the DynamoDB batch limit.
func (ds *DynamoService) BatchWriteItems(ctx context.Context, tableName string, writeRequests []types.WriteRequest) error {
	const maxBatchSize = 25

	for i := 0; i < len(writeRequests); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(writeRequests) {
			end = len(writeRequests)
		}
		pending := map[string][]types.WriteRequest{tableName: writeRequests[i:end]}
		// Unprocessed items are resubmitted until DynamoDB accepts them or
		// the context ends.
		for len(pending) > 0 {
			out, err := ds.Client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return fmt.Errorf("failed to batch write items to table '%s': %w", tableName, err)
			}
			pending = out.UnprocessedItems
			if err := ctx.Err(); err != nil && len(pending) > 0 {
				return err
			}
		}
	}
	return nil
}

// TransactWrite executes items as one all-or-nothing transaction.
func (ds *DynamoService) TransactWrite(ctx context.Context, items []types.TransactWriteItem) error {
	if _, err := ds.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return fmt.Errorf("failed to execute transaction: %w", err)
	}
	return nil
}

// isConditionFailed reports whether err is a failed ConditionExpression.
func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// stringKey builds a single-attribute string key.
func stringKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{name: &types.AttributeValueMemberS{Value: value}}
}
