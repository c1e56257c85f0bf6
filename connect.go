/*
Package dyno – store client.

Connect executes assembled inputs against DynamoDB (or anything satisfying
DynamoClient) and folds the raw outputs into Response envelopes, decoding
items through a Reader.
*/
package dyno

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoClient is the SDK surface Connect depends on; *dynamodb.Client
// satisfies it and tests substitute fakes.
type DynamoClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	UpdateTable(ctx context.Context, params *dynamodb.UpdateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Connect wraps a store client.
type Connect struct {
	client DynamoClient
}

// NewConnect builds a client from the default credential chain.
func NewConnect(ctx context.Context, region string) (*Connect, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, NewError("aws configuration failed", WithCode(ErrRuntime), WithCause(err))
	}
	return &Connect{client: dynamodb.NewFromConfig(cfg)}, nil
}

// NewConnectWithCredentials builds a client from static credentials and an
// optional endpoint override (local store instances).
func NewConnectWithCredentials(ctx context.Context, accessKey, secretKey, region, endpoint string) (*Connect, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, NewError("aws configuration failed", WithCode(ErrRuntime), WithCause(err))
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &Connect{client: client}, nil
}

// NewConnectWithClient wraps an existing client.
func NewConnectWithClient(c DynamoClient) *Connect {
	return &Connect{client: c}
}

// ─── response envelope ───────────────────────────────────────────────────────

// Response is the outcome of one store call.
type Response struct {
	OK               bool
	Errors           []string
	Data             any
	Count            int32
	Scanned          int32
	LastEvaluatedKey map[string]types.AttributeValue
	ConsumedUnits    float64
}

func newResponse() *Response { return &Response{OK: true} }

func (r *Response) fail(err error) *Response {
	r.OK = false
	r.Errors = append(r.Errors, err.Error())
	logError("store call failed", map[string]any{"error": err.Error()})
	return r
}

func (r *Response) consume(cc *types.ConsumedCapacity) {
	if cc != nil && cc.CapacityUnits != nil {
		r.ConsumedUnits += *cc.CapacityUnits
	}
}

// ─── item operations ─────────────────────────────────────────────────────────

// PutItem writes a full record, replacing any existing row with its key.
func (c *Connect) PutItem(ctx context.Context, t *Table, schemaName string, data Item) *Response {
	r := newResponse()
	item, err := t.WriteRecord(schemaName, data, true)
	if err != nil {
		return r.fail(err)
	}
	out, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:              aws.String(t.Name()),
		Item:                   item,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if err != nil {
		return r.fail(err)
	}
	r.consume(out.ConsumedCapacity)
	r.Data = NewReader(item).Decode(t, schemaName)
	return r
}

// Insert writes a record only when its primary key is not taken. Counters
// declared on the schema are advanced and stamped into the data first.
func (c *Connect) Insert(ctx context.Context, t *Table, schemaName string, data Item) *Response {
	r := newResponse()
	s := t.Schema(schemaName)
	if s == nil {
		return r.fail(NewError(fmt.Sprintf("unknown schema %q", schemaName), WithCode(ErrNotFound)))
	}
	if len(s.counters) > 0 {
		// Counter values land in a copy so the caller's bag stays untouched.
		stamped := make(Item, len(data)+len(s.counters))
		for k, v := range data {
			stamped[k] = v
		}
		for name := range s.counters {
			v, err := c.AutoIncrement(ctx, t, schemaName, name, stamped, false)
			if err != nil {
				return r.fail(err)
			}
			stamped[name] = v
		}
		data = stamped
	}
	item, err := t.WriteRecord(schemaName, data, true)
	if err != nil {
		return r.fail(err)
	}
	k := t.Key()
	st := NewState()
	cond := fmt.Sprintf("attribute_not_exists(%s) AND attribute_not_exists(%s)",
		st.Alias(k.Pk), st.Alias(k.Sk))
	out, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(t.Name()),
		Item:                     item,
		ConditionExpression:      aws.String(cond),
		ExpressionAttributeNames: st.Names(),
		ReturnConsumedCapacity:   types.ReturnConsumedCapacityTotal,
	})
	if err != nil {
		return r.fail(err)
	}
	r.consume(out.ConsumedCapacity)
	r.Data = NewReader(item).Decode(t, schemaName)
	return r
}

// GetItem fetches one record by the key its data bag resolves to.
func (c *Connect) GetItem(ctx context.Context, t *Table, schemaName string, data Item, consistent bool) *Response {
	r := newResponse()
	key := t.PrimaryKey(schemaName, data)
	if key == nil {
		return r.fail(NewError("primary key does not resolve", WithCode(ErrMissing)))
	}
	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:              aws.String(t.Name()),
		Key:                    key,
		ConsistentRead:         aws.Bool(consistent),
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if err != nil {
		return r.fail(err)
	}
	r.consume(out.ConsumedCapacity)
	if out.Item == nil {
		r.OK = false
		r.Errors = append(r.Errors, "not found")
		return r
	}
	r.Count = 1
	r.Data = NewReader(out.Item).Decode(t, schemaName)
	return r
}

// DeleteItem removes a record and returns its previous content.
func (c *Connect) DeleteItem(ctx context.Context, t *Table, schemaName string, data Item) *Response {
	r := newResponse()
	key := t.PrimaryKey(schemaName, data)
	if key == nil {
		return r.fail(NewError("primary key does not resolve", WithCode(ErrMissing)))
	}
	out, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:              aws.String(t.Name()),
		Key:                    key,
		ReturnValues:           types.ReturnValueAllOld,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if err != nil {
		return r.fail(err)
	}
	r.consume(out.ConsumedCapacity)
	if out.Attributes != nil {
		r.Data = NewReader(out.Attributes).Decode(t, schemaName)
	}
	return r
}

// Update executes an assembled Update and returns the new record state.
func (c *Connect) Update(ctx context.Context, t *Table, schemaName string, u *Update) *Response {
	r := newResponse()
	input, err := u.Build()
	if err != nil {
		return r.fail(err)
	}
	out, err := c.client.UpdateItem(ctx, input)
	if err != nil {
		return r.fail(err)
	}
	r.consume(out.ConsumedCapacity)
	if out.Attributes != nil {
		r.Data = NewReader(out.Attributes).Decode(t, schemaName)
	}
	return r
}

// Query executes an assembled query and decodes one page of items.
func (c *Connect) Query(ctx context.Context, t *Table, schemaName string, q *Query) *Response {
	r := newResponse()
	input, err := q.BuildQuery()
	if err != nil {
		return r.fail(err)
	}
	logTrace("query", map[string]any{"table": t.Name()})
	out, err := c.client.Query(ctx, input)
	if err != nil {
		return r.fail(err)
	}
	r.consume(out.ConsumedCapacity)
	r.Count = out.Count
	r.Scanned = out.ScannedCount
	r.LastEvaluatedKey = out.LastEvaluatedKey
	r.Data = NewReader(out.Items).DecodeItems(t, schemaName)
	return r
}

// Scan executes an assembled scan and decodes one page of items. Scans do
// not bind to one schema, so items decode against the union allow-list
// unless schemaName narrows them.
func (c *Connect) Scan(ctx context.Context, t *Table, schemaName string, q *Query) *Response {
	r := newResponse()
	input, err := q.BuildScan()
	if err != nil {
		return r.fail(err)
	}
	out, err := c.client.Scan(ctx, input)
	if err != nil {
		return r.fail(err)
	}
	r.consume(out.ConsumedCapacity)
	r.Count = out.Count
	r.Scanned = out.ScannedCount
	r.LastEvaluatedKey = out.LastEvaluatedKey
	r.Data = NewReader(out.Items).DecodeItems(t, schemaName)
	return r
}

// All drains a scan to the end, following pagination.
func (c *Connect) All(ctx context.Context, t *Table, schemaName string, q *Query) *Response {
	r := newResponse()
	var all []Item
	for {
		page := c.Scan(ctx, t, schemaName, q)
		if !page.OK {
			return page
		}
		r.Count += page.Count
		r.Scanned += page.Scanned
		r.ConsumedUnits += page.ConsumedUnits
		if items, ok := page.Data.([]Item); ok {
			all = append(all, items...)
		}
		if page.LastEvaluatedKey == nil {
			break
		}
		q.StartKeyTagged(page.LastEvaluatedKey)
	}
	r.Data = all
	return r
}

// AutoIncrement advances a schema counter atomically and returns its new
// value.
func (c *Connect) AutoIncrement(ctx context.Context, t *Table, schemaName, counterName string, data Item, reset bool) (int64, error) {
	input, err := t.AutoIncrementInput(schemaName, counterName, data, reset)
	if err != nil {
		return 0, err
	}
	out, err := c.client.UpdateItem(ctx, input)
	if err != nil {
		return 0, NewError("counter update failed", WithCode(ErrRuntime), WithCause(err))
	}
	av, ok := out.Attributes[counterName].(*types.AttributeValueMemberN)
	if !ok {
		return 0, NewError("counter value missing from response", WithCode(ErrRuntime))
	}
	v, err := numFromString(av.Value)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, NewError("counter value is not integral", WithCode(ErrType))
	}
	return n, nil
}

// ─── table operations ────────────────────────────────────────────────────────

// TableCreate provisions the physical table.
func (c *Connect) TableCreate(ctx context.Context, t *Table) *Response {
	r := newResponse()
	if _, err := c.client.CreateTable(ctx, t.CreateTableInput()); err != nil {
		return r.fail(err)
	}
	logInfo("table created", map[string]any{"table": t.Name()})
	return r
}

// TableDelete drops the physical table.
func (c *Connect) TableDelete(ctx context.Context, t *Table) *Response {
	r := newResponse()
	_, err := c.client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(t.Name()),
	})
	if err != nil {
		return r.fail(err)
	}
	return r
}

// TableProtect toggles deletion protection.
func (c *Connect) TableProtect(ctx context.Context, t *Table, enabled bool) *Response {
	r := newResponse()
	_, err := c.client.UpdateTable(ctx, &dynamodb.UpdateTableInput{
		TableName:                 aws.String(t.Name()),
		DeletionProtectionEnabled: aws.Bool(enabled),
	})
	if err != nil {
		return r.fail(err)
	}
	return r
}

// SetTimeToLive enables or disables TTL expiry on an attribute.
func (c *Connect) SetTimeToLive(ctx context.Context, t *Table, attribute string, enabled bool) *Response {
	r := newResponse()
	_, err := c.client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(t.Name()),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String(attribute),
			Enabled:       aws.Bool(enabled),
		},
	})
	if err != nil {
		return r.fail(err)
	}
	return r
}
